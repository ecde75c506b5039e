// Package agent implements the sync agent: the state machine and four
// long-lived workers (listener, connector, connection handler, watcher)
// that orchestrate pairing, transport, discovery, the clipboard watcher,
// and the transfer registry into one running client/server (spec §4.I).
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nasiridrishi/yank/internal/clipboard"
	"github.com/nasiridrishi/yank/internal/config"
	"github.com/nasiridrishi/yank/internal/discovery"
	"github.com/nasiridrishi/yank/internal/ignorefile"
	"github.com/nasiridrishi/yank/internal/status"
	"github.com/nasiridrishi/yank/internal/transfer"
	"github.com/nasiridrishi/yank/internal/transport"
	"github.com/nasiridrishi/yank/internal/watcher"
)

// Agent owns every component for one running sync session: the paired
// identity, the active connection (if any), the transfer registry, the
// clipboard watcher, and discovery. It is constructed once by the App at
// startup and passed by reference into whatever needs it — there is no
// package-level mutable state (spec §9's "no hidden globals").
type Agent struct {
	deviceID     string
	pairing      *config.PairingRecord
	sharedSecret []byte
	cfg          *config.Config
	logger       *slog.Logger

	clip      clipboard.Adapter
	watcher   *watcher.Watcher
	registry  *transfer.Registry
	ignore    *ignorefile.Filter
	callbacks status.Callbacks

	bestAddr   *discovery.BestAddress
	advertiser *discovery.Advertiser
	browser    *discovery.Browser
	listener   *transport.Listener

	peerOverride   string // --peer fallback address
	downloadDirCfg string // destination for inbound files; empty selects ~/Downloads

	state atomic.Value // status.State

	mu       sync.Mutex
	active   *transport.Session
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// recv tracks in-progress inbound transfers, keyed by transfer_id.
	recvMu sync.Mutex
	recv   map[string]*recvTransfer

	// transferSem bounds concurrent outbound streams to MAX_CONCURRENT_TRANSFERS.
	transferSem chan struct{}
}

// Options bundles everything New needs beyond the persisted config and
// pairing record.
type Options struct {
	DeviceID     string
	Pairing      *config.PairingRecord
	SharedSecret []byte
	Config       *config.Config
	Logger       *slog.Logger
	Clipboard    clipboard.Adapter
	Ignore       *ignorefile.Filter
	Callbacks    status.Callbacks
	PeerOverride string // --peer IP, used if discovery yields nothing in time
	DownloadDir  string // destination for inbound files; empty selects ~/Downloads
}

// New constructs an Agent. It does not start any goroutines; call Run.
func New(opts Options) *Agent {
	a := &Agent{
		deviceID:     opts.DeviceID,
		pairing:      opts.Pairing,
		sharedSecret: opts.SharedSecret,
		cfg:          opts.Config,
		logger:       opts.Logger,
		clip:         opts.Clipboard,
		ignore:       opts.Ignore,
		callbacks:    opts.Callbacks,
		bestAddr:       &discovery.BestAddress{},
		peerOverride:   opts.PeerOverride,
		downloadDirCfg: opts.DownloadDir,
		stopCh:         make(chan struct{}),
		recv:         make(map[string]*recvTransfer),
		transferSem:  make(chan struct{}, 1), // MAX_CONCURRENT_TRANSFERS
	}
	a.registry = transfer.New(time.Duration(opts.Config.TransferExpiry) * time.Second)
	a.watcher = watcher.New(opts.Clipboard, opts.Config.LazyThreshold, time.Duration(opts.Config.PollIntervalMillis)*time.Millisecond)
	a.setState(status.StateUnpaired)
	if opts.Pairing != nil {
		a.setState(status.StateIdle)
	}
	return a
}

func (a *Agent) setState(s status.State) {
	a.state.Store(s)
	a.callbacks.FireState(s)
}

// State returns the agent's current lifecycle state.
func (a *Agent) State() status.State {
	s, _ := a.state.Load().(status.State)
	return s
}

// Run starts all workers and blocks until ctx is canceled or Stop is
// called. It returns once every worker has exited.
func (a *Agent) Run(ctx context.Context) error {
	if a.pairing == nil {
		return fmt.Errorf("agent: not paired")
	}

	addr := fmt.Sprintf(":%d", a.cfg.Port)
	ln, err := transport.Listen(addr, a.deviceID, a.sharedSecret)
	if err != nil {
		return fmt.Errorf("agent: starting listener: %w", err)
	}
	a.listener = ln

	adv, err := discovery.Advertise(a.deviceID, a.cfg.Port)
	if err != nil {
		a.logger.Warn("agent: mdns advertise failed, continuing without it", "error", err)
	} else {
		a.advertiser = adv
	}
	a.browser = discovery.NewBrowser(a.pairing.PeerDeviceID, a.bestAddr, a.logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sessionCh := make(chan *transport.Session, 1)

	a.wg.Add(5)
	go a.runListenerLoop(ctx, sessionCh)
	go a.runConnectorLoop(ctx, sessionCh)
	go a.runWatcherLoop(ctx)
	go a.runBrowserLoop(ctx)
	go a.runJanitorLoop(ctx)

	a.runSessionLoop(ctx, sessionCh)

	cancel()
	a.listener.Close()
	if a.advertiser != nil {
		a.advertiser.Shutdown()
	}
	a.browser.Stop()
	a.watcher.Stop()
	a.wg.Wait()

	a.setState(status.StateClosed)
	return nil
}

// Stop signals every worker to exit. Safe to call multiple times.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)
		a.mu.Lock()
		if a.active != nil {
			a.active.Close()
		}
		a.mu.Unlock()
	})
}

func (a *Agent) runJanitorLoop(ctx context.Context) {
	defer a.wg.Done()
	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()
	a.registry.RunJanitor(stop, func(transferID string) {
		a.callbacks.FireError(status.ErrKindExpiredOrUnknown, transferID)
	})
}

func (a *Agent) runBrowserLoop(ctx context.Context) {
	defer a.wg.Done()
	done := make(chan struct{})
	go func() {
		a.browser.Run()
		close(done)
	}()
	select {
	case <-ctx.Done():
		a.browser.Stop()
	case <-done:
	}
}

func (a *Agent) runListenerLoop(ctx context.Context, sessionCh chan<- *transport.Session) {
	defer a.wg.Done()
	for {
		session, err := a.listener.Accept(func() { a.setState(status.StateAuthenticating) })
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				a.logger.Warn("agent: accept failed", "error", err)
				continue
			}
		}
		select {
		case sessionCh <- session:
		case <-ctx.Done():
			session.Close()
			return
		}
	}
}

func (a *Agent) runConnectorLoop(ctx context.Context, sessionCh chan<- *transport.Session) {
	defer a.wg.Done()

	start := time.Now()
	addrSource := func() (string, bool) {
		if addr, ok := a.bestAddr.Get(); ok {
			return addr, true
		}
		if a.peerOverride != "" && time.Since(start) >= discovery.FallbackTimeout {
			return fmt.Sprintf("%s:%d", a.peerOverride, a.cfg.Port), true
		}
		return "", false
	}

	for {
		if a.hasActiveSession() {
			if !sleepCtx(ctx, time.Second) {
				return
			}
			continue
		}

		a.setState(status.StateConnecting)
		session, err := transport.DialWithBackoff(ctx, addrSource, a.deviceID, a.sharedSecret, func(err error) {
			a.logger.Debug("agent: connect attempt failed", "error", err)
			a.setState(status.StateConnecting) // a failed handshake attempt falls back to CONNECTING
		}, func() { a.setState(status.StateAuthenticating) })
		if err != nil {
			return // ctx canceled
		}
		select {
		case sessionCh <- session:
		case <-ctx.Done():
			session.Close()
			return
		}
	}
}

func (a *Agent) hasActiveSession() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active != nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// runSessionLoop is the agent's single point of ownership for the active
// session: it accepts whichever of the listener/connector workers wins
// the race, runs it to completion, then loops for the next one.
func (a *Agent) runSessionLoop(ctx context.Context, sessionCh <-chan *transport.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case session := <-sessionCh:
			a.mu.Lock()
			if a.active != nil {
				a.mu.Unlock()
				session.Close() // a connection already won the race
				continue
			}
			a.active = session
			a.mu.Unlock()

			a.setState(status.StateConnected)
			a.runConnection(ctx, session)

			a.mu.Lock()
			a.active = nil
			a.mu.Unlock()
			if a.listener != nil {
				a.listener.Release(session)
			}

			select {
			case <-ctx.Done():
				return
			default:
				a.setState(status.StateIdle)
			}
		}
	}
}

// runConnection drives heartbeat + inbound dispatch for one session until
// it fails or ctx is canceled.
func (a *Agent) runConnection(ctx context.Context, session *transport.Session) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var hbWg sync.WaitGroup
	hbWg.Add(1)
	go func() {
		defer hbWg.Done()
		transport.RunHeartbeat(connCtx, session, func() {
			a.setState(status.StateDegraded)
			session.Close()
		})
	}()

	a.dispatchInboundLoop(connCtx, session)

	cancel()
	hbWg.Wait()
	session.Close()
}

func (a *Agent) runWatcherLoop(ctx context.Context) {
	defer a.wg.Done()
	done := make(chan struct{})
	go func() {
		a.watcher.Run(func(change watcher.Change) {
			a.handleOutboundChange(change)
		})
		close(done)
	}()
	select {
	case <-ctx.Done():
		a.watcher.Stop()
	case <-done:
	}
}

// sendOnActiveSession sends a message on the currently active session, if
// any. Returns false if there is no active connection.
func (a *Agent) sendOnActiveSession(header any, payload []byte) bool {
	a.mu.Lock()
	session := a.active
	a.mu.Unlock()
	if session == nil {
		return false
	}
	if err := session.SendMessage(header, payload); err != nil {
		a.logger.Warn("agent: send failed", "error", err)
		return false
	}
	return true
}
