// Package status implements the callback surface fired on the agent's
// event thread, and the EMA speed / ETA computation behind on_progress
// (spec §4.J).
package status

import (
	"time"

	"github.com/nasiridrishi/yank/internal/wire"
)

// State is the agent's connection lifecycle state (spec §4.I).
type State string

const (
	StateUnpaired      State = "UNPAIRED"
	StateIdle          State = "IDLE"
	StateConnecting    State = "CONNECTING"
	StateAuthenticating State = "AUTHENTICATING"
	StateConnected     State = "CONNECTED"
	StateDegraded      State = "DEGRADED"
	StateClosed        State = "CLOSED"
)

// ErrorKind enumerates the abstract error kinds from spec §7.
type ErrorKind string

const (
	ErrKindProtocol           ErrorKind = "PROTOCOL_ERROR"
	ErrKindAuth               ErrorKind = "AUTH_ERROR"
	ErrKindConnectionLost     ErrorKind = "CONNECTION_LOST"
	ErrKindChecksumMismatch   ErrorKind = "CHECKSUM_MISMATCH"
	ErrKindExpiredOrUnknown   ErrorKind = "EXPIRED_OR_UNKNOWN_TRANSFER"
	ErrKindClipboardUnavail   ErrorKind = "CLIPBOARD_UNAVAILABLE"
	ErrKindIgnoredByFilter    ErrorKind = "IGNORED_BY_FILTER"
	ErrKindSizeLimitExceeded  ErrorKind = "SIZE_LIMIT_EXCEEDED"
	ErrKindNotPaired          ErrorKind = "NOT_PAIRED"
	ErrKindInternal           ErrorKind = "INTERNAL_ERROR"
)

// Callbacks holds the five event hooks an embedding UI registers (spec
// §4.J). Any nil field is simply not invoked.
type Callbacks struct {
	OnState     func(s State)
	OnAnnounced func(transferID string, files []wire.FileMetadata)
	OnProgress  func(transferID string, bytesDone, bytesTotal int64, speedBps float64, etaSeconds float64)
	OnComplete  func(transferID string, paths []string)
	OnError     func(kind ErrorKind, detail string)
}

func (c Callbacks) FireState(s State) {
	if c.OnState != nil {
		c.OnState(s)
	}
}

func (c Callbacks) FireAnnounced(transferID string, files []wire.FileMetadata) {
	if c.OnAnnounced != nil {
		c.OnAnnounced(transferID, files)
	}
}

func (c Callbacks) FireProgress(transferID string, bytesDone, bytesTotal int64, speedBps, etaSeconds float64) {
	if c.OnProgress != nil {
		c.OnProgress(transferID, bytesDone, bytesTotal, speedBps, etaSeconds)
	}
}

func (c Callbacks) FireComplete(transferID string, paths []string) {
	if c.OnComplete != nil {
		c.OnComplete(transferID, paths)
	}
}

func (c Callbacks) FireError(kind ErrorKind, detail string) {
	if c.OnError != nil {
		c.OnError(kind, detail)
	}
}

// emaWindow is the window over which speed is smoothed (spec §4.J).
const emaWindow = 2 * time.Second

// ProgressTracker computes EMA speed and ETA for one active transfer.
// Not safe for concurrent use from multiple goroutines; callers own one
// instance per transfer on a single dispatch goroutine.
type ProgressTracker struct {
	callbacks  Callbacks
	transferID string
	bytesTotal int64

	bytesDone  int64
	speedBps   float64
	lastSample time.Time
	lastBytes  int64
}

// NewProgressTracker starts tracking a transfer of bytesTotal bytes.
func NewProgressTracker(callbacks Callbacks, transferID string, bytesTotal int64) *ProgressTracker {
	return &ProgressTracker{
		callbacks:  callbacks,
		transferID: transferID,
		bytesTotal: bytesTotal,
		lastSample: time.Now(),
	}
}

// Update records newly transferred bytes and fires on_progress with the
// updated EMA speed and ETA.
func (p *ProgressTracker) Update(bytesDone int64) {
	now := time.Now()
	elapsed := now.Sub(p.lastSample)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}

	instBps := float64(bytesDone-p.lastBytes) / elapsed.Seconds()
	alpha := elapsed.Seconds() / emaWindow.Seconds()
	if alpha > 1 {
		alpha = 1
	}
	if p.speedBps == 0 {
		p.speedBps = instBps
	} else {
		p.speedBps = alpha*instBps + (1-alpha)*p.speedBps
	}

	p.bytesDone = bytesDone
	p.lastBytes = bytesDone
	p.lastSample = now

	remaining := p.bytesTotal - p.bytesDone
	speed := p.speedBps
	if speed < 1 {
		speed = 1
	}
	eta := float64(remaining) / speed

	p.callbacks.FireProgress(p.transferID, p.bytesDone, p.bytesTotal, p.speedBps, eta)
}
