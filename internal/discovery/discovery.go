// Package discovery advertises and resolves yank peers on the local
// network via multicast DNS service records (spec §4.D).
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service type advertised and browsed for.
const ServiceType = "_yank._tcp"

// BrowseInterval is how often the browse loop re-queries the network.
const BrowseInterval = 5 * time.Second

// FallbackTimeout is how long to wait for a discovery match before the
// connect loop is allowed to fall back to a user-supplied --peer address
// (spec §4.D).
const FallbackTimeout = 10 * time.Second

// Advertiser publishes this device's service record so the paired peer
// can find it.
type Advertiser struct {
	server *mdns.Server
}

// Advertise registers `_yank._tcp.local.` with a TXT record carrying this
// device's id, on the given port.
func Advertise(deviceID string, port int) (*Advertiser, error) {
	host, err := os.Hostname()
	if err != nil {
		host = deviceID
	}

	service, err := mdns.NewMDNSService(
		deviceID,
		ServiceType,
		"",
		"",
		port,
		nil,
		[]string{"device_id=" + deviceID, "host=" + host},
	)
	if err != nil {
		return nil, fmt.Errorf("discovery: building service record: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("discovery: starting mdns server: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown stops advertising.
func (a *Advertiser) Shutdown() error {
	return a.server.Shutdown()
}

// BestAddress is the independent "best known address" slot shared between
// the browse loop (writer) and the connect loop (reader), per spec §4.D.
type BestAddress struct {
	mu   sync.RWMutex
	addr string
	ok   bool
}

// Get returns the current best known address, if any.
func (b *BestAddress) Get() (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.addr, b.ok
}

// Set records a newly discovered address.
func (b *BestAddress) Set(addr string) {
	b.mu.Lock()
	b.addr = addr
	b.ok = true
	b.mu.Unlock()
}

// Browser periodically queries for `_yank._tcp.local.` records and
// updates a BestAddress slot whenever it sees the paired peer's device_id.
type Browser struct {
	peerDeviceID string
	slot         *BestAddress
	logger       *slog.Logger

	stopCh chan struct{}
	stopOk atomic.Bool
}

// NewBrowser constructs a Browser that watches for peerDeviceID and writes
// matches into slot.
func NewBrowser(peerDeviceID string, slot *BestAddress, logger *slog.Logger) *Browser {
	return &Browser{
		peerDeviceID: peerDeviceID,
		slot:         slot,
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
}

// Run blocks, querying every BrowseInterval until Stop is called.
func (b *Browser) Run() {
	ticker := time.NewTicker(BrowseInterval)
	defer ticker.Stop()

	b.queryOnce()
	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.queryOnce()
		}
	}
}

// Stop ends the browse loop. Safe to call more than once.
func (b *Browser) Stop() {
	if b.stopOk.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
}

func (b *Browser) queryOnce() {
	entriesCh := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entriesCh {
			b.handleEntry(entry)
		}
	}()

	err := mdns.Query(&mdns.QueryParam{
		Service: ServiceType,
		Domain:  "local",
		Timeout: 2 * time.Second,
		Entries: entriesCh,
	})
	close(entriesCh)
	<-done

	if err != nil && b.logger != nil {
		b.logger.Debug("discovery query failed", "error", err)
	}
}

func (b *Browser) handleEntry(entry *mdns.ServiceEntry) {
	deviceID := extractDeviceID(entry.InfoFields)
	if deviceID == "" || deviceID != b.peerDeviceID {
		return
	}

	ip := entry.AddrV4
	if ip == nil {
		ip = entry.AddrV6
	}
	if ip == nil {
		return
	}

	addr := net.JoinHostPort(ip.String(), fmt.Sprintf("%d", entry.Port))
	b.slot.Set(addr)
	if b.logger != nil {
		b.logger.Info("discovered paired peer", "device_id", deviceID, "addr", addr)
	}
}

func extractDeviceID(fields []string) string {
	for _, f := range fields {
		if strings.HasPrefix(f, "device_id=") {
			return strings.TrimPrefix(f, "device_id=")
		}
	}
	return ""
}
