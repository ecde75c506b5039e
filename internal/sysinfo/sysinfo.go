// Package sysinfo collects host metrics for the `status` CLI's system
// section. The sync agent does not consult it; no pre-transfer admission
// check uses these metrics.
package sysinfo

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats holds the latest collected host metrics.
type Stats struct {
	CPUPercent       float64
	MemoryPercent    float64
	DiskUsagePercent float64
	DiskFreeBytes    uint64
}

// Monitor periodically collects Stats in the background so readers of
// Stats never block on a syscall.
type Monitor struct {
	logger   *slog.Logger
	diskPath string

	mu    sync.RWMutex
	stats Stats

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewMonitor builds a Monitor that samples diskPath's usage (e.g. the
// downloads directory's filesystem).
func NewMonitor(diskPath string, logger *slog.Logger) *Monitor {
	return &Monitor{
		logger:   logger,
		diskPath: diskPath,
		stopCh:   make(chan struct{}),
	}
}

// Start begins periodic collection every 15s, with an immediate initial
// sample so Stats() is populated before the first tick.
func (m *Monitor) Start() {
	m.collect()
	m.wg.Add(1)
	go m.run()
}

// Stop ends collection and waits for the background goroutine to exit.
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

// Stats returns the most recently collected metrics.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// HasFreeDiskSpace reports whether at least minFreeBytes are free on
// diskPath's filesystem, per the most recent sample (spec §4.G/§7
// admission check, expansion).
func (m *Monitor) HasFreeDiskSpace(minFreeBytes int64) bool {
	if minFreeBytes <= 0 {
		return true
	}
	return m.Stats().DiskFreeBytes >= uint64(minFreeBytes)
}

func (m *Monitor) run() {
	defer m.wg.Done()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.collect()
		}
	}
}

func (m *Monitor) collect() {
	var s Stats

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	} else if m.logger != nil {
		m.logger.Debug("sysinfo: collecting cpu percent", "error", err)
	}

	if v, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = v.UsedPercent
	} else if m.logger != nil {
		m.logger.Debug("sysinfo: collecting memory stats", "error", err)
	}

	if d, err := disk.Usage(m.diskPath); err == nil {
		s.DiskUsagePercent = d.UsedPercent
		s.DiskFreeBytes = d.Free
	} else if m.logger != nil {
		m.logger.Debug("sysinfo: collecting disk usage", "path", m.diskPath, "error", err)
	}

	m.mu.Lock()
	m.stats = s
	m.mu.Unlock()
}

// String renders Stats for the `status` CLI (spec §6).
func (s Stats) String() string {
	return fmt.Sprintf("cpu=%.1f%% mem=%.1f%% disk=%.1f%% free=%dMB",
		s.CPUPercent, s.MemoryPercent, s.DiskUsagePercent, s.DiskFreeBytes/(1024*1024))
}
