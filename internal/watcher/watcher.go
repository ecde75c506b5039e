// Package watcher polls the clipboard adapter, suppresses echoes from
// the agent's own remote writes, and classifies changes for outbound
// dispatch (spec §4.F).
package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/nasiridrishi/yank/internal/clipboard"
)

// PollInterval is the default polling period (spec §3, POLL_INTERVAL),
// used when New is given a non-positive interval.
const PollInterval = 300 * time.Millisecond

// echoMaskTTL is how long an installed-remote-write hash is retained as
// an echo suppressor (spec §4.F).
const echoMaskTTL = 3 * time.Second

// Classification is the outbound routing decision for an observed change
// (spec §4.F).
type Classification int

const (
	ClassifyNone Classification = iota
	ClassifyText
	ClassifyImage
	ClassifyFilesInline
	ClassifyFilesLarge
)

// Change is one detected clipboard change, ready for outbound dispatch.
type Change struct {
	Content        clipboard.Content
	Classification Classification
}

// snapshot mirrors spec §3's ClipboardSnapshot: just enough to detect a
// change without re-reading or re-hashing the full content elsewhere.
type snapshot struct {
	kind clipboard.Kind
	hash string
}

func hashContent(c clipboard.Content) string {
	h := sha256.New()
	switch c.Kind {
	case clipboard.KindText:
		h.Write([]byte(c.Text))
	case clipboard.KindImage:
		h.Write(c.Image)
	case clipboard.KindFiles:
		sorted := append([]string(nil), c.Files...)
		sort.Strings(sorted)
		for _, f := range sorted {
			h.Write([]byte(f))
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Watcher polls an Adapter and emits Change events through a callback,
// deduping against the last emitted snapshot and a short-lived echo mask
// installed whenever the agent writes a remote value locally.
type Watcher struct {
	adapter       clipboard.Adapter
	lazyThreshold int64
	pollInterval  time.Duration

	// mu guards lastEmitted/echoMask/echoMaskUntil: poll runs on the
	// watcher goroutine, NoteRemoteWrite is called from inbound dispatch
	// (spec §5 "shared resources" — echo mask gets its own mutex).
	mu            sync.Mutex
	lastEmitted   snapshot
	echoMask      snapshot
	echoMaskUntil time.Time

	stopCh chan struct{}
}

// New builds a Watcher over adapter. lazyThreshold is LAZY_THRESHOLD
// (spec §4.F); the watcher does not stat files, so FILES changes are
// emitted as ClassifyFilesInline and the caller settles inline vs. large
// with ClassifyFilesBySize.
// pollInterval overrides PollInterval when positive (config's
// poll_interval_ms, spec §3 POLL_INTERVAL).
func New(adapter clipboard.Adapter, lazyThreshold int64, pollInterval time.Duration) *Watcher {
	if pollInterval <= 0 {
		pollInterval = PollInterval
	}
	return &Watcher{
		adapter:       adapter,
		lazyThreshold: lazyThreshold,
		pollInterval:  pollInterval,
		stopCh:        make(chan struct{}),
	}
}

// NoteRemoteWrite installs an echo mask for content the agent just wrote
// to the local clipboard on the peer's behalf, so the next poll does not
// re-emit it as an outbound change (spec §4.F).
func (w *Watcher) NoteRemoteWrite(c clipboard.Content) {
	w.mu.Lock()
	w.echoMask = snapshot{kind: c.Kind, hash: hashContent(c)}
	w.echoMaskUntil = time.Now().Add(echoMaskTTL)
	w.mu.Unlock()
}

// Run polls at the configured poll interval and calls onChange for every detected change,
// until Stop is called.
func (w *Watcher) Run(onChange func(Change)) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.poll(onChange)
		}
	}
}

// Stop ends the poll loop.
func (w *Watcher) Stop() {
	close(w.stopCh)
}

func (w *Watcher) poll(onChange func(Change)) {
	content, err := w.adapter.Read()
	if err != nil || content.Kind == clipboard.KindNone {
		return
	}

	snap := snapshot{kind: content.Kind, hash: hashContent(content)}

	w.mu.Lock()
	if snap == w.lastEmitted {
		w.mu.Unlock()
		return
	}
	if time.Now().Before(w.echoMaskUntil) && snap == w.echoMask {
		w.mu.Unlock()
		return
	}
	w.lastEmitted = snap
	w.mu.Unlock()

	onChange(Change{Content: content, Classification: classify(content, w.lazyThreshold)})
}

// classify gives a provisional classification from the adapter's Content
// alone. FILES changes need their total size, which the watcher never
// stats itself (that's a filesystem call outside its contract) — the
// agent resolves file sizes while building FileMetadata and calls
// ClassifyFilesBySize to settle inline vs. large before dispatch.
func classify(c clipboard.Content, lazyThreshold int64) Classification {
	switch c.Kind {
	case clipboard.KindText:
		return ClassifyText
	case clipboard.KindImage:
		return ClassifyImage
	case clipboard.KindFiles:
		return ClassifyFilesInline
	default:
		return ClassifyNone
	}
}

// ClassifyFilesBySize re-classifies a FILES change once the caller has
// resolved each file's size, per spec §4.F's LAZY_THRESHOLD rule.
func ClassifyFilesBySize(totalBytes, lazyThreshold int64) Classification {
	if totalBytes >= lazyThreshold {
		return ClassifyFilesLarge
	}
	return ClassifyFilesInline
}
