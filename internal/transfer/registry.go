// Package transfer implements the two-sided transfer registry: announced
// records on the sender, pending records on the receiver, both keyed by
// transfer_id with TTL-based expiry (spec §4.G).
package transfer

import (
	"sync"
	"time"

	"github.com/nasiridrishi/yank/internal/wire"
)

// Status is a TransferRecord's lifecycle state (spec §3).
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusTransferring Status = "TRANSFERRING"
	StatusComplete     Status = "COMPLETE"
	StatusFailed       Status = "FAILED"
	StatusExpired      Status = "EXPIRED"
	StatusCanceled     Status = "CANCELED"
)

// DefaultTTL is the default announce-to-expiry window (spec §3).
const DefaultTTL = 300 * time.Second

// SweepInterval is how often the janitor scans for expired records.
const SweepInterval = 30 * time.Second

// Record is one ANNOUNCE's bookkeeping, shared shape for both the
// sender's announced map and the receiver's pending map (spec §3).
type Record struct {
	TransferID string
	Files      []wire.FileMetadata
	// SourcePaths is populated only on the sender side (absolute paths).
	SourcePaths []string

	AnnouncedAt time.Time
	ExpiresAt   time.Time
	Status      Status

	BytesDone  int64
	BytesTotal int64
}

// Registry holds the announced (sender) and pending (receiver) maps.
// Both live in the same struct since one process can play either role
// across different transfers, and the janitor sweeps both uniformly.
type Registry struct {
	mu        sync.Mutex
	announced map[string]*Record
	pending   map[string]*Record

	ttl time.Duration
}

// New builds an empty Registry using ttl for newly registered records (0
// selects DefaultTTL).
func New(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		announced: make(map[string]*Record),
		pending:   make(map[string]*Record),
		ttl:       ttl,
	}
}

func totalSize(files []wire.FileMetadata) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}

// RegisterAnnounced creates a sender-owned record for a freshly generated
// transfer_id.
func (r *Registry) RegisterAnnounced(transferID string, files []wire.FileMetadata, sourcePaths []string) *Record {
	now := time.Now()
	rec := &Record{
		TransferID:  transferID,
		Files:       files,
		SourcePaths: sourcePaths,
		AnnouncedAt: now,
		ExpiresAt:   now.Add(r.ttl),
		Status:      StatusPending,
		BytesTotal:  totalSize(files),
	}
	r.mu.Lock()
	r.announced[transferID] = rec
	r.mu.Unlock()
	return rec
}

// RegisterPending creates a receiver-owned record on FILE_ANNOUNCE
// receipt.
func (r *Registry) RegisterPending(transferID string, files []wire.FileMetadata) *Record {
	now := time.Now()
	rec := &Record{
		TransferID:  transferID,
		Files:       files,
		AnnouncedAt: now,
		ExpiresAt:   now.Add(r.ttl),
		Status:      StatusPending,
		BytesTotal:  totalSize(files),
	}
	r.mu.Lock()
	r.pending[transferID] = rec
	r.mu.Unlock()
	return rec
}

// GetAnnounced looks up a sender-owned record.
func (r *Registry) GetAnnounced(transferID string) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.announced[transferID]
	return rec, ok
}

// GetPending looks up a receiver-owned record.
func (r *Registry) GetPending(transferID string) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.pending[transferID]
	return rec, ok
}

// UpdateProgress sets bytes_done on whichever map holds transferID.
func (r *Registry) UpdateProgress(transferID string, bytesDone int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.announced[transferID]; ok {
		rec.BytesDone = bytesDone
	}
	if rec, ok := r.pending[transferID]; ok {
		rec.BytesDone = bytesDone
	}
}

// Mark sets a record's status. Entering TRANSFERRING extends its deadline
// by one more TTL (spec §4.G), since an in-flight transfer should not be
// swept out from under itself.
func (r *Registry) Mark(transferID string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.announced[transferID]; ok {
		rec.Status = status
		if status == StatusTransferring {
			rec.ExpiresAt = time.Now().Add(r.ttl)
		}
	}
	if rec, ok := r.pending[transferID]; ok {
		rec.Status = status
		if status == StatusTransferring {
			rec.ExpiresAt = time.Now().Add(r.ttl)
		}
	}
}

// DeleteAnnounced removes a sender-owned record (e.g. on FILE_COMPLETE
// or TRANSFER_CANCEL).
func (r *Registry) DeleteAnnounced(transferID string) {
	r.mu.Lock()
	delete(r.announced, transferID)
	r.mu.Unlock()
}

// DeletePending removes a receiver-owned record.
func (r *Registry) DeletePending(transferID string) {
	r.mu.Lock()
	delete(r.pending, transferID)
	r.mu.Unlock()
}

// SweepExpired removes every record (in both maps) whose ExpiresAt has
// passed, unless its status is TRANSFERRING. Keys are cloned before the
// scan so iteration never holds the lock across I/O (spec §4.G); there is
// none here, but the same shape is kept for consistency with callers that
// might do I/O in a future sweep hook.
func (r *Registry) SweepExpired(now time.Time) (expiredAnnounced, expiredPending []string) {
	r.mu.Lock()
	announcedKeys := make([]string, 0, len(r.announced))
	for k := range r.announced {
		announcedKeys = append(announcedKeys, k)
	}
	pendingKeys := make([]string, 0, len(r.pending))
	for k := range r.pending {
		pendingKeys = append(pendingKeys, k)
	}
	r.mu.Unlock()

	for _, k := range announcedKeys {
		r.mu.Lock()
		rec, ok := r.announced[k]
		if ok && rec.Status != StatusTransferring && now.After(rec.ExpiresAt) {
			delete(r.announced, k)
			expiredAnnounced = append(expiredAnnounced, k)
		}
		r.mu.Unlock()
	}
	for _, k := range pendingKeys {
		r.mu.Lock()
		rec, ok := r.pending[k]
		if ok && rec.Status != StatusTransferring && now.After(rec.ExpiresAt) {
			delete(r.pending, k)
			expiredPending = append(expiredPending, k)
		}
		r.mu.Unlock()
	}
	return expiredAnnounced, expiredPending
}

// RunJanitor sweeps every SweepInterval until stop is closed.
func (r *Registry) RunJanitor(stop <-chan struct{}, onExpired func(transferID string)) {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			expiredA, expiredP := r.SweepExpired(time.Now())
			if onExpired != nil {
				for _, id := range expiredA {
					onExpired(id)
				}
				for _, id := range expiredP {
					onExpired(id)
				}
			}
		}
	}
}
