package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/nasiridrishi/yank/internal/chunked"
	"github.com/nasiridrishi/yank/internal/config"
	"github.com/nasiridrishi/yank/internal/status"
	"github.com/nasiridrishi/yank/internal/transfer"
	"github.com/nasiridrishi/yank/internal/transport"
	"github.com/nasiridrishi/yank/internal/wire"
)

// downloadDir returns where inbound files land: the configured
// downloadDir field, or ~/Downloads if none was given.
func (a *Agent) downloadDir() string {
	if a.downloadDirCfg != "" {
		return a.downloadDirCfg
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// streamTransfer runs entirely on the sender side after a FILE_REQUEST
// arrives: it streams every announced file's chunks in order, never
// starting file i+1 until file i is fully read, then sends FILE_COMPLETE
// (spec §4.G/§4.H ordering guarantee — enforced here simply by being a
// single sequential loop). ctx is the owning connection's context, so a
// throttled send unblocks promptly on shutdown instead of riding out the
// rate limiter.
func (a *Agent) streamTransfer(ctx context.Context, session *transport.Session, transferID string) {
	rec, ok := a.registry.GetAnnounced(transferID)
	if !ok {
		session.SendMessage(&wire.TransferErrorHeader{
			Type:       wire.TransferError,
			TransferID: transferID,
			Code:       wire.ErrCodeExpiredOrUnknown,
		}, nil)
		return
	}
	a.registry.Mark(transferID, transfer.StatusTransferring)

	var throttle bytesCounter
	limiter := chunked.NewThrottledWriter(ctx, &throttle, a.cfg.MaxBandwidthBps)

	tracker := status.NewProgressTracker(a.callbacks, transferID, rec.BytesTotal)
	var sent int64

	for i, path := range rec.SourcePaths {
		if err := a.streamFile(session, transferID, i, path, limiter, tracker, &sent); err != nil {
			a.registry.Mark(transferID, transfer.StatusFailed)
			session.SendMessage(&wire.TransferErrorHeader{
				Type:       wire.TransferError,
				TransferID: transferID,
				Code:       wire.ErrCodeInternal,
				Message:    err.Error(),
			}, nil)
			a.callbacks.FireError(status.ErrKindInternal, err.Error())
			return
		}
	}

	session.SendMessage(&wire.FileCompleteHeader{Type: wire.FileComplete, TransferID: transferID}, nil)
	a.registry.Mark(transferID, transfer.StatusComplete)
	a.registry.DeleteAnnounced(transferID)
}

func (a *Agent) streamFile(session *transport.Session, transferID string, fileIndex int, path string, limiter io.Writer, tracker *status.ProgressTracker, sent *int64) error {
	r, err := chunked.OpenReader(path, a.cfg.ChunkSize)
	if err != nil {
		return err
	}
	defer r.Close()

	compress := a.cfg.CompressionMode == config.CompressionGzip

	for {
		chunk, err := r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("reading %s: %w", path, err)
		}

		limiter.Write(chunk.Bytes) // pace to max_bandwidth_bps; discarded output

		payload := chunk.Bytes
		compressed := false
		if compress {
			if out, err := chunked.CompressChunk(chunk.Bytes); err == nil && len(out) < len(chunk.Bytes) {
				payload = out
				compressed = true
			}
		}

		header := &wire.FileChunkHeader{
			Type:          wire.FileChunk,
			TransferID:    transferID,
			FileIndex:     fileIndex,
			Offset:        chunk.Offset,
			Length:        len(chunk.Bytes),
			ChunkChecksum: chunk.ChunkChecksum,
			Compressed:    compressed,
		}
		if err := session.SendMessage(header, payload); err != nil {
			return err
		}

		*sent += int64(len(chunk.Bytes))
		a.registry.UpdateProgress(transferID, *sent)
		tracker.Update(*sent)
	}
	return nil
}

// bytesCounter is an io.Writer sink used purely to drive the rate
// limiter's token bucket without actually writing the chunk twice.
type bytesCounter struct{}

func (bytesCounter) Write(p []byte) (int, error) { return len(p), nil }

// recvTransfer tracks one in-progress inbound transfer's per-file writers.
type recvTransfer struct {
	mu        sync.Mutex
	writers   map[int]*chunked.Writer
	received  map[int]int64 // bytes written so far, per file index
	finalized map[int]bool
	paths     []string
	tracker   *status.ProgressTracker
	done      int64 // bytes written so far, across the whole transfer
}

// handleFileAnnounce registers a pending record and, per the eager
// download policy (DESIGN.md Open Question), immediately requests the
// transfer rather than waiting for a user gesture.
func (a *Agent) handleFileAnnounce(session *transport.Session, h *wire.FileAnnounceHeader) {
	a.registry.RegisterPending(h.TransferID, h.Files)
	a.callbacks.FireAnnounced(h.TransferID, h.Files)

	a.recvMu.Lock()
	a.recv[h.TransferID] = &recvTransfer{
		writers:   make(map[int]*chunked.Writer),
		received:  make(map[int]int64),
		finalized: make(map[int]bool),
		tracker:   status.NewProgressTracker(a.callbacks, h.TransferID, totalFileSize(h.Files)),
	}
	a.recvMu.Unlock()

	session.SendMessage(&wire.FileRequestHeader{Type: wire.FileRequest, TransferID: h.TransferID}, nil)
}

func totalFileSize(files []wire.FileMetadata) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}

func (a *Agent) handleFileChunk(h *wire.FileChunkHeader, payload []byte) {
	rec, ok := a.registry.GetPending(h.TransferID)
	if !ok {
		return
	}
	a.registry.Mark(h.TransferID, transfer.StatusTransferring)

	a.recvMu.Lock()
	state := a.recv[h.TransferID]
	a.recvMu.Unlock()
	if state == nil {
		return
	}

	if h.Compressed {
		out, err := chunked.DecompressChunk(payload)
		if err != nil {
			a.callbacks.FireError(status.ErrKindInternal, "decompressing chunk: "+err.Error())
			return
		}
		payload = out
	}

	state.mu.Lock()
	w, ok := state.writers[h.FileIndex]
	if !ok {
		meta := rec.Files[h.FileIndex]
		var err error
		w, err = chunked.NewWriter(a.downloadDir(), meta.Name, meta.Checksum)
		if err != nil {
			state.mu.Unlock()
			a.callbacks.FireError(status.ErrKindInternal, err.Error())
			return
		}
		state.writers[h.FileIndex] = w
	}
	if err := w.WriteChunk(h.Offset, payload); err != nil {
		state.mu.Unlock()
		a.callbacks.FireError(status.ErrKindInternal, err.Error())
		return
	}
	state.received[h.FileIndex] += int64(len(payload))
	received := state.received[h.FileIndex]
	state.done += int64(len(payload))
	done := state.done
	state.mu.Unlock()

	a.registry.UpdateProgress(h.TransferID, done)
	state.tracker.Update(done)

	// Each file finalizes the moment its own declared size is reached,
	// independent of any other file in the transfer — FILE_COMPLETE is a
	// transfer-scoped signal sent once after every file streams, not a
	// per-file marker.
	if received >= rec.Files[h.FileIndex].Size {
		a.finalizeFile(state, rec.Files[h.FileIndex].Name, h.FileIndex)
	}
}

// finalizeFile closes and verifies file index's writer, recording its
// final path on state. Idempotent: a repeat call for an already-finalized
// index (e.g. a duplicate trailing chunk) is a no-op.
func (a *Agent) finalizeFile(state *recvTransfer, name string, fileIndex int) {
	state.mu.Lock()
	if state.finalized[fileIndex] {
		state.mu.Unlock()
		return
	}
	w, ok := state.writers[fileIndex]
	state.mu.Unlock()
	if !ok {
		return
	}

	finalPath, err := w.Finalize()
	if err != nil {
		a.callbacks.FireError(status.ErrKindChecksumMismatch, fmt.Sprintf("%s: %v", name, err))
		return
	}

	state.mu.Lock()
	state.finalized[fileIndex] = true
	state.paths = append(state.paths, finalPath)
	state.mu.Unlock()
}

func (a *Agent) handleFileComplete(h *wire.FileCompleteHeader) {
	a.recvMu.Lock()
	state := a.recv[h.TransferID]
	delete(a.recv, h.TransferID)
	a.recvMu.Unlock()

	rec, _ := a.registry.GetPending(h.TransferID)
	a.registry.Mark(h.TransferID, transfer.StatusComplete)
	a.registry.DeletePending(h.TransferID)

	if state == nil {
		return
	}

	// A zero-byte file produces no FILE_CHUNK (the sender's reader hits
	// EOF immediately), so its writer is never created by handleFileChunk.
	// Create and finalize it here so it still lands on disk with the
	// correct (empty-string) checksum.
	if rec != nil {
		for i, f := range rec.Files {
			state.mu.Lock()
			_, started := state.writers[i]
			state.mu.Unlock()
			if started || f.Size != 0 {
				continue
			}
			w, err := chunked.NewWriter(a.downloadDir(), f.Name, f.Checksum)
			if err != nil {
				a.callbacks.FireError(status.ErrKindInternal, err.Error())
				continue
			}
			state.mu.Lock()
			state.writers[i] = w
			state.mu.Unlock()
			a.finalizeFile(state, f.Name, i)
		}
	}

	a.callbacks.FireComplete(h.TransferID, state.paths)
}

func (a *Agent) handleTransferCancel(h *wire.TransferCancelHeader) {
	a.recvMu.Lock()
	state := a.recv[h.TransferID]
	delete(a.recv, h.TransferID)
	a.recvMu.Unlock()

	if state != nil {
		state.mu.Lock()
		for _, w := range state.writers {
			w.Abort()
		}
		state.mu.Unlock()
	}

	a.registry.Mark(h.TransferID, transfer.StatusCanceled)
	a.registry.DeletePending(h.TransferID)
	a.registry.DeleteAnnounced(h.TransferID)
}

func (a *Agent) handleTransferError(h *wire.TransferErrorHeader) {
	a.recvMu.Lock()
	state := a.recv[h.TransferID]
	delete(a.recv, h.TransferID)
	a.recvMu.Unlock()

	if state != nil {
		state.mu.Lock()
		for _, w := range state.writers {
			w.Abort()
		}
		state.mu.Unlock()
	}

	a.registry.DeletePending(h.TransferID)
	a.registry.DeleteAnnounced(h.TransferID)

	kind := status.ErrKindInternal
	switch h.Code {
	case wire.ErrCodeExpiredOrUnknown:
		kind = status.ErrKindExpiredOrUnknown
	case wire.ErrCodeChecksumMismatch:
		kind = status.ErrKindChecksumMismatch
	case wire.ErrCodeSizeLimitExceeded:
		kind = status.ErrKindSizeLimitExceeded
	}
	a.callbacks.FireError(kind, h.Message)
}
