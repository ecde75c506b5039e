package agent

import (
	"os"
	"path/filepath"

	"github.com/nasiridrishi/yank/internal/imaging"
	"github.com/nasiridrishi/yank/internal/status"
	"github.com/nasiridrishi/yank/internal/transfer"
	"github.com/nasiridrishi/yank/internal/watcher"
	"github.com/nasiridrishi/yank/internal/wire"
)

// handleOutboundChange routes one locally detected clipboard change to
// the right outbound frame(s) (spec §4.F/§4.I).
func (a *Agent) handleOutboundChange(change watcher.Change) {
	switch change.Classification {
	case watcher.ClassifyText:
		a.sendOnActiveSession(&wire.TextHeader{Type: wire.Text, Content: change.Content.Text}, nil)

	case watcher.ClassifyImage:
		norm := imaging.Normalize(change.Content.Image, "")
		a.sendOnActiveSession(&wire.ImageHeader{
			Type:   wire.Image,
			Width:  norm.Width,
			Height: norm.Height,
			Format: norm.Format,
		}, norm.PNG)

	case watcher.ClassifyFilesInline, watcher.ClassifyFilesLarge:
		a.handleOutboundFiles(change.Content.Files)
	}
}

func (a *Agent) handleOutboundFiles(paths []string) {
	paths = a.ignore.FilterPaths(paths)
	if len(paths) == 0 {
		return
	}

	files := make([]wire.FileMetadata, 0, len(paths))
	var total int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			a.callbacks.FireError(status.ErrKindInternal, "stat "+p+": "+err.Error())
			return
		}
		if info.Size() > a.cfg.MaxFileSize {
			a.callbacks.FireError(status.ErrKindSizeLimitExceeded, p)
			return
		}
		total += info.Size()
		files = append(files, wire.FileMetadata{
			Name: filepath.Base(p),
			Size: info.Size(),
		})
	}
	if total > a.cfg.MaxTotalSize {
		a.callbacks.FireError(status.ErrKindSizeLimitExceeded, "total transfer size exceeds max_total_size")
		return
	}

	if watcher.ClassifyFilesBySize(total, a.cfg.LazyThreshold) == watcher.ClassifyFilesInline {
		a.sendInlineFiles(files, paths)
		return
	}

	a.announceFiles(files, paths)
}

// sendInlineFiles ships small file sets as one FILES_INLINE frame whose
// payload is the concatenation of every file's bytes in Files order.
func (a *Agent) sendInlineFiles(files []wire.FileMetadata, paths []string) {
	var payload []byte
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			a.callbacks.FireError(status.ErrKindInternal, "reading "+p+": "+err.Error())
			return
		}
		files[i].Checksum = sha256Hex(data)
		payload = append(payload, data...)
	}
	a.sendOnActiveSession(&wire.FilesInlineHeader{Type: wire.FilesInline, Files: files}, payload)
}

// announceFiles registers a sender-side record and sends FILE_ANNOUNCE;
// the receiver pulls chunks via FILE_REQUEST once it is ready (spec §4.G,
// the "eager download" Open Question resolved in DESIGN.md).
func (a *Agent) announceFiles(files []wire.FileMetadata, paths []string) {
	for i, p := range paths {
		sum, err := sha256File(p)
		if err != nil {
			a.callbacks.FireError(status.ErrKindInternal, "checksumming "+p+": "+err.Error())
			return
		}
		files[i].Checksum = sum
	}

	transferID := transfer.NewTransferID()
	a.registry.RegisterAnnounced(transferID, files, paths)
	a.callbacks.FireAnnounced(transferID, files)
	a.sendOnActiveSession(&wire.FileAnnounceHeader{
		Type:       wire.FileAnnounce,
		TransferID: transferID,
		Files:      files,
	}, nil)
}
