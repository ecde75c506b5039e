package agent

import (
	"context"
	"errors"

	"github.com/nasiridrishi/yank/internal/clipboard"
	"github.com/nasiridrishi/yank/internal/status"
	"github.com/nasiridrishi/yank/internal/transport"
	"github.com/nasiridrishi/yank/internal/wire"
)

// dispatchInboundLoop reads messages off session until it closes or a
// decrypt/protocol failure ends the connection (spec §4.I). ctx is the
// connection's own context, threaded down to anything started on the
// peer's behalf (e.g. a throttled outbound stream) so it can't outlive
// the connection.
func (a *Agent) dispatchInboundLoop(ctx context.Context, session *transport.Session) {
	for {
		msg, err := session.ReceiveMessage()
		if err != nil {
			if !errors.Is(err, transport.ErrAuth) {
				a.logger.Debug("agent: connection ended", "error", err)
			}
			return
		}
		a.dispatchInbound(ctx, session, msg)
	}
}

func (a *Agent) dispatchInbound(ctx context.Context, session *transport.Session, msg wire.Message) {
	switch h := msg.Header.(type) {
	case *wire.HeartbeatHeader:
		// liveness only; Session.ReceiveMessage already refreshed IdleFor.

	case *wire.TextHeader:
		a.installText(h.Content)

	case *wire.ImageHeader:
		a.installImage(msg.Payload)

	case *wire.FilesInlineHeader:
		a.installInlineFiles(h, msg.Payload)

	case *wire.FileAnnounceHeader:
		a.handleFileAnnounce(session, h)

	case *wire.FileRequestHeader:
		select {
		case a.transferSem <- struct{}{}:
			go func() {
				defer func() { <-a.transferSem }()
				a.streamTransfer(ctx, session, h.TransferID)
			}()
		default:
			// a transfer is already streaming; this request is dropped
			// and the peer's pending record is left to expire.
		}

	case *wire.FileChunkHeader:
		a.handleFileChunk(h, msg.Payload)

	case *wire.FileCompleteHeader:
		a.handleFileComplete(h)

	case *wire.TransferCancelHeader:
		a.handleTransferCancel(h)

	case *wire.TransferErrorHeader:
		a.handleTransferError(h)
	}
}

func (a *Agent) installText(text string) {
	a.watcher.NoteRemoteWrite(clipboard.Content{Kind: clipboard.KindText, Text: text})
	if err := a.clip.WriteText(text); err != nil {
		a.callbacks.FireError(status.ErrKindClipboardUnavail, err.Error())
	}
}

func (a *Agent) installImage(png []byte) {
	a.watcher.NoteRemoteWrite(clipboard.Content{Kind: clipboard.KindImage, Image: png})
	if err := a.clip.WriteImage(png); err != nil {
		a.callbacks.FireError(status.ErrKindClipboardUnavail, err.Error())
	}
}

func (a *Agent) installInlineFiles(h *wire.FilesInlineHeader, payload []byte) {
	paths, err := writeInlineFiles(a.downloadDir(), h.Files, payload)
	if err != nil {
		a.callbacks.FireError(status.ErrKindInternal, err.Error())
		return
	}
	a.watcher.NoteRemoteWrite(clipboard.Content{Kind: clipboard.KindFiles, Files: paths})
	if err := a.clip.WriteFiles(paths); err != nil {
		a.callbacks.FireError(status.ErrKindClipboardUnavail, err.Error())
	}
}
