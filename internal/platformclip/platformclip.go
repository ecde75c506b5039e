// Package platformclip adapts golang.design/x/clipboard to the sync
// core's clipboard.Adapter capability (spec §4.E). It covers TEXT and
// IMAGE; clipboard file lists have no portable Go API (they're
// Win32 CF_HDROP / NSFilenamesPboardType / GTK-specific), so WriteFiles
// reports ErrUnavailable here; received files stay on disk and the agent
// reports the clipboard as unavailable.
package platformclip

import (
	"context"

	"golang.design/x/clipboard"

	yankclip "github.com/nasiridrishi/yank/internal/clipboard"
)

// Adapter implements yankclip.Adapter over the host's native clipboard.
type Adapter struct{}

// New initializes the native clipboard backend. Must succeed before any
// other Adapter method is used.
func New() (*Adapter, error) {
	if err := clipboard.Init(); err != nil {
		return nil, err
	}
	return &Adapter{}, nil
}

func (a *Adapter) Read() (yankclip.Content, error) {
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		return yankclip.Content{Kind: yankclip.KindImage, Image: img}, nil
	}
	if text := clipboard.Read(clipboard.FmtText); len(text) > 0 {
		return yankclip.Content{Kind: yankclip.KindText, Text: string(text)}, nil
	}
	return yankclip.Content{Kind: yankclip.KindNone}, nil
}

func (a *Adapter) WriteText(text string) error {
	<-clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (a *Adapter) WriteImage(pngBytes []byte) error {
	<-clipboard.Write(clipboard.FmtImage, pngBytes)
	return nil
}

func (a *Adapter) WriteFiles(paths []string) error {
	return yankclip.ErrUnavailable
}

// Subscribe watches the text format for native change notifications;
// image changes still rely on the polling watcher.
func (a *Adapter) Subscribe(fn func()) bool {
	ch := clipboard.Watch(context.Background(), clipboard.FmtText)
	go func() {
		for range ch {
			fn()
		}
	}()
	return true
}
