package watcher

import (
	"testing"
	"time"

	"github.com/nasiridrishi/yank/internal/clipboard"
)

func TestWatcher_EmitsOnChangeOnly(t *testing.T) {
	adapter := clipboard.NewMemoryAdapter()
	w := New(adapter, 10*1024*1024, 0)

	var changes []Change
	adapter.Set(clipboard.Content{Kind: clipboard.KindText, Text: "first"})
	w.poll(func(c Change) { changes = append(changes, c) })
	w.poll(func(c Change) { changes = append(changes, c) }) // same value again

	if len(changes) != 1 {
		t.Fatalf("len(changes) = %d, want 1 (no duplicate emission)", len(changes))
	}
	if changes[0].Content.Text != "first" {
		t.Errorf("Content.Text = %q, want %q", changes[0].Content.Text, "first")
	}
}

func TestWatcher_EchoMaskSuppressesRemoteWrite(t *testing.T) {
	adapter := clipboard.NewMemoryAdapter()
	w := New(adapter, 10*1024*1024, 0)

	remote := clipboard.Content{Kind: clipboard.KindText, Text: "from peer"}
	w.NoteRemoteWrite(remote)
	adapter.Set(remote)

	var calls int
	w.poll(func(c Change) { calls++ })
	if calls != 0 {
		t.Errorf("expected echo mask to suppress emission, got %d calls", calls)
	}
}

func TestWatcher_EchoMaskExpires(t *testing.T) {
	adapter := clipboard.NewMemoryAdapter()
	w := New(adapter, 10*1024*1024, 0)

	remote := clipboard.Content{Kind: clipboard.KindText, Text: "from peer"}
	w.NoteRemoteWrite(remote)
	w.echoMaskUntil = time.Now().Add(-time.Second) // force expiry
	adapter.Set(remote)

	var calls int
	w.poll(func(c Change) { calls++ })
	if calls != 1 {
		t.Errorf("expected emission after echo mask expiry, got %d calls", calls)
	}
}

func TestClassify_TextAndImage(t *testing.T) {
	if got := classify(clipboard.Content{Kind: clipboard.KindText}, 1024); got != ClassifyText {
		t.Errorf("classify(TEXT) = %v, want ClassifyText", got)
	}
	if got := classify(clipboard.Content{Kind: clipboard.KindImage}, 1024); got != ClassifyImage {
		t.Errorf("classify(IMAGE) = %v, want ClassifyImage", got)
	}
}

func TestClassifyFilesBySize_Threshold(t *testing.T) {
	if got := ClassifyFilesBySize(500, 1000); got != ClassifyFilesInline {
		t.Errorf("below threshold = %v, want ClassifyFilesInline", got)
	}
	if got := ClassifyFilesBySize(1000, 1000); got != ClassifyFilesLarge {
		t.Errorf("at threshold = %v, want ClassifyFilesLarge", got)
	}
}
