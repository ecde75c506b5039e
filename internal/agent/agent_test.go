package agent

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nasiridrishi/yank/internal/chunked"
	"github.com/nasiridrishi/yank/internal/clipboard"
	"github.com/nasiridrishi/yank/internal/config"
	"github.com/nasiridrishi/yank/internal/ignorefile"
	"github.com/nasiridrishi/yank/internal/status"
	"github.com/nasiridrishi/yank/internal/transport"
	"github.com/nasiridrishi/yank/internal/wire"
)

func testAgent(t *testing.T, clip clipboard.Adapter, cb status.Callbacks) *Agent {
	t.Helper()
	cfg := config.Default()
	return New(Options{
		DeviceID:     "device-a",
		Pairing:      &config.PairingRecord{DeviceID: "device-a", PeerDeviceID: "device-b"},
		SharedSecret: make([]byte, 32),
		Config:       cfg,
		Logger:       slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		Clipboard:    clip,
		Ignore:       &ignorefile.Filter{},
		Callbacks:    cb,
		DownloadDir:  t.TempDir(),
	})
}

// pairedSessions builds two authenticated Sessions over a real TCP
// loopback connection, standing in for what Agent.Run's listener/dialer
// workers would otherwise establish.
func pairedSessions(t *testing.T) (client, server *transport.Session) {
	t.Helper()
	secret := make([]byte, 32)

	ln, err := transport.Listen("127.0.0.1:0", "server-device", secret)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	serverCh := make(chan *transport.Session, 1)
	go func() {
		s, err := ln.Accept()
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		serverCh <- s
	}()

	clientSession, err := transport.Connect(ln.Addr().String(), "client-device", secret)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { clientSession.Close() })

	serverSession := <-serverCh
	t.Cleanup(func() { serverSession.Close() })
	return clientSession, serverSession
}

func TestDispatchInbound_TextInstallsToClipboard(t *testing.T) {
	clip := clipboard.NewMemoryAdapter()
	a := testAgent(t, clip, status.Callbacks{})
	client, server := pairedSessions(t)

	go client.SendMessage(&wire.TextHeader{Type: wire.Text, Content: "hello"}, nil)
	msg, err := server.ReceiveMessage()
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	a.dispatchInbound(context.Background(), server, msg)

	content, _ := clip.Read()
	if content.Text != "hello" {
		t.Errorf("clipboard text = %q, want %q", content.Text, "hello")
	}
}

func TestDispatchInbound_ImageInstallsToClipboard(t *testing.T) {
	clip := clipboard.NewMemoryAdapter()
	a := testAgent(t, clip, status.Callbacks{})
	client, server := pairedSessions(t)

	png := []byte{0x89, 'P', 'N', 'G'}
	go client.SendMessage(&wire.ImageHeader{Type: wire.Image, Format: "png"}, png)
	msg, err := server.ReceiveMessage()
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	a.dispatchInbound(context.Background(), server, msg)

	content, _ := clip.Read()
	if string(content.Image) != string(png) {
		t.Errorf("clipboard image = %v, want %v", content.Image, png)
	}
}

func TestDispatchInbound_FilesInlineWritesAndInstalls(t *testing.T) {
	clip := clipboard.NewMemoryAdapter()
	a := testAgent(t, clip, status.Callbacks{})
	client, server := pairedSessions(t)

	payload := append([]byte("hello"), []byte("world!")...)
	files := []wire.FileMetadata{{Name: "a.txt", Size: 5}, {Name: "b.txt", Size: 6}}
	go client.SendMessage(&wire.FilesInlineHeader{Type: wire.FilesInline, Files: files}, payload)
	msg, err := server.ReceiveMessage()
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	a.dispatchInbound(context.Background(), server, msg)

	content, _ := clip.Read()
	if len(content.Files) != 2 {
		t.Fatalf("len(content.Files) = %d, want 2", len(content.Files))
	}
}

func TestFileTransfer_AnnounceRequestChunkComplete(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.bin")
	data := []byte("the quick brown fox jumps over the lazy dog")
	if err := os.WriteFile(srcPath, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var announced, completed bool
	var completedPaths []string
	cb := status.Callbacks{
		OnAnnounced: func(transferID string, files []wire.FileMetadata) { announced = true },
		OnComplete: func(transferID string, paths []string) {
			completed = true
			completedPaths = paths
		},
	}

	sender := testAgent(t, clipboard.NewMemoryAdapter(), status.Callbacks{})
	receiver := testAgent(t, clipboard.NewMemoryAdapter(), cb)

	senderConn, receiverConn := pairedSessions(t)

	sum, err := sha256File(srcPath)
	if err != nil {
		t.Fatalf("sha256File: %v", err)
	}
	files := []wire.FileMetadata{{Name: "source.bin", Size: int64(len(data)), Checksum: sum}}
	sender.registry.RegisterAnnounced("xfer-1", files, []string{srcPath})

	// Receiver processes FILE_ANNOUNCE, which triggers FILE_REQUEST back
	// over the same connection.
	go senderConn.SendMessage(&wire.FileAnnounceHeader{Type: wire.FileAnnounce, TransferID: "xfer-1", Files: files}, nil)
	msg, err := receiverConn.ReceiveMessage()
	if err != nil {
		t.Fatalf("ReceiveMessage (announce): %v", err)
	}
	receiver.dispatchInbound(context.Background(), receiverConn, msg)
	if !announced {
		t.Error("expected OnAnnounced to fire")
	}

	// Sender receives the FILE_REQUEST and streams chunks synchronously
	// (normally run in a goroutine by dispatchInbound's FileRequestHeader case).
	reqMsg, err := senderConn.ReceiveMessage()
	if err != nil {
		t.Fatalf("ReceiveMessage (request): %v", err)
	}
	req, ok := reqMsg.Header.(*wire.FileRequestHeader)
	if !ok {
		t.Fatalf("expected FileRequestHeader, got %T", reqMsg.Header)
	}
	done := make(chan struct{})
	go func() {
		sender.streamTransfer(context.Background(), senderConn, req.TransferID)
		close(done)
	}()

	// Drain chunk + complete frames on the receiver side.
	for {
		msg, err := receiverConn.ReceiveMessage()
		if err != nil {
			t.Fatalf("ReceiveMessage (chunk/complete): %v", err)
		}
		switch h := msg.Header.(type) {
		case *wire.FileChunkHeader:
			receiver.handleFileChunk(h, msg.Payload)
		case *wire.FileCompleteHeader:
			receiver.handleFileComplete(h)
		}
		if completed {
			break
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("streamTransfer did not finish")
	}

	if len(completedPaths) != 1 {
		t.Fatalf("completedPaths = %v, want 1 entry", completedPaths)
	}
	got, err := os.ReadFile(completedPaths[0])
	if err != nil {
		t.Fatalf("reading completed file: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("completed file content = %q, want %q", got, data)
	}
}

// TestFileTransfer_MultiFileFinalizesEachIndependently guards against
// per-file byte counts being confused with the transfer-wide total: a
// second file's first chunk must not finalize it against the first
// file's size.
func TestFileTransfer_MultiFileFinalizesEachIndependently(t *testing.T) {
	dir := t.TempDir()

	dataA := make([]byte, 3*1024*1024)
	for i := range dataA {
		dataA[i] = byte(i)
	}
	dataB := make([]byte, 2*1024*1024)
	for i := range dataB {
		dataB[i] = byte(255 - i)
	}
	pathA := filepath.Join(dir, "a.bin")
	pathB := filepath.Join(dir, "b.bin")
	if err := os.WriteFile(pathA, dataA, 0644); err != nil {
		t.Fatalf("WriteFile a: %v", err)
	}
	if err := os.WriteFile(pathB, dataB, 0644); err != nil {
		t.Fatalf("WriteFile b: %v", err)
	}

	var completed bool
	var completedPaths []string
	cb := status.Callbacks{
		OnComplete: func(transferID string, paths []string) {
			completed = true
			completedPaths = paths
		},
	}

	sender := testAgent(t, clipboard.NewMemoryAdapter(), status.Callbacks{})
	receiver := testAgent(t, clipboard.NewMemoryAdapter(), cb)
	senderConn, receiverConn := pairedSessions(t)

	sumA, err := sha256File(pathA)
	if err != nil {
		t.Fatalf("sha256File a: %v", err)
	}
	sumB, err := sha256File(pathB)
	if err != nil {
		t.Fatalf("sha256File b: %v", err)
	}
	files := []wire.FileMetadata{
		{Name: "a.bin", Size: int64(len(dataA)), Checksum: sumA},
		{Name: "b.bin", Size: int64(len(dataB)), Checksum: sumB},
	}
	sender.registry.RegisterAnnounced("xfer-multi", files, []string{pathA, pathB})
	receiver.registry.RegisterPending("xfer-multi", files)
	receiver.recvMu.Lock()
	receiver.recv["xfer-multi"] = &recvTransfer{
		writers:   make(map[int]*chunked.Writer),
		received:  make(map[int]int64),
		finalized: make(map[int]bool),
		tracker:   status.NewProgressTracker(cb, "xfer-multi", totalFileSize(files)),
	}
	receiver.recvMu.Unlock()

	done := make(chan struct{})
	go func() {
		sender.streamTransfer(context.Background(), senderConn, "xfer-multi")
		close(done)
	}()

	for {
		msg, err := receiverConn.ReceiveMessage()
		if err != nil {
			t.Fatalf("ReceiveMessage (chunk/complete): %v", err)
		}
		switch h := msg.Header.(type) {
		case *wire.FileChunkHeader:
			receiver.handleFileChunk(h, msg.Payload)
		case *wire.FileCompleteHeader:
			receiver.handleFileComplete(h)
		}
		if completed {
			break
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("streamTransfer did not finish")
	}

	if len(completedPaths) != 2 {
		t.Fatalf("completedPaths = %v, want 2 entries", completedPaths)
	}
	for _, want := range []struct {
		name string
		data []byte
	}{{"a.bin", dataA}, {"b.bin", dataB}} {
		var found bool
		for _, p := range completedPaths {
			if filepath.Base(p) == want.name {
				found = true
				got, err := os.ReadFile(p)
				if err != nil {
					t.Fatalf("reading %s: %v", p, err)
				}
				if string(got) != string(want.data) {
					t.Errorf("%s content mismatch (len got=%d want=%d)", want.name, len(got), len(want.data))
				}
			}
		}
		if !found {
			t.Errorf("completedPaths missing %s: %v", want.name, completedPaths)
		}
	}
}

// TestFileTransfer_ZeroByteFileIsFinalized guards against a zero-byte
// file (no FILE_CHUNK ever sent for it) being silently dropped on
// FILE_COMPLETE.
func TestFileTransfer_ZeroByteFileIsFinalized(t *testing.T) {
	dir := t.TempDir()
	emptyPath := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(emptyPath, nil, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var completed bool
	var completedPaths []string
	cb := status.Callbacks{
		OnComplete: func(transferID string, paths []string) {
			completed = true
			completedPaths = paths
		},
	}

	sender := testAgent(t, clipboard.NewMemoryAdapter(), status.Callbacks{})
	receiver := testAgent(t, clipboard.NewMemoryAdapter(), cb)
	senderConn, receiverConn := pairedSessions(t)

	emptySum, err := sha256File(emptyPath)
	if err != nil {
		t.Fatalf("sha256File: %v", err)
	}
	files := []wire.FileMetadata{{Name: "empty.txt", Size: 0, Checksum: emptySum}}
	sender.registry.RegisterAnnounced("xfer-empty", files, []string{emptyPath})
	receiver.registry.RegisterPending("xfer-empty", files)
	receiver.recvMu.Lock()
	receiver.recv["xfer-empty"] = &recvTransfer{
		writers:   make(map[int]*chunked.Writer),
		received:  make(map[int]int64),
		finalized: make(map[int]bool),
		tracker:   status.NewProgressTracker(cb, "xfer-empty", 0),
	}
	receiver.recvMu.Unlock()

	done := make(chan struct{})
	go func() {
		sender.streamTransfer(context.Background(), senderConn, "xfer-empty")
		close(done)
	}()

	for {
		msg, err := receiverConn.ReceiveMessage()
		if err != nil {
			t.Fatalf("ReceiveMessage (chunk/complete): %v", err)
		}
		switch h := msg.Header.(type) {
		case *wire.FileChunkHeader:
			receiver.handleFileChunk(h, msg.Payload)
		case *wire.FileCompleteHeader:
			receiver.handleFileComplete(h)
		}
		if completed {
			break
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("streamTransfer did not finish")
	}

	if len(completedPaths) != 1 {
		t.Fatalf("completedPaths = %v, want 1 entry (the zero-byte file)", completedPaths)
	}
	info, err := os.Stat(completedPaths[0])
	if err != nil {
		t.Fatalf("stat completed file: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("completed file size = %d, want 0", info.Size())
	}
}
