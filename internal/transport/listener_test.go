package transport

import (
	"testing"

	"github.com/nasiridrishi/yank/internal/wire"
)

func TestListener_AcceptCompletesHandshake(t *testing.T) {
	secret := make([]byte, 32)
	for i := range secret {
		secret[i] = byte(i)
	}

	ln, err := Listen("127.0.0.1:0", "server-device", secret)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	type result struct {
		session *Session
		err     error
	}
	acceptCh := make(chan result, 1)
	go func() {
		s, err := ln.Accept()
		acceptCh <- result{s, err}
	}()

	clientSession, err := Connect(ln.Addr().String(), "client-device", secret)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer clientSession.Close()

	res := <-acceptCh
	if res.err != nil {
		t.Fatalf("Accept: %v", res.err)
	}
	defer res.session.Close()

	if err := clientSession.SendMessage(&wire.HeartbeatHeader{Type: wire.Heartbeat}, nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if _, err := res.session.ReceiveMessage(); err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
}

func TestListener_RejectsSecondConnectionWhileOneActive(t *testing.T) {
	secret := make([]byte, 32)
	ln, err := Listen("127.0.0.1:0", "server-device", secret)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	acceptCh := make(chan *Session, 1)
	go func() {
		s, err := ln.Accept()
		if err == nil {
			acceptCh <- s
		}
	}()

	first, err := Connect(ln.Addr().String(), "client-device-1", secret)
	if err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	defer first.Close()
	firstServerSide := <-acceptCh
	defer firstServerSide.Close()

	// Second connector should fail its handshake since the listener drops
	// the raw connection before running one (spec §4.C/§9).
	second, err := Connect(ln.Addr().String(), "client-device-2", secret)
	if err == nil {
		second.Close()
		t.Fatal("expected second Connect to fail while a session is active")
	}
}

