package transport

import (
	"net"
	"testing"

	"github.com/nasiridrishi/yank/internal/pairing"
	"github.com/nasiridrishi/yank/internal/wire"
)

func pairedSessions(t *testing.T) (client, server *Session) {
	t.Helper()
	secret := make([]byte, 32)
	connA, connB := net.Pipe()
	t.Cleanup(func() { connA.Close(); connB.Close() })

	keys, err := pairing.DeriveSessionKeys(secret, []byte("nonce-client-16b"), []byte("nonce-server-16b"))
	if err != nil {
		t.Fatalf("DeriveSessionKeys: %v", err)
	}

	client, err = newSession(connA, keys, true)
	if err != nil {
		t.Fatalf("newSession client: %v", err)
	}
	server, err = newSession(connB, keys, false)
	if err != nil {
		t.Fatalf("newSession server: %v", err)
	}
	return client, server
}

func TestSession_SendReceive_RoundTrips(t *testing.T) {
	client, server := pairedSessions(t)

	done := make(chan wire.Message, 1)
	errCh := make(chan error, 1)
	go func() {
		msg, err := server.ReceiveMessage()
		if err != nil {
			errCh <- err
			return
		}
		done <- msg
	}()

	if err := client.SendMessage(&wire.TextHeader{Type: wire.Text, Content: "round trip"}, nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	select {
	case err := <-errCh:
		t.Fatalf("ReceiveMessage: %v", err)
	case msg := <-done:
		got, ok := msg.Header.(*wire.TextHeader)
		if !ok {
			t.Fatalf("Header = %T, want *wire.TextHeader", msg.Header)
		}
		if got.Content != "round trip" {
			t.Errorf("Content = %q, want %q", got.Content, "round trip")
		}
	}
}

func TestSession_NonceCountersAreIndependentPerDirection(t *testing.T) {
	client, server := pairedSessions(t)

	if client.sendCounter != 0 || server.sendCounter != 0 {
		t.Fatal("expected counters to start at zero")
	}

	go server.ReceiveMessage()
	if err := client.SendMessage(&wire.HeartbeatHeader{Type: wire.Heartbeat}, nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if client.sendCounter != 1 {
		t.Errorf("client.sendCounter = %d, want 1", client.sendCounter)
	}
	if server.sendCounter != 0 {
		t.Errorf("server.sendCounter = %d, want 0 (unaffected by client sends)", server.sendCounter)
	}
}

func TestSession_TamperedCiphertextFailsAuth(t *testing.T) {
	client, server := pairedSessions(t)

	header, payload, _ := wire.Encode(&wire.TextHeader{Type: wire.Text, Content: "x"}, nil)
	plaintext := wire.EncodePlaintextPayload(header, payload)
	nonce := nonceFor(0)
	ciphertext := client.aeadSend.Seal(nil, nonce, plaintext, nil)
	ciphertext[len(ciphertext)-1] ^= 0xFF // flip a tag byte

	if _, err := server.aeadRecv.Open(nil, nonce, ciphertext, nil); err == nil {
		t.Fatal("expected AEAD Open to fail on tampered ciphertext")
	}
}
