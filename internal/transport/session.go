// Package transport implements the authenticated, AEAD-sealed TCP channel
// between two paired yank devices: the PIN-derived handshake, per-frame
// encryption, heartbeats, and the single-connection reconnect supervisor
// (spec §4.C).
package transport

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nasiridrishi/yank/internal/pairing"
	"github.com/nasiridrishi/yank/internal/wire"
)

// ErrAuth is returned whenever a decrypt or handshake-proof check fails.
// The caller must close the connection immediately on this error — it
// never leaks partial plaintext (spec §7).
var ErrAuth = errors.New("transport: authentication failed")

// direction distinguishes the two independent AEAD nonce counters of a
// session: one per flow direction, never shared.
type direction int

const (
	dirC2S direction = iota
	dirS2C
)

// Session is one authenticated, AEAD-sealed connection. Safe for
// concurrent SendMessage calls from multiple goroutines; ReceiveMessage
// must be called from a single reader goroutine (matches the Go net.Conn
// read contract).
type Session struct {
	conn net.Conn

	aeadSend cipher.AEAD
	aeadRecv cipher.AEAD

	sendCounter uint64 // atomic via mutex below; monotone, never reused
	recvCounter uint64

	// IsConnector records which side of the handshake we were, since send
	// and receive keys are asymmetric (key_c2s vs key_s2c).
	isConnector bool

	writeMu  sync.Mutex
	lastRecv atomic.Int64 // unix nanos of last successfully decrypted frame
	closed   atomic.Bool
}

// newSession builds a Session from negotiated SessionKeys, choosing which
// key seals outbound frames based on which side of the handshake we were.
func newSession(conn net.Conn, keys pairing.SessionKeys, isConnector bool) (*Session, error) {
	var sendKey, recvKey [32]byte
	if isConnector {
		sendKey, recvKey = keys.KeyC2S, keys.KeyS2C
	} else {
		sendKey, recvKey = keys.KeyS2C, keys.KeyC2S
	}

	aeadSend, err := newGCM(sendKey[:])
	if err != nil {
		return nil, fmt.Errorf("transport: building send AEAD: %w", err)
	}
	aeadRecv, err := newGCM(recvKey[:])
	if err != nil {
		return nil, fmt.Errorf("transport: building receive AEAD: %w", err)
	}

	s := &Session{
		conn:        conn,
		aeadSend:    aeadSend,
		aeadRecv:    aeadRecv,
		isConnector: isConnector,
	}
	s.lastRecv.Store(time.Now().UnixNano())
	return s, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// nonceFor builds the 96-bit AEAD nonce for counter: u32 zero || u64 be
// counter (spec §4.B).
func nonceFor(counter uint64) []byte {
	nonce := make([]byte, 12)
	binary.BigEndian.PutUint64(nonce[4:], counter)
	return nonce
}

// SendMessage encodes, seals, and writes one message. Safe to call from
// multiple goroutines; writes are serialized and the nonce counter is
// incremented exactly once per frame actually written.
func (s *Session) SendMessage(header any, payload []byte) error {
	headerBytes, payloadBytes, err := wire.Encode(header, payload)
	if err != nil {
		return err
	}
	plaintext := wire.EncodePlaintextPayload(headerBytes, payloadBytes)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	nonce := nonceFor(s.sendCounter)
	ciphertext := s.aeadSend.Seal(nil, nonce, plaintext, nil)
	s.sendCounter++

	return wire.WriteSealedFrame(s.conn, ciphertext)
}

// ReceiveMessage reads, unseals, and decodes one message. Must be called
// from a single goroutine per Session (the net.Conn read side is not
// reentrant). A decrypt failure returns ErrAuth and the caller must close
// the connection.
func (s *Session) ReceiveMessage() (wire.Message, error) {
	ciphertext, err := wire.ReadSealedFrame(s.conn)
	if err != nil {
		return wire.Message{}, err
	}

	nonce := nonceFor(s.recvCounter)
	plaintext, err := s.aeadRecv.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return wire.Message{}, ErrAuth
	}
	s.recvCounter++

	headerBytes, payloadBytes, err := wire.DecodePlaintextPayload(plaintext)
	if err != nil {
		return wire.Message{}, err
	}

	s.lastRecv.Store(time.Now().UnixNano())
	return wire.Decode(headerBytes, payloadBytes)
}

// IdleFor returns how long it has been since the last frame was
// successfully received (used by the heartbeat watchdog).
func (s *Session) IdleFor() time.Duration {
	return time.Since(time.Unix(0, s.lastRecv.Load()))
}

// Close closes the underlying connection, unblocking any in-flight read.
func (s *Session) Close() error {
	s.closed.Store(true)
	return s.conn.Close()
}

// isClosed reports whether Close has been called on this session.
func (s *Session) isClosed() bool {
	return s.closed.Load()
}

// RemoteAddr returns the underlying connection's remote address.
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}
