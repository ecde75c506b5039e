package transport

import (
	"fmt"
	"net"
	"sync/atomic"
)

// Listener accepts inbound connections and enforces spec §4.C's rule that
// exactly one authenticated connection is active at a time: a second
// inbound connection is accepted only if none currently exists or the
// existing one has failed liveness.
type Listener struct {
	ln       net.Listener
	deviceID string
	secret   []byte

	active atomic.Pointer[Session]
}

// Listen opens a TCP listener on addr (host:port, e.g. ":9876").
func Listen(addr, deviceID string, sharedSecret []byte) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listening on %s: %w", addr, err)
	}
	return &Listener{ln: ln, deviceID: deviceID, secret: sharedSecret}, nil
}

// Accept blocks for the next inbound connection, runs the acceptor
// handshake, and returns the resulting Session. If an authenticated
// session is already active, the new connection is closed immediately,
// before any handshake runs, and Accept waits for the next one.
// onHandshakeStart, if given, fires once a connection has passed the
// single-active-session gate and the handshake is about to begin —
// callers use it to enter AUTHENTICATING (spec §4.I's state diagram).
func (l *Listener) Accept(onHandshakeStart ...func()) (*Session, error) {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return nil, fmt.Errorf("transport: accept: %w", err)
		}

		if existing := l.active.Load(); existing != nil && !existing.isClosed() {
			conn.Close()
			continue
		}

		for _, fn := range onHandshakeStart {
			fn()
		}

		session, err := Accept(conn, l.deviceID, l.secret)
		if err != nil {
			// Handshake failed; give the listener loop another chance.
			continue
		}
		l.active.Store(session)
		return session, nil
	}
}

// Close closes the underlying listener.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Release clears the active-session slot, allowing a new inbound
// connection to be accepted. Call this once the caller has observed the
// session close or go degraded.
func (l *Listener) Release(s *Session) {
	l.active.CompareAndSwap(s, nil)
}
