package transport

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net"

	"github.com/nasiridrishi/yank/internal/pairing"
	"github.com/nasiridrishi/yank/internal/wire"
)

const nonceSize = 16

// Connect dials addr, runs the connector side of the handshake (spec
// §4.C steps 1 and 3), and returns an authenticated Session.
// onHandshakeStart, if given, fires once the TCP connection is up and the
// handshake is about to begin — callers use it to enter AUTHENTICATING
// (spec §4.I's state diagram).
func Connect(addr, deviceID string, sharedSecret []byte, onHandshakeStart ...func()) (*Session, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	for _, fn := range onHandshakeStart {
		fn()
	}

	session, err := connectorHandshake(conn, deviceID, sharedSecret)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return session, nil
}

// Accept runs the acceptor side of the handshake (spec §4.C steps 2 and
// 4) over an already-accepted net.Conn.
func Accept(conn net.Conn, deviceID string, sharedSecret []byte) (*Session, error) {
	session, err := acceptorHandshake(conn, deviceID, sharedSecret)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return session, nil
}

func connectorHandshake(conn net.Conn, deviceID string, sharedSecret []byte) (*Session, error) {
	nonceC, err := randomNonce()
	if err != nil {
		return nil, err
	}

	if err := writeHeader(conn, &wire.HelloHeader{
		Type:     wire.HandshakeHello,
		NonceC:   base64.StdEncoding.EncodeToString(nonceC),
		DeviceID: deviceID,
	}); err != nil {
		return nil, fmt.Errorf("transport: sending hello: %w", err)
	}

	var challenge wire.ChallengeHeader
	if err := readHeader(conn, &challenge); err != nil {
		return nil, fmt.Errorf("transport: reading challenge: %w", err)
	}
	nonceS, err := base64.StdEncoding.DecodeString(challenge.NonceS)
	if err != nil {
		return nil, fmt.Errorf("transport: decoding nonce_s: %w", err)
	}
	challengeBytes, err := base64.StdEncoding.DecodeString(challenge.Challenge)
	if err != nil {
		return nil, fmt.Errorf("transport: decoding challenge: %w", err)
	}

	mac := pairing.ChallengeMAC(sharedSecret, challengeBytes, nonceC, nonceS)
	if err := writeHeader(conn, &wire.ResponseHeader{
		Type: wire.HandshakeResponse,
		MAC:  base64.StdEncoding.EncodeToString(mac),
	}); err != nil {
		return nil, fmt.Errorf("transport: sending response: %w", err)
	}

	var ok wire.OKHeader
	if err := readHeader(conn, &ok); err != nil {
		return nil, fmt.Errorf("transport: reading handshake ok: %w", err)
	}
	if ok.Type != wire.HandshakeOK {
		return nil, ErrAuth
	}

	keys, err := pairing.DeriveSessionKeys(sharedSecret, nonceC, nonceS)
	if err != nil {
		return nil, err
	}
	return newSession(conn, keys, true)
}

func acceptorHandshake(conn net.Conn, deviceID string, sharedSecret []byte) (*Session, error) {
	var hello wire.HelloHeader
	if err := readHeader(conn, &hello); err != nil {
		return nil, fmt.Errorf("transport: reading hello: %w", err)
	}
	nonceC, err := base64.StdEncoding.DecodeString(hello.NonceC)
	if err != nil {
		return nil, fmt.Errorf("transport: decoding nonce_c: %w", err)
	}

	nonceS, err := randomNonce()
	if err != nil {
		return nil, err
	}
	challengeBytes := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, challengeBytes); err != nil {
		return nil, fmt.Errorf("transport: generating challenge: %w", err)
	}

	if err := writeHeader(conn, &wire.ChallengeHeader{
		Type:      wire.HandshakeChallenge,
		NonceS:    base64.StdEncoding.EncodeToString(nonceS),
		Challenge: base64.StdEncoding.EncodeToString(challengeBytes),
	}); err != nil {
		return nil, fmt.Errorf("transport: sending challenge: %w", err)
	}

	var resp wire.ResponseHeader
	if err := readHeader(conn, &resp); err != nil {
		return nil, fmt.Errorf("transport: reading response: %w", err)
	}
	macBytes, err := base64.StdEncoding.DecodeString(resp.MAC)
	if err != nil {
		return nil, fmt.Errorf("transport: decoding mac: %w", err)
	}
	if !pairing.VerifyChallengeMAC(sharedSecret, challengeBytes, nonceC, nonceS, macBytes) {
		return nil, ErrAuth
	}

	if err := writeHeader(conn, &wire.OKHeader{Type: wire.HandshakeOK}); err != nil {
		return nil, fmt.Errorf("transport: sending handshake ok: %w", err)
	}

	keys, err := pairing.DeriveSessionKeys(sharedSecret, nonceC, nonceS)
	if err != nil {
		return nil, err
	}
	return newSession(conn, keys, false)
}

func randomNonce() ([]byte, error) {
	buf := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("transport: generating nonce: %w", err)
	}
	return buf, nil
}

func writeHeader(w io.Writer, header any) error {
	headerBytes, _, err := wire.Encode(header, nil)
	if err != nil {
		return err
	}
	return wire.WritePlainFrame(w, headerBytes, nil)
}

func readHeader(r io.Reader, dst any) error {
	headerBytes, _, err := wire.ReadPlainFrame(r)
	if err != nil {
		return err
	}
	msg, err := wire.Decode(headerBytes, nil)
	if err != nil {
		return err
	}
	return assignHeader(msg.Header, dst)
}

// assignHeader copies the concrete decoded header (always a pointer) into
// dst, which callers pass as a pointer to the expected type.
func assignHeader(src, dst any) error {
	switch d := dst.(type) {
	case *wire.HelloHeader:
		s, ok := src.(*wire.HelloHeader)
		if !ok {
			return fmt.Errorf("transport: expected HelloHeader, got %T", src)
		}
		*d = *s
	case *wire.ChallengeHeader:
		s, ok := src.(*wire.ChallengeHeader)
		if !ok {
			return fmt.Errorf("transport: expected ChallengeHeader, got %T", src)
		}
		*d = *s
	case *wire.ResponseHeader:
		s, ok := src.(*wire.ResponseHeader)
		if !ok {
			return fmt.Errorf("transport: expected ResponseHeader, got %T", src)
		}
		*d = *s
	case *wire.OKHeader:
		s, ok := src.(*wire.OKHeader)
		if !ok {
			return fmt.Errorf("transport: expected OKHeader, got %T", src)
		}
		*d = *s
	default:
		return fmt.Errorf("transport: unsupported header destination %T", dst)
	}
	return nil
}
