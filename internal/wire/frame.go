// Package wire implements the length-prefixed typed-message protocol that
// carries every message between two yank peers: a JSON header plus an
// optional raw binary payload, framed with big-endian length prefixes
// (spec §4.A). Messages are modeled as a tagged sum of Go structs — each
// carries its own `Type` field — so the dispatcher does a single switch on
// the decoded type instead of branching ad hoc on an integer code.
package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxTotalLength bounds the size of a single frame (header + payload) to
// 128 MiB, per spec §4.A, to bound memory.
const MaxTotalLength = 128 * 1024 * 1024

// ErrProtocol is returned for any malformed frame: short read, JSON error,
// or a declared length that exceeds MaxTotalLength. The caller must
// terminate the connection on this error (spec §4.A).
var ErrProtocol = errors.New("wire: protocol error")

// protoErrorf wraps a contextual message in ErrProtocol so callers can use
// errors.Is(err, ErrProtocol).
func protoErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrProtocol}, args...)...)
}

// WritePlainFrame writes one unauthenticated frame:
// u32 total_length || u32 header_length || header || payload.
// Used only during the pre-handshake exchange (spec §4.C).
func WritePlainFrame(w io.Writer, header, payload []byte) error {
	totalLength := uint64(4) + uint64(len(header)) + uint64(len(payload))
	if totalLength > MaxTotalLength {
		return protoErrorf("frame of %d bytes exceeds max %d", totalLength, MaxTotalLength)
	}

	buf := make([]byte, 8+len(header))
	binary.BigEndian.PutUint32(buf[0:4], uint32(totalLength))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(header)))
	copy(buf[8:], header)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("writing frame payload: %w", err)
		}
	}
	return nil
}

// ReadPlainFrame reads one unauthenticated frame written by WritePlainFrame.
func ReadPlainFrame(r io.Reader) (header, payload []byte, err error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, nil, protoErrorf("reading total_length: %v", err)
	}
	totalLength := binary.BigEndian.Uint32(lenBuf[:])
	if totalLength > MaxTotalLength {
		return nil, nil, protoErrorf("declared frame length %d exceeds max %d", totalLength, MaxTotalLength)
	}
	if totalLength < 4 {
		return nil, nil, protoErrorf("declared frame length %d too small for header_length field", totalLength)
	}

	body := make([]byte, totalLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, protoErrorf("reading frame body: %v", err)
	}

	headerLength := binary.BigEndian.Uint32(body[0:4])
	if uint64(headerLength) > uint64(totalLength-4) {
		return nil, nil, protoErrorf("header_length %d exceeds remaining frame %d", headerLength, totalLength-4)
	}

	header = body[4 : 4+headerLength]
	payload = body[4+headerLength:]
	return header, payload, nil
}

// WriteSealedFrame writes one post-handshake frame: u32 be cipher_len ||
// ciphertext (which already includes the AEAD tag). The inner plaintext of
// ciphertext is itself a plain frame (header_len || header || payload),
// sealed as a whole by internal/transport.
func WriteSealedFrame(w io.Writer, ciphertext []byte) error {
	if uint64(len(ciphertext)) > MaxTotalLength {
		return protoErrorf("sealed frame of %d bytes exceeds max %d", len(ciphertext), MaxTotalLength)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(ciphertext)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("writing sealed frame length: %w", err)
	}
	if _, err := w.Write(ciphertext); err != nil {
		return fmt.Errorf("writing sealed frame body: %w", err)
	}
	return nil
}

// ReadSealedFrame reads one post-handshake frame written by WriteSealedFrame.
func ReadSealedFrame(r io.Reader) (ciphertext []byte, err error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, protoErrorf("reading cipher_len: %v", err)
	}
	cipherLen := binary.BigEndian.Uint32(lenBuf[:])
	if cipherLen > MaxTotalLength {
		return nil, protoErrorf("declared cipher length %d exceeds max %d", cipherLen, MaxTotalLength)
	}
	ciphertext = make([]byte, cipherLen)
	if _, err := io.ReadFull(r, ciphertext); err != nil {
		return nil, protoErrorf("reading sealed frame body: %v", err)
	}
	return ciphertext, nil
}

// EncodePlaintextPayload packs a frame's inner plaintext as
// u32 header_len || header || payload, the form that gets AEAD-sealed
// as a whole by internal/transport.
func EncodePlaintextPayload(header, payload []byte) []byte {
	buf := make([]byte, 4+len(header)+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(header)))
	copy(buf[4:], header)
	copy(buf[4+len(header):], payload)
	return buf
}

// DecodePlaintextPayload reverses EncodePlaintextPayload.
func DecodePlaintextPayload(plaintext []byte) (header, payload []byte, err error) {
	if len(plaintext) < 4 {
		return nil, nil, protoErrorf("plaintext too short for header_length")
	}
	headerLength := binary.BigEndian.Uint32(plaintext[0:4])
	if uint64(headerLength) > uint64(len(plaintext)-4) {
		return nil, nil, protoErrorf("header_length %d exceeds plaintext %d", headerLength, len(plaintext)-4)
	}
	header = plaintext[4 : 4+headerLength]
	payload = plaintext[4+headerLength:]
	return header, payload, nil
}

// peekType extracts just the "type" field from a header without decoding
// type-specific fields, so the dispatcher can pick the right struct.
func peekType(header []byte) (MessageType, error) {
	var env struct {
		Type MessageType `json:"type"`
	}
	if err := json.NewDecoder(bytes.NewReader(header)).Decode(&env); err != nil {
		return 0, protoErrorf("decoding header type: %v", err)
	}
	return env.Type, nil
}
