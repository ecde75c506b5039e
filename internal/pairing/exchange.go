package pairing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/nasiridrishi/yank/internal/wire"
)

// ErrWrongPIN is returned by both RunJoiner and RunHost when the PIN
// confirmation MAC does not match — either the joiner typed the wrong PIN,
// or (on the host side) the joiner derived a different secret.
var ErrWrongPIN = errors.New("pairing: pin confirmation failed")

// Result is what a successful three-message exchange produces: the
// negotiated shared secret and the peer's self-reported device id.
type Result struct {
	SharedSecret []byte
	PeerDeviceID string
}

// helloMsg is message 1, joiner -> host.
type helloMsg struct {
	RandomB64 string `json:"random_b64"`
	DeviceID  string `json:"device_id"`
}

// saltMsg is message 2, host -> joiner.
type saltMsg struct {
	SaltB64   string `json:"salt_b64"`
	RandomB64 string `json:"random_b64"`
	DeviceID  string `json:"device_id"`
}

// confirmMsg is message 3 (joiner -> host) and its reply (host -> joiner):
// both carry a MAC proving knowledge of the PIN-derived secret.
type confirmMsg struct {
	MACB64 string `json:"mac_b64"`
}

const confirmContext = "yank/pairing-confirm/v1"

// RunJoiner drives the joiner side of the exchange over conn, given the PIN
// the user typed and this device's own id. It blocks until the exchange
// completes or conn is closed.
func RunJoiner(conn net.Conn, pin, deviceID string) (Result, error) {
	randomJ, err := GenerateRandom()
	if err != nil {
		return Result{}, err
	}

	if err := writeJSON(conn, helloMsg{
		RandomB64: base64.StdEncoding.EncodeToString(randomJ),
		DeviceID:  deviceID,
	}); err != nil {
		return Result{}, fmt.Errorf("pairing: sending hello: %w", err)
	}

	var salt saltMsg
	if err := readJSON(conn, &salt); err != nil {
		return Result{}, fmt.Errorf("pairing: reading salt message: %w", err)
	}
	saltBytes, err := base64.StdEncoding.DecodeString(salt.SaltB64)
	if err != nil {
		return Result{}, fmt.Errorf("pairing: decoding salt: %w", err)
	}
	randomH, err := base64.StdEncoding.DecodeString(salt.RandomB64)
	if err != nil {
		return Result{}, fmt.Errorf("pairing: decoding host random: %w", err)
	}

	secret, err := DeriveSharedSecret(pin, saltBytes, randomJ, randomH)
	if err != nil {
		return Result{}, err
	}

	myMAC := confirmMAC(secret, randomJ, randomH)
	if err := writeJSON(conn, confirmMsg{MACB64: base64.StdEncoding.EncodeToString(myMAC)}); err != nil {
		return Result{}, fmt.Errorf("pairing: sending confirm: %w", err)
	}

	var hostConfirm confirmMsg
	if err := readJSON(conn, &hostConfirm); err != nil {
		return Result{}, fmt.Errorf("pairing: reading host confirm: %w", err)
	}
	hostMAC, err := base64.StdEncoding.DecodeString(hostConfirm.MACB64)
	if err != nil {
		return Result{}, fmt.Errorf("pairing: decoding host mac: %w", err)
	}
	if !macEqual(hostMAC, myMAC) {
		return Result{}, ErrWrongPIN
	}

	return Result{SharedSecret: secret, PeerDeviceID: salt.DeviceID}, nil
}

// RunHost drives the host side of the exchange over conn, given the PIN it
// displayed to the operator and this device's own id.
func RunHost(conn net.Conn, pin, deviceID string) (Result, error) {
	var hello helloMsg
	if err := readJSON(conn, &hello); err != nil {
		return Result{}, fmt.Errorf("pairing: reading hello: %w", err)
	}
	randomJ, err := base64.StdEncoding.DecodeString(hello.RandomB64)
	if err != nil {
		return Result{}, fmt.Errorf("pairing: decoding joiner random: %w", err)
	}

	salt := make([]byte, RandomSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return Result{}, fmt.Errorf("pairing: generating salt: %w", err)
	}
	randomH, err := GenerateRandom()
	if err != nil {
		return Result{}, err
	}

	if err := writeJSON(conn, saltMsg{
		SaltB64:   base64.StdEncoding.EncodeToString(salt),
		RandomB64: base64.StdEncoding.EncodeToString(randomH),
		DeviceID:  deviceID,
	}); err != nil {
		return Result{}, fmt.Errorf("pairing: sending salt message: %w", err)
	}

	secret, err := DeriveSharedSecret(pin, salt, randomJ, randomH)
	if err != nil {
		return Result{}, err
	}

	var joinerConfirm confirmMsg
	if err := readJSON(conn, &joinerConfirm); err != nil {
		return Result{}, fmt.Errorf("pairing: reading joiner confirm: %w", err)
	}
	joinerMAC, err := base64.StdEncoding.DecodeString(joinerConfirm.MACB64)
	if err != nil {
		return Result{}, fmt.Errorf("pairing: decoding joiner mac: %w", err)
	}

	expected := confirmMAC(secret, randomJ, randomH)
	if !macEqual(joinerMAC, expected) {
		// Reply with an empty confirm so the joiner fails too instead of
		// waiting; the host's own MAC is not revealed.
		writeJSON(conn, confirmMsg{})
		return Result{}, ErrWrongPIN
	}

	if err := writeJSON(conn, confirmMsg{MACB64: base64.StdEncoding.EncodeToString(expected)}); err != nil {
		return Result{}, fmt.Errorf("pairing: sending confirm: %w", err)
	}

	return Result{SharedSecret: secret, PeerDeviceID: hello.DeviceID}, nil
}

func confirmMAC(secret, randomJ, randomH []byte) []byte {
	return ChallengeMAC(secret, []byte(confirmContext), randomJ, randomH)
}

func macEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

func writeJSON(w io.Writer, v any) error {
	header, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return wire.WritePlainFrame(w, header, nil)
}

func readJSON(r io.Reader, v any) error {
	header, _, err := wire.ReadPlainFrame(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(header, v)
}
