// Package pairing implements the PIN-bootstrapped key agreement that
// establishes a persistent shared secret between two devices, and the
// per-connection derivation of AEAD session keys from it (spec §4.B).
package pairing

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// SharedSecretSize is the length in bytes of the persisted shared secret.
	SharedSecretSize = 32
	// RandomSize is the length in bytes of each side's pairing-time random
	// and of the pairing salt. Handshake nonces are shorter (transport
	// uses 16-byte nonces).
	RandomSize = 32
	// sessionKeySize is the length in bytes of each direction's AEAD key.
	sessionKeySize = 32
)

// GeneratePIN returns a fresh 6-decimal-digit PIN as a zero-padded string,
// e.g. "004217".
func GeneratePIN() (string, error) {
	var b [4]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return "", fmt.Errorf("pairing: generating pin: %w", err)
	}
	n := (uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])) % 1000000
	return fmt.Sprintf("%06d", n), nil
}

// GenerateRandom returns RandomSize fresh random bytes, used as each side's
// pairing-time contribution and as the pairing salt.
func GenerateRandom() ([]byte, error) {
	buf := make([]byte, RandomSize)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("pairing: generating random: %w", err)
	}
	return buf, nil
}

// DeriveSharedSecret combines the PIN, a salt, and both sides' pairing-time
// randoms into the persistent 32-byte shared_secret (spec §4.B). Both
// peers call this with the same inputs in the same order (RunJoiner and
// RunHost fix that order), so both derive the same secret.
//
// This is an HKDF-based construction, not a true PAKE: the PIN never
// crosses the wire, but the salt and both randoms are sent in the clear
// by RunJoiner/RunHost, so an eavesdropper who captures a pairing
// transcript, including a confirm MAC, can search the PIN space offline.
// Spec §9 accepts this tradeoff explicitly.
func DeriveSharedSecret(pin string, salt, randomA, randomB []byte) ([]byte, error) {
	ikm := append([]byte(pin), salt...)
	info := append(append([]byte{}, randomA...), randomB...)
	h := hkdf.New(sha256.New, ikm, salt, info)
	secret := make([]byte, SharedSecretSize)
	if _, err := io.ReadFull(h, secret); err != nil {
		return nil, fmt.Errorf("pairing: deriving shared secret: %w", err)
	}
	return secret, nil
}

// SessionKeys holds the per-direction AEAD keys derived for one
// authenticated connection (spec §4.B). KeyC2S encrypts frames flowing
// from the connector to the acceptor; KeyS2C the reverse.
type SessionKeys struct {
	KeyC2S [sessionKeySize]byte
	KeyS2C [sessionKeySize]byte
}

// DeriveSessionKeys computes SessionKeys from the persistent shared_secret
// and the pair of nonces exchanged in HANDSHAKE_HELLO/HANDSHAKE_CHALLENGE.
// session_material = HKDF-SHA256(ikm=shared_secret, salt=nonceC||nonceS,
// info="yank/v1"), split into key_c2s || key_s2c.
func DeriveSessionKeys(sharedSecret, nonceC, nonceS []byte) (SessionKeys, error) {
	salt := append(append([]byte{}, nonceC...), nonceS...)
	h := hkdf.New(sha256.New, sharedSecret, salt, []byte("yank/v1"))

	material := make([]byte, 2*sessionKeySize)
	if _, err := io.ReadFull(h, material); err != nil {
		return SessionKeys{}, fmt.Errorf("pairing: deriving session keys: %w", err)
	}

	var keys SessionKeys
	copy(keys.KeyC2S[:], material[:sessionKeySize])
	copy(keys.KeyS2C[:], material[sessionKeySize:])
	return keys, nil
}

// ChallengeMAC computes the HMAC-SHA256 proof the connector sends in
// HANDSHAKE_RESPONSE: HMAC(shared_secret, challenge || nonce_c || nonce_s).
func ChallengeMAC(sharedSecret, challenge, nonceC, nonceS []byte) []byte {
	mac := hmac.New(sha256.New, sharedSecret)
	mac.Write(challenge)
	mac.Write(nonceC)
	mac.Write(nonceS)
	return mac.Sum(nil)
}

// VerifyChallengeMAC reports whether mac is the expected proof for the
// given challenge and nonces, using constant-time comparison.
func VerifyChallengeMAC(sharedSecret, challenge, nonceC, nonceS, mac []byte) bool {
	expected := ChallengeMAC(sharedSecret, challenge, nonceC, nonceS)
	return hmac.Equal(expected, mac)
}
