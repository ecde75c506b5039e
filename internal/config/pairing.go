// Package config persists the two JSON files the core reads and writes:
// pairing.json (the paired peer's identity and shared secret) and
// config.json (sync behavior knobs). pairing.json is guarded by an advisory
// file lock so the CLI and the running agent never tear each other's writes;
// config.json is read and written without a lock.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotPaired is returned by LoadPairing when no pairing.json exists.
var ErrNotPaired = errors.New("config: not paired")

// PairingRecord is the on-disk identity of the paired peer (spec §3).
type PairingRecord struct {
	DeviceID        string    `json:"device_id"`
	PeerDeviceID    string    `json:"peer_device_id"`
	PeerName        string    `json:"peer_name"`
	SharedSecretB64 string    `json:"shared_secret_b64"`
	CreatedAt       time.Time `json:"created_at"`
	LastSeen        time.Time `json:"last_seen"`
}

// PairingPath returns the default pairing.json path under the user's home
// directory (~/.yank/pairing.json on POSIX, and the Windows equivalent via
// os.UserHomeDir).
func PairingPath() (string, error) {
	return yankFilePath("pairing.json")
}

// LoadPairing reads and parses the pairing record at path. Returns
// ErrNotPaired if the file does not exist.
func LoadPairing(path string) (*PairingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotPaired
		}
		return nil, fmt.Errorf("opening pairing file: %w", err)
	}
	defer f.Close()

	unlock, err := flock(f)
	if err != nil {
		return nil, fmt.Errorf("locking pairing file: %w", err)
	}
	defer unlock()

	var rec PairingRecord
	if err := json.NewDecoder(f).Decode(&rec); err != nil {
		return nil, fmt.Errorf("parsing pairing file: %w", err)
	}
	return &rec, nil
}

// SavePairing writes rec to path with 0600 permissions, creating parent
// directories as needed.
func SavePairing(path string, rec *PairingRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening pairing file for write: %w", err)
	}
	defer f.Close()

	unlock, err := flock(f)
	if err != nil {
		return fmt.Errorf("locking pairing file: %w", err)
	}
	defer unlock()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("writing pairing file: %w", err)
	}
	return nil
}

// DeletePairing removes the pairing file. It is not an error if the file
// does not already exist.
func DeletePairing(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing pairing file: %w", err)
	}
	return nil
}

func yankFilePath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".yank", name), nil
}
