package main

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nasiridrishi/yank/internal/config"
	"github.com/nasiridrishi/yank/internal/logging"
)

// deviceIDPath returns ~/.yank/device_id, this device's persisted self id.
func deviceIDPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".yank", "device_id"), nil
}

// loadOrCreateDeviceID returns this device's persisted id, generating and
// saving a fresh one on first run.
func loadOrCreateDeviceID() (string, error) {
	path, err := deviceIDPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err == nil {
		return strings.TrimSpace(string(data)), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("reading device id: %w", err)
	}

	id := uuid.New().String()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("creating yank directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id), 0600); err != nil {
		return "", fmt.Errorf("saving device id: %w", err)
	}
	return id, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := "info"
	if verbose {
		level = "debug"
	}
	logger, _ := logging.NewLogger(level, "text", "")
	return logger
}

func loadConfig() (*config.Config, error) {
	path, err := config.ConfigPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

func loadPairingOrExit() (*config.PairingRecord, []byte, int) {
	path, err := config.PairingPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank:", err)
		return nil, nil, exitIOError
	}
	rec, err := config.LoadPairing(path)
	if err != nil {
		if err == config.ErrNotPaired {
			fmt.Fprintln(os.Stderr, "yank: not paired; run \"yank pair\" or \"yank join\" first")
			return nil, nil, exitNotPaired
		}
		fmt.Fprintln(os.Stderr, "yank:", err)
		return nil, nil, exitIOError
	}
	secret, err := base64.StdEncoding.DecodeString(rec.SharedSecretB64)
	if err != nil {
		fmt.Fprintln(os.Stderr, "yank: corrupt pairing record:", err)
		return nil, nil, exitIOError
	}
	return rec, secret, exitOK
}
