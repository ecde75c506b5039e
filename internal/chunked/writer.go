package chunked

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrChecksumMismatch is returned by Finalize when the assembled file's
// SHA-256 does not match the announced checksum (spec §4.H, §7).
var ErrChecksumMismatch = errors.New("chunked: checksum mismatch")

// Writer assembles one file's chunks into a sibling temp file
// (<dest>.part), then atomically renames it into place on Finalize
// (spec §4.H).
type Writer struct {
	destDir      string
	destName     string
	tempPath     string
	f            *os.File
	expectedSum  string
}

// NewWriter opens <destName>.part inside destDir for writing, creating
// destDir if needed. Only destName's base name is used.
func NewWriter(destDir, destName, expectedChecksum string) (*Writer, error) {
	destName = filepath.Base(destName)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("chunked: creating destination dir: %w", err)
	}
	tempPath := filepath.Join(destDir, destName+".part")
	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("chunked: opening %s: %w", tempPath, err)
	}
	return &Writer{
		destDir:     destDir,
		destName:    destName,
		tempPath:    tempPath,
		f:           f,
		expectedSum: expectedChecksum,
	}, nil
}

// WriteChunk writes data at offset, matching the sender's declared chunk
// boundaries (spec §3's ChunkFrame).
func (w *Writer) WriteChunk(offset int64, data []byte) error {
	if _, err := w.f.WriteAt(data, offset); err != nil {
		return fmt.Errorf("chunked: writing chunk at offset %d: %w", offset, err)
	}
	return nil
}

// Finalize verifies the assembled temp file's SHA-256 against the
// expected checksum. On match it atomically renames the temp file to its
// final destination, applying a "(2)", "(3)", ... suffix on collision,
// and returns the final path. On mismatch it deletes the temp file and
// returns ErrChecksumMismatch.
func (w *Writer) Finalize() (string, error) {
	if err := w.f.Sync(); err != nil {
		w.abort()
		return "", fmt.Errorf("chunked: syncing temp file: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return "", fmt.Errorf("chunked: closing temp file: %w", err)
	}

	sum, err := sha256File(w.tempPath)
	if err != nil {
		os.Remove(w.tempPath)
		return "", err
	}
	if sum != w.expectedSum {
		os.Remove(w.tempPath)
		return "", ErrChecksumMismatch
	}

	finalPath := uniqueDestPath(w.destDir, w.destName)
	if err := os.Rename(w.tempPath, finalPath); err != nil {
		return "", fmt.Errorf("chunked: renaming %s to %s: %w", w.tempPath, finalPath, err)
	}
	return finalPath, nil
}

// Abort deletes the temp file without finalizing (spec §4.I,
// TRANSFER_CANCEL handling).
func (w *Writer) Abort() error {
	w.f.Close()
	return w.abort()
}

func (w *Writer) abort() error {
	if err := os.Remove(w.tempPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chunked: removing temp file: %w", err)
	}
	return nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("chunked: opening %s for checksum: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("chunked: hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// uniqueDestPath returns destDir/name, or destDir/name (2), (3), ... if
// name already exists (spec §4.H collision policy).
func uniqueDestPath(destDir, name string) string {
	candidate := filepath.Join(destDir, name)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate = filepath.Join(destDir, fmt.Sprintf("%s (%d)%s", base, n, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
