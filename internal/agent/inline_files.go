package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nasiridrishi/yank/internal/wire"
)

// writeInlineFiles splits a FILES_INLINE payload by each file's declared
// size (in Files order) and writes them into destDir, returning the final
// paths. Checksums are not re-verified here: a small inline transfer rides
// the same AEAD-authenticated channel as everything else, so a mismatch
// would mean a local decode bug rather than tampering.
func writeInlineFiles(destDir string, files []wire.FileMetadata, payload []byte) ([]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("agent: creating download dir: %w", err)
	}

	paths := make([]string, 0, len(files))
	offset := int64(0)
	for _, f := range files {
		if offset+f.Size > int64(len(payload)) {
			return nil, fmt.Errorf("agent: inline payload shorter than declared file sizes")
		}
		data := payload[offset : offset+f.Size]
		offset += f.Size

		path := uniquePath(destDir, filepath.Base(f.Name))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("agent: writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// uniquePath mirrors internal/chunked's collision-suffix policy for files
// written directly rather than through a Writer (spec §4.H).
func uniquePath(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, n, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
