package chunked

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// CompressChunk gzip-wraps a chunk's payload when config.CompressionGzip
// is selected (spec expansion: compression_mode). Used for FILE_CHUNK
// bodies only; inline and image payloads are sent uncompressed. The
// FileChunkHeader.Compressed flag tells the receiver whether to reverse it.
func CompressChunk(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("chunked: gzip compressing: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("chunked: closing gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecompressChunk reverses CompressChunk.
func DecompressChunk(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("chunked: opening gzip reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("chunked: decompressing: %w", err)
	}
	return out, nil
}
