// Package imaging normalizes clipboard image bytes to PNG before an
// outbound IMAGE frame (spec §4.L).
package imaging

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
)

// Normalized is the result of normalizing one clipboard image.
type Normalized struct {
	PNG    []byte // re-encoded PNG bytes, or the original bytes on fallback
	Width  int
	Height int
	// Format is "png" on success, or the caller-declared format on
	// fallback (spec §4.L: "send original bytes with declared format").
	Format string
}

func init() {
	image.RegisterFormat("webp", "RIFF????WEBP", webp.Decode, webp.DecodeConfig)
	image.RegisterFormat("bmp", "BM", bmp.Decode, bmp.DecodeConfig)
	// gif/jpeg/png registered by their own packages' init().
	_ = gif.Decode
	_ = jpeg.Decode
	_ = png.Decode
}

// Normalize decodes raw image bytes (PNG, JPEG, GIF, BMP, or WEBP) and
// re-encodes as PNG. If decoding fails, it falls back to returning the
// original bytes unchanged with declaredFormat so the caller can still
// send something useful (spec §4.L).
func Normalize(raw []byte, declaredFormat string) Normalized {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Normalized{PNG: raw, Format: declaredFormat}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Normalized{PNG: raw, Format: declaredFormat}
	}

	bounds := img.Bounds()
	return Normalized{
		PNG:    buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: "png",
	}
}
