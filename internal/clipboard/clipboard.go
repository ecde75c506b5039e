// Package clipboard defines the capability the sync core consumes from
// the platform layer (spec §4.E): reading and writing clipboard content,
// and optionally subscribing to native change notifications.
package clipboard

import "errors"

// ErrUnavailable is returned by Write* methods when the platform
// clipboard cannot currently be accessed (spec §7's ClipboardUnavailable).
var ErrUnavailable = errors.New("clipboard: unavailable")

// Kind classifies the variant carried by Content.
type Kind int

const (
	KindNone Kind = iota
	KindText
	KindImage
	KindFiles
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "TEXT"
	case KindImage:
		return "IMAGE"
	case KindFiles:
		return "FILES"
	default:
		return "NONE"
	}
}

// Content is the tagged-union clipboard payload returned by Read (spec
// §4.E). Exactly one of Text/Image/Files is meaningful, selected by Kind.
type Content struct {
	Kind  Kind
	Text  string
	Image []byte   // raw bytes as found on the clipboard, any format
	Files []string // absolute paths
}

// Adapter is the platform capability the sync core depends on. A real
// implementation lives outside this module (Win32/AppKit/GTK, per spec
// §9); MemoryAdapter below is a reference implementation used by tests
// and anywhere an in-process clipboard is sufficient.
type Adapter interface {
	Read() (Content, error)
	WriteText(text string) error
	WriteImage(pngBytes []byte) error
	WriteFiles(paths []string) error

	// Subscribe registers fn to be called on native clipboard change
	// notifications. Returns false if the platform has no such
	// notification and the caller must fall back to polling Read.
	Subscribe(fn func()) (supported bool)
}
