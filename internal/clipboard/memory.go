package clipboard

import "sync"

// MemoryAdapter is an in-process Adapter backed by a mutex-guarded field.
// It never fails and never notifies natively (Subscribe always reports
// unsupported), so callers exercise the polling path — useful for tests
// and for platforms with no native clipboard.
type MemoryAdapter struct {
	mu      sync.Mutex
	current Content
}

// NewMemoryAdapter returns an empty MemoryAdapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{current: Content{Kind: KindNone}}
}

func (m *MemoryAdapter) Read() (Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, nil
}

func (m *MemoryAdapter) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Content{Kind: KindText, Text: text}
	return nil
}

func (m *MemoryAdapter) WriteImage(pngBytes []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), pngBytes...)
	m.current = Content{Kind: KindImage, Image: cp}
	return nil
}

func (m *MemoryAdapter) WriteFiles(paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]string(nil), paths...)
	m.current = Content{Kind: KindFiles, Files: cp}
	return nil
}

func (m *MemoryAdapter) Subscribe(fn func()) bool {
	return false
}

// Set directly installs content as given, without the slice copies the
// Write* methods make — used by tests to simulate a local user copy.
func (m *MemoryAdapter) Set(c Content) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = c
}
