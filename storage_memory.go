package ddlog

import (
	"fmt"
	"io"
	"slices"
)

// NewMemoryFileSystem returns an empty MemoryFileSystem
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{files: make(map[string]*memoryFile)}
}

// OpenFile opens an existing file
func (m *MemoryFileSystem) OpenFile(path string) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLogNotFound)
	}
	return &memoryHandle{fs: m, file: file}, nil
}

// CreateFile creates or truncates a file
func (m *MemoryFileSystem) CreateFile(path string) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file := &memoryFile{}
	m.files[path] = file
	return &memoryHandle{fs: m, file: file}, nil
}

// Remove deletes a file
func (m *MemoryFileSystem) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.files, path)
	return nil
}

// CopyFile copies the visible content of a file. The copy is durable
func (m *MemoryFileSystem) CopyFile(from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[from]
	if !ok {
		return fmt.Errorf("%s: %w", from, ErrLogNotFound)
	}
	m.files[to] = &memoryFile{
		current: slices.Clone(file.current),
		durable: slices.Clone(file.current),
	}
	return nil
}

// Exists reports whether a file exists
func (m *MemoryFileSystem) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.files[path]
	return ok
}

// Content returns a copy of what readers currently see
func (m *MemoryFileSystem) Content(path string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	if file, ok := m.files[path]; ok {
		return slices.Clone(file.current)
	}
	return nil
}

// Crash drops every write that was not synced
func (m *MemoryFileSystem) Crash() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, file := range m.files {
		file.current = slices.Clone(file.durable)
	}
}

// SetWriteError makes every following write fail with err until reset with nil
func (m *MemoryFileSystem) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// SetSyncError makes every following sync fail with err until reset with nil
func (m *MemoryFileSystem) SetSyncError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncErr = err
}

// ReadAt implements io.ReaderAt
func (h *memoryHandle) ReadAt(p []byte, off int64) (int, error) {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()

	if h.closed {
		return 0, ErrLogClosed
	}
	if off >= int64(len(h.file.current)) {
		return 0, io.EOF
	}
	n := copy(p, h.file.current[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt, growing the file when needed
func (h *memoryHandle) WriteAt(p []byte, off int64) (int, error) {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()

	if h.closed {
		return 0, ErrLogClosed
	}
	if h.fs.writeErr != nil {
		return 0, h.fs.writeErr
	}
	if end := off + int64(len(p)); end > int64(len(h.file.current)) {
		h.file.current = append(h.file.current, make([]byte, end-int64(len(h.file.current)))...)
	}
	return copy(h.file.current[off:], p), nil
}

// Sync makes the visible content durable
func (h *memoryHandle) Sync() error {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()

	if h.closed {
		return ErrLogClosed
	}
	if h.fs.syncErr != nil {
		return h.fs.syncErr
	}
	h.file.durable = slices.Clone(h.file.current)
	return nil
}

// Size returns the visible size of the file
func (h *memoryHandle) Size() (int64, error) {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()

	if h.closed {
		return 0, ErrLogClosed
	}
	return int64(len(h.file.current)), nil
}

// Close permits to close the handle
func (h *memoryHandle) Close() error {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()

	h.closed = true
	return nil
}
