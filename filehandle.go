package cascadio

import (
	"io"
	"os"
)

// FileHandle is a scratch file with a filesystem path, for kernel APIs that
// cannot read from streams. On Linux it is backed by an anonymous memfd
// (no filesystem writes) when available; everywhere else, and when memfd is
// disallowed, it falls back to a file in the system temp directory. Close
// releases the backing resource on every path.
type FileHandle struct {
	file  *os.File
	path  string
	memfd bool
}

// NewFileHandle creates a scratch handle with the given extension hint
// (e.g. ".glb", ".igs"). Pass allowMemfd=false when the consumer creates
// sibling files next to the path, which an fd-backed path cannot support.
func NewFileHandle(ext string, allowMemfd bool) (*FileHandle, error) {
	if allowMemfd {
		if h, err := newMemfdHandle(); err == nil && h != nil {
			return h, nil
		}
	}
	f, err := os.CreateTemp("", "cascadio_*"+ext)
	if err != nil {
		return nil, err
	}
	return &FileHandle{file: f, path: f.Name()}, nil
}

// Path returns the filesystem path of the handle.
func (h *FileHandle) Path() string { return h.path }

// Write replaces the handle's content.
func (h *FileHandle) Write(data []byte) error {
	if err := h.file.Truncate(0); err != nil {
		return err
	}
	if _, err := h.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := h.file.Write(data)
	return err
}

// ReadAll returns the handle's full content.
func (h *FileHandle) ReadAll() ([]byte, error) {
	if _, err := h.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(h.file)
}

// Close releases the backing resource; temp files are removed from disk.
func (h *FileHandle) Close() error {
	err := h.file.Close()
	if !h.memfd && h.path != "" {
		if rmErr := os.Remove(h.path); err == nil {
			err = rmErr
		}
	}
	return err
}
