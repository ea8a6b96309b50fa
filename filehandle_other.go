//go:build !linux

package cascadio

// Only Linux has memfd; other platforms always use temp files.
func newMemfdHandle() (*FileHandle, error) {
	return nil, nil
}
