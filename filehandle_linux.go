//go:build linux

package cascadio

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	memfdOnce  sync.Once
	memfdWorks bool
)

// memfdAvailable probes once whether memfd-backed paths work on this
// system: the fd must be creatable and its /proc/self/fd path statable.
func memfdAvailable() bool {
	memfdOnce.Do(func() {
		fd, err := unix.MemfdCreate("cascadio-probe", unix.MFD_CLOEXEC)
		if err != nil {
			return
		}
		defer unix.Close(fd)
		var st unix.Stat_t
		memfdWorks = unix.Stat(fmt.Sprintf("/proc/self/fd/%d", fd), &st) == nil
	})
	return memfdWorks
}

func newMemfdHandle() (*FileHandle, error) {
	if !memfdAvailable() {
		return nil, nil
	}
	fd, err := unix.MemfdCreate("cascadio", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/proc/self/fd/%d", fd)
	return &FileHandle{
		file:  os.NewFile(uintptr(fd), path),
		path:  path,
		memfd: true,
	}, nil
}
