//go:build unix

package buffer

import (
	"golang.org/x/sys/unix"
)

// PinnedSupported is true when page-locked host memory can be requested.
const PinnedSupported = true

func mapPinned(size int) ([]byte, error) {
	mapped, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}

	if err = unix.Mlock(mapped); err != nil {
		unix.Munmap(mapped)
		return nil, err
	}

	return mapped, nil
}

func unmapPinned(mapped []byte) error {
	if err := unix.Munlock(mapped); err != nil {
		unix.Munmap(mapped)
		return err
	}
	return unix.Munmap(mapped)
}
