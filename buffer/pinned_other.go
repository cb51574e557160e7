//go:build !unix

package buffer

import (
	"errors"
)

// PinnedSupported is true when page-locked host memory can be requested.
const PinnedSupported = false

func mapPinned(size int) ([]byte, error) {
	return nil, errors.New("page-locked memory is not supported on this platform")
}

func unmapPinned(mapped []byte) error {
	return nil
}
