package buffer

import (
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/pbnjay/memory"
	"github.com/pkg/errors"
)

// ByteWidth is the size in bytes of a single element, every buffer holds float32 values.
const ByteWidth = 4

// ErrAllocation is returned when host, pinned or device memory can't be reserved.
var ErrAllocation = errors.New("allocation failure")

// Residency tells where the memory of a buffer lives.
type Residency int

const (
	// Pageable is ordinary host memory the OS is free to page out.
	Pageable Residency = iota
	// Pinned is page-locked host memory.
	Pinned
	// Device is memory owned by an accelerator.
	Device
)

func (r Residency) String() string {
	switch r {
	case Pageable:
		return "pageable"
	case Pinned:
		return "pinned"
	case Device:
		return "device"
	}
	return fmt.Sprintf("residency(%d)", int(r))
}

// IsHost returns true for pageable and pinned buffers.
func (r Residency) IsHost() bool {
	return r == Pageable || r == Pinned
}

// Buffer is a fixed size block of float32 elements, it is never resized once created.
type Buffer struct {
	sync.Mutex
	residency Residency
	device    int
	data      []float32
	// backing memory for pinned buffers
	mapped   []byte
	released bool
}

// NewHost allocates n elements of host memory, page-locked if pinned is true.
func NewHost(n int, pinned bool) (*Buffer, error) {
	if err := checkSize(n, memory.TotalMemory()); err != nil {
		return nil, err
	}

	if !pinned {
		return &Buffer{
			residency: Pageable,
			device:    -1,
			data:      make([]float32, n),
		}, nil
	}

	mapped, err := mapPinned(n * ByteWidth)
	if err != nil {
		return nil, errors.Wrapf(ErrAllocation, "can't pin %d bytes: %v", n*ByteWidth, err)
	}

	return &Buffer{
		residency: Pinned,
		device:    -1,
		data:      unsafe.Slice((*float32)(unsafe.Pointer(&mapped[0])), n),
		mapped:    mapped,
	}, nil
}

// NewDevice wraps n elements of storage owned by the device with the given identifier,
// it's meant to be used by device runtimes and not directly.
func NewDevice(dev int, n int) *Buffer {
	return &Buffer{
		residency: Device,
		device:    dev,
		data:      make([]float32, n),
	}
}

func checkSize(n int, limit uint64) error {
	if n <= 0 {
		return errors.Wrapf(ErrAllocation, "invalid element count %d", n)
	} else if uint64(n) > math.MaxInt/ByteWidth {
		return errors.Wrapf(ErrAllocation, "%d elements overflow the address space", n)
	} else if size := uint64(n) * ByteWidth; limit > 0 && size > limit {
		return errors.Wrapf(ErrAllocation, "%d bytes requested, %d available", size, limit)
	}
	return nil
}

// Residency returns where the buffer memory lives.
func (b *Buffer) Residency() Residency {
	return b.residency
}

// Device returns the device identifier for device buffers or -1 for host ones.
func (b *Buffer) Device() int {
	return b.device
}

// Data returns the elements of the buffer.
func (b *Buffer) Data() []float32 {
	return b.data
}

// Len returns the number of elements.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Size returns the size of the buffer in bytes.
func (b *Buffer) Size() uint64 {
	return uint64(len(b.data)) * ByteWidth
}

// Released returns true once Release has been called.
func (b *Buffer) Released() bool {
	b.Lock()
	defer b.Unlock()
	return b.released
}

// Release frees the buffer memory, calling it more than once is harmless.
func (b *Buffer) Release() error {
	b.Lock()
	defer b.Unlock()

	if b.released {
		return nil
	}
	b.released = true
	b.data = nil

	if b.mapped != nil {
		mapped := b.mapped
		b.mapped = nil
		return unmapPinned(mapped)
	}
	return nil
}

// Checksum returns the xxhash64 of the buffer contents.
func (b *Buffer) Checksum() uint64 {
	return Sum64(b.data)
}

// Sum64 returns the xxhash64 of the raw bytes of a slice of elements.
func Sum64(data []float32) uint64 {
	return xxhash.Sum64(asBytes(data))
}

func asBytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*ByteWidth)
}

func (b *Buffer) String() string {
	if b.residency == Device {
		return fmt.Sprintf("device:%d[%d]", b.device, len(b.data))
	}
	return fmt.Sprintf("%s[%d]", b.residency, len(b.data))
}
