package backend

import (
	"github.com/pbnjay/memory"
)

type naive struct {
}

func (impl naive) Name() string {
	return "naive"
}

func (impl naive) Space() uint64 {
	return memory.TotalMemory()
}

func (impl naive) Copy(dst, src []float32) {
	copy(dst, src)
}

func (impl naive) Gather(dst, src []float32, cols int, indexes []int) {
	for i, row := range indexes {
		copy(dst[i*cols:(i+1)*cols], src[row*cols:(row+1)*cols])
	}
}
