package backend

import (
	"github.com/pbnjay/memory"
	"gonum.org/v1/gonum/blas/blas32"
)

type blas struct {
}

func (impl blas) Name() string {
	return "blas32"
}

func (impl blas) Space() uint64 {
	return memory.TotalMemory()
}

func (impl blas) wrap(data []float32) blas32.Vector {
	return blas32.Vector{
		Inc:  1,
		Data: data,
	}
}

func (impl blas) Copy(dst, src []float32) {
	if len(src) == 0 {
		return
	}
	blas32.Copy(len(src), impl.wrap(src), impl.wrap(dst))
}

func (impl blas) Gather(dst, src []float32, cols int, indexes []int) {
	for i, row := range indexes {
		blas32.Copy(cols, impl.wrap(src[row*cols:(row+1)*cols]), impl.wrap(dst[i*cols:(i+1)*cols]))
	}
}
