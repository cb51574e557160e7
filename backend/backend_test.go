package backend

import (
	"math/rand"
	"testing"
	"time"

	. "github.com/stretchr/testify/require"
)

func randomData(size int) []float32 {
	s := rand.NewSource(time.Now().Unix())
	r := rand.New(s)

	data := make([]float32, size)
	for i := range data {
		data[i] = r.Float32()
	}
	return data
}

func copyWithSize(impl implementation, b *testing.B, size int) {
	src := randomData(size)
	dst := make([]float32, size)

	b.SetBytes(int64(size * 4))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		impl.Copy(dst, src)
	}
}

func gatherWithSize(impl implementation, b *testing.B, rows, cols int) {
	src := randomData(rows * cols)
	dst := make([]float32, rows/10*cols)
	indexes := make([]int, rows/10)
	for i := range indexes {
		indexes[i] = rand.Intn(rows)
	}

	b.SetBytes(int64(len(dst) * 4))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		impl.Gather(dst, src, cols, indexes)
	}
}

func TestCopy(t *testing.T) {
	for _, impl := range impls {
		src := randomData(1000)
		dst := make([]float32, 1000)
		impl.Copy(dst, src)
		Equal(t, src, dst, impl.Name())
	}
}

func TestCopyEmpty(t *testing.T) {
	for _, impl := range impls {
		NotPanics(t, func() { impl.Copy(nil, nil) }, impl.Name())
	}
}

func TestGather(t *testing.T) {
	const cols = 4
	src := randomData(10 * cols)
	indexes := []int{7, 0, 7, 3}

	for _, impl := range impls {
		dst := make([]float32, len(indexes)*cols)
		impl.Gather(dst, src, cols, indexes)
		for i, row := range indexes {
			Equal(t, src[row*cols:(row+1)*cols], dst[i*cols:(i+1)*cols], impl.Name())
		}
	}
}

func TestUse(t *testing.T) {
	defer Use("naive")

	NoError(t, Use("blas32"))
	Equal(t, "blas32", Name())
	Greater(t, Space(), uint64(0))

	Error(t, Use("cuda"))
	Equal(t, "blas32", Name())

	NoError(t, Use("naive"))
	Equal(t, "naive", Name())
}

func TestAvailable(t *testing.T) {
	Equal(t, []string{"blas32", "naive"}, Available())
}
