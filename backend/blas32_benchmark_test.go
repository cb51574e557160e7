package backend

import (
	"testing"
)

func BenchmarkBackendBLAS32Copy1K(b *testing.B) {
	copyWithSize(blas{}, b, 1024)
}

func BenchmarkBackendBLAS32Copy1M(b *testing.B) {
	copyWithSize(blas{}, b, 1024*1024)
}

func BenchmarkBackendBLAS32Copy64M(b *testing.B) {
	copyWithSize(blas{}, b, 64*1024*1024)
}

func BenchmarkBackendBLAS32Gather100K(b *testing.B) {
	gatherWithSize(blas{}, b, 100000, 100)
}
