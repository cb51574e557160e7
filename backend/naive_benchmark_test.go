package backend

import (
	"testing"
)

func BenchmarkBackendNaiveCopy1K(b *testing.B) {
	copyWithSize(naive{}, b, 1024)
}

func BenchmarkBackendNaiveCopy1M(b *testing.B) {
	copyWithSize(naive{}, b, 1024*1024)
}

func BenchmarkBackendNaiveCopy64M(b *testing.B) {
	copyWithSize(naive{}, b, 64*1024*1024)
}

func BenchmarkBackendNaiveGather100K(b *testing.B) {
	gatherWithSize(naive{}, b, 100000, 100)
}
