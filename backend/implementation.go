package backend

// each backend must implement these methods.
type implementation interface {
	Name() string
	Space() uint64

	// Copy overwrites dst with src, both must have the same length.
	Copy(dst, src []float32)
	// Gather copies the rows of src (cols elements each) selected by
	// indexes into consecutive rows of dst.
	Gather(dst, src []float32, cols int, indexes []int)
}
