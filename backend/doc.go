/*
Package backend provides an abstraction layer to the host memory kernels used by the harness, currently implemented:

	- naive (builtin copy, no optimizations)
	- blas32 (gonum blas32 interface)
*/
package backend
