package harness

import (
	"github.com/evilsocket/islazy/log"
	"github.com/evilsocket/xfer/backend"
	"github.com/evilsocket/xfer/buffer"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// copyWorkload splits the copy of src into dst among a fixed number of
// goroutines, each one owning a contiguous chunk.
type copyWorkload struct {
	dst, src []float32
	chunks   [][2]int
	group    *errgroup.Group
}

// split partitions [0, n) in at most threads contiguous chunks.
func split(n, threads int) [][2]int {
	if threads > n {
		threads = n
	}

	chunks := make([][2]int, 0, threads)
	size := (n + threads - 1) / threads
	for from := 0; from < n; from += size {
		to := from + size
		if to > n {
			to = n
		}
		chunks = append(chunks, [2]int{from, to})
	}
	return chunks
}

func newCopyWorkload(dst, src []float32, threads int) *copyWorkload {
	return &copyWorkload{dst: dst, src: src, chunks: split(len(src), threads)}
}

func (w *copyWorkload) issue(first, trials int) error {
	w.group = &errgroup.Group{}
	for _, chunk := range w.chunks {
		dst, src := w.dst[chunk[0]:chunk[1]], w.src[chunk[0]:chunk[1]]
		w.group.Go(func() error {
			for i := 0; i < trials; i++ {
				backend.Copy(dst, src)
			}
			return nil
		})
	}
	return nil
}

func (w *copyWorkload) barrier() error {
	return w.group.Wait()
}

// MeasureHostCopy measures the throughput of a full overwrite of a host
// buffer of hc.Elements float32 values with the content of another one.
func (h *Harness) MeasureHostCopy(hc HostCopy) (*Result, error) {
	if hc.Elements <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "host copy: element count must be positive, got %d", hc.Elements)
	} else if err := validTrials(hc.Trials); err != nil {
		return nil, errors.Wrap(err, "host copy")
	}

	rel := &releaser{}
	defer rel.release()

	src, err := buffer.NewHost(hc.Elements, false)
	if err != nil {
		return nil, errors.Wrapf(err, "host copy: source of %d elements", hc.Elements)
	}
	rel.add(src)

	dst, err := buffer.NewHost(hc.Elements, false)
	if err != nil {
		return nil, errors.Wrapf(err, "host copy: destination of %d elements", hc.Elements)
	}
	rel.add(dst)

	h.fill(src)

	w := newCopyWorkload(dst.Data(), src.Data(), h.cfg.Threads)
	res := &Result{
		Label:         "sequential copy",
		Unit:          h.unit(GiB),
		BytesPerTrial: src.Size(),
	}

	log.Debug("host copy: %d elements, %d trials, %d chunks", hc.Elements, hc.Trials, len(w.chunks))

	if err = h.run(hc.Trials, w, res); err != nil {
		return nil, errors.Wrapf(err, "host copy (elements:%d trials:%d)", hc.Elements, hc.Trials)
	}

	if h.cfg.Verify && dst.Checksum() != src.Checksum() {
		return nil, errors.Wrap(ErrRuntime, "host copy: destination doesn't match the source")
	}

	return res, nil
}
