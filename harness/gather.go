package harness

import (
	"github.com/evilsocket/islazy/log"
	"github.com/evilsocket/xfer/backend"
	"github.com/evilsocket/xfer/buffer"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type gatherWorkload struct {
	src     []float32
	cols    int
	indexes []int
	// every chunk of indexes is gathered by its own goroutine
	chunks [][2]int
	last   []float32
}

// every trial gathers into a freshly allocated buffer, the workers fill
// disjoint rows of it and are joined before the next trial starts.
func (w *gatherWorkload) issue(first, trials int) error {
	for i := 0; i < trials; i++ {
		dst := make([]float32, len(w.indexes)*w.cols)

		group := errgroup.Group{}
		for _, chunk := range w.chunks {
			from, to := chunk[0], chunk[1]
			group.Go(func() error {
				backend.Gather(dst[from*w.cols:to*w.cols], w.src, w.cols, w.indexes[from:to])
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}

		w.last = dst
	}
	return nil
}

func (w *gatherWorkload) barrier() error {
	return nil
}

// verify checks every gathered row against the source row it came from.
func (w *gatherWorkload) verify() bool {
	for i, row := range w.indexes {
		got := w.last[i*w.cols : (i+1)*w.cols]
		exp := w.src[row*w.cols : (row+1)*w.cols]
		if buffer.Sum64(got) != buffer.Sum64(exp) {
			return false
		}
	}
	return true
}

// MeasureRandomGather measures the throughput of gathering a random subset
// of the rows of a g.Rows x g.Cols matrix into a new buffer. The row indexes
// are drawn once, with replacement, before the timed loop.
func (h *Harness) MeasureRandomGather(g Gather) (*Result, error) {
	if g.Rows <= 0 || g.Cols <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "random gather: invalid matrix %dx%d", g.Rows, g.Cols)
	} else if g.Fraction <= 0 || g.Fraction > 1 {
		return nil, errors.Wrapf(ErrInvalidArgument, "random gather: fraction must be in (0, 1], got %f", g.Fraction)
	} else if g.Sampled() == 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "random gather: %d rows with fraction %f sample no rows", g.Rows, g.Fraction)
	} else if err := validTrials(g.Trials); err != nil {
		return nil, errors.Wrap(err, "random gather")
	}

	rel := &releaser{}
	defer rel.release()

	src, err := buffer.NewHost(g.Rows*g.Cols, false)
	if err != nil {
		return nil, errors.Wrapf(err, "random gather: %dx%d matrix", g.Rows, g.Cols)
	}
	rel.add(src)

	h.fill(src)

	w := &gatherWorkload{
		src:     src.Data(),
		cols:    g.Cols,
		indexes: make([]int, g.Sampled()),
	}
	for i := range w.indexes {
		w.indexes[i] = h.rand.Intn(g.Rows)
	}
	w.chunks = split(len(w.indexes), h.cfg.Threads)

	res := &Result{
		Label:         "random slice",
		Unit:          h.unit(GiB),
		BytesPerTrial: uint64(len(w.indexes)*g.Cols) * buffer.ByteWidth,
	}

	log.Debug("random gather: %dx%d matrix, %d rows per trial, %d trials, %d chunks",
		g.Rows, g.Cols, len(w.indexes), g.Trials, len(w.chunks))

	if err = h.run(g.Trials, w, res); err != nil {
		return nil, errors.Wrapf(err, "random gather (rows:%d cols:%d fraction:%f trials:%d)", g.Rows, g.Cols, g.Fraction, g.Trials)
	}

	res.LastBytes = uint64(len(w.last)) * buffer.ByteWidth

	if h.cfg.Verify && !w.verify() {
		return nil, errors.Wrap(ErrRuntime, "random gather: gathered rows don't match the source")
	}

	return res, nil
}
