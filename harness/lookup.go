package harness

import (
	"github.com/evilsocket/islazy/log"
	"github.com/pkg/errors"
)

// keys are drawn from this space, much larger than any table
const lookupSpace = 1000000000

type entry struct {
	id  int32
	loc int32
}

type lookupWorkload struct {
	table   []entry
	batches [][]int32
	locs    [][]int32
}

// every trial resolves one whole batch of keys
func (w *lookupWorkload) issue(first, trials int) error {
	size := int32(len(w.table))
	for b := first; b < first+trials; b++ {
		keys, locs := w.batches[b], w.locs[b]
		for i, key := range keys {
			locs[i] = w.table[key%size].loc
		}
	}
	return nil
}

func (w *lookupWorkload) barrier() error {
	return nil
}

// MeasureRandomLookup measures random memory access speed by resolving
// l.Batches batches of l.Lookups random keys in a table of l.TableSize
// entries. Keys are generated before the timed loop, one batch per trial.
func (h *Harness) MeasureRandomLookup(l Lookup) (*Result, error) {
	if l.TableSize <= 0 || l.Lookups <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "random lookup: invalid table size %d or lookups %d", l.TableSize, l.Lookups)
	} else if err := validTrials(l.Batches); err != nil {
		return nil, errors.Wrap(err, "random lookup: batches")
	} else if l.TableSize > lookupSpace {
		return nil, errors.Wrapf(ErrInvalidArgument, "random lookup: table size %d above %d", l.TableSize, lookupSpace)
	}

	w := &lookupWorkload{
		table:   make([]entry, l.TableSize),
		batches: make([][]int32, l.Batches),
		locs:    make([][]int32, l.Batches),
	}

	for i := range w.table {
		w.table[i] = entry{id: -1, loc: int32(i)}
	}

	for b := range w.batches {
		w.batches[b] = make([]int32, l.Lookups)
		w.locs[b] = make([]int32, l.Lookups)
		for i := range w.batches[b] {
			w.batches[b][i] = h.rand.Int31n(lookupSpace)
		}
	}

	res := &Result{
		Label:       "lookup",
		Unit:        h.unit(GiB),
		OpsPerTrial: uint64(l.Lookups),
		// every lookup reads one entry
		BytesPerTrial: uint64(l.Lookups) * 8,
	}

	log.Debug("random lookup: %d entries, %d batches of %d keys", l.TableSize, l.Batches, l.Lookups)

	if err := h.run(l.Batches, w, res); err != nil {
		return nil, errors.Wrapf(err, "random lookup (table:%d lookups:%d batches:%d)", l.TableSize, l.Lookups, l.Batches)
	}

	if h.cfg.Verify {
		size := int32(len(w.table))
		last := len(w.batches) - 1
		for i, key := range w.batches[last] {
			if w.locs[last][i] != key%size {
				return nil, errors.Wrapf(ErrRuntime, "random lookup: key %d resolved to %d", key, w.locs[last][i])
			}
		}
	}

	return res, nil
}
