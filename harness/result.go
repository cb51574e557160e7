package harness

import (
	"time"
)

// MinElapsed is the smallest elapsed time used to derive a rate, coarser
// clocks may measure a zero duration for tiny workloads.
const MinElapsed = time.Nanosecond

// Result of a measurement, rates are derived from it and never stored.
type Result struct {
	// Label of the workload, used when printing.
	Label string
	// Timing granularity used for this measurement.
	Timing Timing
	// Unit rates are expressed in.
	Unit Unit
	// Number of trials (batches for lookups).
	Trials int
	// Total timed wall-clock time.
	Elapsed time.Duration
	// Elapsed time of every trial, only with PerTrial timing.
	TrialElapsed []time.Duration
	// Bytes moved by a single trial, across all devices and directions.
	BytesPerTrial uint64
	// Size of the last gathered buffer.
	LastBytes uint64
	// Number of devices involved.
	Devices int
	// Host memory mode of the transfer source.
	Residency string
	// Operations performed by a single trial, for non copy workloads.
	OpsPerTrial uint64
}

// Rate converts a number of bytes moved in the elapsed time to units per second.
func Rate(bytes uint64, elapsed time.Duration, unit Unit) float64 {
	if elapsed < MinElapsed {
		elapsed = MinElapsed
	}
	return float64(bytes) / elapsed.Seconds() / unit.Scale()
}

// TotalBytes returns the bytes moved by all the trials.
func (r *Result) TotalBytes() uint64 {
	return r.BytesPerTrial * uint64(r.Trials)
}

// Rate returns the throughput over all the trials.
func (r *Result) Rate() float64 {
	return Rate(r.TotalBytes(), r.Elapsed, r.Unit)
}

// TrialRates returns the throughput of every trial, or nil with Batch timing.
func (r *Result) TrialRates() []float64 {
	if len(r.TrialElapsed) == 0 {
		return nil
	}

	rates := make([]float64, len(r.TrialElapsed))
	for i, elapsed := range r.TrialElapsed {
		rates[i] = Rate(r.BytesPerTrial, elapsed, r.Unit)
	}
	return rates
}

// OpsRate returns the operations per second over all the trials.
func (r *Result) OpsRate() float64 {
	elapsed := r.Elapsed
	if elapsed < MinElapsed {
		elapsed = MinElapsed
	}
	return float64(r.OpsPerTrial*uint64(r.Trials)) / elapsed.Seconds()
}
