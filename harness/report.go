package harness

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/evilsocket/islazy/tui"
	"gonum.org/v1/gonum/stat"
)

// Printer writes human readable measurement reports.
type Printer struct {
	Out   io.Writer
	Color bool
}

func (p *Printer) label(s string) string {
	if p.Color {
		return tui.Bold(s)
	}
	return s
}

func (p *Printer) dim(s string) string {
	if p.Color {
		return tui.Dim(s)
	}
	return s
}

// Print writes one line per trial with PerTrial timing and a summary line.
func (p *Printer) Print(r *Result) {
	switch {
	case r.OpsPerTrial > 0:
		p.printOps(r)
	case r.Devices > 0:
		p.printTransfer(r)
	default:
		p.printCopy(r)
	}
}

func (p *Printer) details(r *Result) string {
	details := fmt.Sprintf("%s timing, %d trials, %s per trial", r.Timing, r.Trials, humanize.Bytes(r.BytesPerTrial))
	if rates := r.TrialRates(); len(rates) > 1 {
		details += fmt.Sprintf(", mean of trials %.3f %s/s", stat.Mean(rates, nil), r.Unit)
	}
	return p.dim("[" + details + "]")
}

func (p *Printer) printCopy(r *Result) {
	for _, rate := range r.TrialRates() {
		fmt.Fprintf(p.Out, "%s throughput: %f %s/s\n", p.label(r.Label), rate, r.Unit)
	}
	fmt.Fprintf(p.Out, "%s throughput: %f %s/s %s\n", p.label(r.Label), r.Rate(), r.Unit, p.details(r))
}

func (p *Printer) printTransfer(r *Result) {
	devices := "devices"
	if r.Devices == 1 {
		devices = "device"
	}

	prefix := fmt.Sprintf("%s to %d %s", r.Label, r.Devices, devices)
	for _, rate := range r.TrialRates() {
		fmt.Fprintf(p.Out, "%s: %.3f %s/s\n", p.label(prefix), rate, r.Unit)
	}
	fmt.Fprintf(p.Out, "%s: %.3f %s/s %s %s\n", p.label(prefix), r.Rate(), r.Unit, p.dim(r.Residency), p.details(r))
}

func (p *Printer) printOps(r *Result) {
	fmt.Fprintf(p.Out, "%s takes %.3f seconds. %.3f lookups/second %s\n",
		p.label(r.Label), r.Elapsed.Seconds(), r.OpsRate(), p.dim(fmt.Sprintf("[%s timing, %d batches of %s]",
			r.Timing, r.Trials, humanize.Comma(int64(r.OpsPerTrial)))))
}
