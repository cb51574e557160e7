package main

import (
	"flag"
	"os"
	"strings"

	"github.com/evilsocket/islazy/log"
	"github.com/evilsocket/xfer/backend"
	"github.com/evilsocket/xfer/common"
	"github.com/evilsocket/xfer/harness"
)

var (
	defaults = harness.DefaultConfig()

	workload   = flag.String("workload", "all", "Workload to measure: copy, gather, lookup or all.")
	configFile = flag.String("config", "", "Load the configuration from this yaml or json file, explicit flags override it.")
	saveConfig = flag.String("save-config", "", "Save the resulting configuration to this file and exit.")
	color      = flag.Bool("color", false, "Use colors in the report.")

	elements = flag.Int("elements", defaults.HostCopy.Elements, "Number of float32 elements of the copied buffer.")
	rows     = flag.Int("rows", defaults.Gather.Rows, "Rows of the gathered matrix.")
	cols     = flag.Int("cols", defaults.Gather.Cols, "Columns of the gathered matrix.")
	fraction = flag.Float64("fraction", defaults.Gather.Fraction, "Fraction of the rows gathered per trial.")
	trials   = flag.Int("trials", defaults.HostCopy.Trials, "Number of trials of the copy and gather workloads.")

	tableSize = flag.Int("table-size", defaults.Lookup.TableSize, "Entries of the lookup table.")
	lookups   = flag.Int("lookups", defaults.Lookup.Lookups, "Lookups per batch.")
	batches   = flag.Int("batches", defaults.Lookup.Batches, "Number of lookup batches.")

	threads = flag.Int("threads", defaults.Threads, "Number of goroutines splitting the copy.")
	kernels = flag.String("backend", defaults.Backend, "Host kernels backend: "+strings.Join(backend.Available(), ", ")+".")
	timing  = flag.String("timing", string(defaults.Timing), "Timing granularity: per-trial or batch.")
	unit    = flag.String("unit", "", "Unit of the reported rates: GiB or GB (default GiB).")
	seed    = flag.Int64("seed", defaults.Seed, "Random seed, 0 to use the current time.")
	verify  = flag.Bool("verify", defaults.Verify, "Verify the destination buffers after every measurement.")

	opts = common.RegisterFlags()
)

func loadConfig() *harness.Config {
	cfg := &defaults
	if *configFile != "" {
		var err error
		if cfg, err = harness.LoadConfig(*configFile); err != nil {
			log.Fatal("%v", err)
		}
		log.Debug("configuration loaded from %s", *configFile)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "elements":
			cfg.HostCopy.Elements = *elements
		case "rows":
			cfg.Gather.Rows = *rows
		case "cols":
			cfg.Gather.Cols = *cols
		case "fraction":
			cfg.Gather.Fraction = *fraction
		case "trials":
			cfg.HostCopy.Trials = *trials
			cfg.Gather.Trials = *trials
		case "table-size":
			cfg.Lookup.TableSize = *tableSize
		case "lookups":
			cfg.Lookup.Lookups = *lookups
		case "batches":
			cfg.Lookup.Batches = *batches
		case "threads":
			cfg.Threads = *threads
		case "backend":
			cfg.Backend = *kernels
		case "timing":
			cfg.Timing = harness.Timing(*timing)
		case "unit":
			cfg.Unit = harness.Unit(*unit)
		case "seed":
			cfg.Seed = *seed
		case "verify":
			cfg.Verify = *verify
		}
	})

	return cfg
}

func main() {
	flag.Parse()

	opts.Start("membench")
	defer opts.Stop()

	cfg := loadConfig()
	if *saveConfig != "" {
		if err := cfg.Save(*saveConfig); err != nil {
			log.Fatal("can't save configuration: %v", err)
		}
		log.Info("configuration saved to %s", *saveConfig)
		return
	}

	h, err := harness.New(*cfg, nil)
	if err != nil {
		log.Fatal("%v", err)
	}
	defer h.Close()

	measures := map[string]func() (*harness.Result, error){
		"copy":   func() (*harness.Result, error) { return h.MeasureHostCopy(cfg.HostCopy) },
		"gather": func() (*harness.Result, error) { return h.MeasureRandomGather(cfg.Gather) },
		"lookup": func() (*harness.Result, error) { return h.MeasureRandomLookup(cfg.Lookup) },
	}

	names := []string{*workload}
	if *workload == "all" {
		names = []string{"copy", "gather", "lookup"}
	}

	printer := harness.Printer{Out: os.Stdout, Color: *color}
	for _, name := range names {
		measure, found := measures[name]
		if !found {
			log.Fatal("unknown workload '%s', use copy, gather, lookup or all", name)
		}

		log.Debug("measuring %s with the %s backend ...", name, backend.Name())

		res, err := measure()
		if err != nil {
			log.Fatal("%s: %v", name, err)
		}
		printer.Print(res)
	}
}
