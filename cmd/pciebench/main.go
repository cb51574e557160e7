package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/evilsocket/islazy/log"
	"github.com/evilsocket/xfer/buffer"
	"github.com/evilsocket/xfer/common"
	"github.com/evilsocket/xfer/device"
	"github.com/evilsocket/xfer/harness"
	"github.com/schollz/progressbar/v3"
)

var (
	defaults = harness.DefaultConfig()

	configFile = flag.String("config", "", "Load the configuration from this yaml or json file, explicit flags override it.")
	saveConfig = flag.String("save-config", "", "Save the resulting configuration to this file and exit.")
	color      = flag.Bool("color", false, "Use colors in the report.")
	sweep      = flag.Bool("sweep", false, "Measure every prefix of the device list, from one device to all of them.")

	devices   = flag.String("devices", "0", "Devices to copy to, for instance 0,1,4-7.")
	shape     = flag.String("shape", "100000x10", "Shape of the transferred buffer, for instance 1000000x10.")
	trials    = flag.Int("trials", defaults.Transfer.Trials, "Number of trials.")
	direction = flag.String("direction", string(defaults.Transfer.Direction), "Transfer direction: h2d or roundtrip.")
	pinned    = flag.Bool("pinned", defaults.Transfer.Pinned, "Use page-locked host memory, pageable otherwise (bounded by RLIMIT_MEMLOCK, see ulimit -l).")

	simDevices   = flag.Int("sim-devices", 0, "Number of simulated devices, 0 to have one for each requested device id.")
	linkGBps     = flag.Float64("link-gbps", 0, "Link bandwidth of every simulated device in GB/s, 0 for host memory speed.")
	deviceMemory = flag.String("device-memory", "", "Memory of every simulated device, for instance 16GB (default the host memory).")

	timing = flag.String("timing", string(defaults.Timing), "Timing granularity: per-trial or batch.")
	unit   = flag.String("unit", "", "Unit of the reported rates: GB or GiB (default GB).")
	verify = flag.Bool("verify", defaults.Verify, "Read back and verify every device buffer after the measurement.")

	opts = common.RegisterFlags()
)

func loadConfig() *harness.Config {
	var err error

	cfg := &defaults
	if *configFile != "" {
		if cfg, err = harness.LoadConfig(*configFile); err != nil {
			log.Fatal("%v", err)
		}
		log.Debug("configuration loaded from %s", *configFile)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "devices":
			if cfg.Transfer.Devices, err = harness.ParseDevices(*devices); err != nil {
				log.Fatal("%v", err)
			}
		case "shape":
			if cfg.Transfer.Shape, err = harness.ParseShape(*shape); err != nil {
				log.Fatal("%v", err)
			}
		case "trials":
			cfg.Transfer.Trials = *trials
		case "direction":
			cfg.Transfer.Direction = harness.Direction(*direction)
		case "pinned":
			cfg.Transfer.Pinned = *pinned
		case "sim-devices":
			cfg.Runtime.Devices = *simDevices
		case "link-gbps":
			cfg.Runtime.LinkGBps = *linkGBps
		case "device-memory":
			if cfg.Runtime.Memory, err = humanize.ParseBytes(*deviceMemory); err != nil {
				log.Fatal("invalid device memory '%s': %v", *deviceMemory, err)
			}
		case "timing":
			cfg.Timing = harness.Timing(*timing)
		case "unit":
			cfg.Unit = harness.Unit(*unit)
		case "verify":
			cfg.Verify = *verify
		}
	})

	return cfg
}

func runSweep(h *harness.Harness, t harness.Transfer) []*harness.Result {
	all := t.Devices
	results := make([]*harness.Result, 0, len(all))

	bar := progressbar.NewOptions(len(all),
		progressbar.OptionSetDescription("sweeping devices"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish())

	for n := 1; n <= len(all); n++ {
		t.Devices = all[:n]
		bar.Describe(fmt.Sprintf("%d of %d devices", n, len(all)))

		res, err := h.MeasureDeviceTransfer(t)
		if err != nil {
			bar.Clear()
			log.Fatal("%v", err)
		}
		results = append(results, res)
		bar.Add(1)
	}

	bar.Finish()
	return results
}

func main() {
	flag.Parse()

	opts.Start("pciebench")
	defer opts.Stop()

	cfg := loadConfig()
	if *saveConfig != "" {
		if err := cfg.Save(*saveConfig); err != nil {
			log.Fatal("can't save configuration: %v", err)
		}
		log.Info("configuration saved to %s", *saveConfig)
		return
	}

	if cfg.Transfer.Pinned && !buffer.PinnedSupported {
		log.Warning("page-locked memory is not supported on this platform, use -pinned=false")
	}

	rt, err := device.Open(cfg.RuntimeConfig())
	if err != nil {
		log.Fatal("can't open the device runtime: %v", err)
	}

	h, err := harness.New(*cfg, rt)
	if err != nil {
		rt.Close()
		log.Fatal("%v", err)
	}
	defer h.Close()

	printer := harness.Printer{Out: os.Stdout, Color: *color}

	if *sweep {
		for _, res := range runSweep(h, cfg.Transfer) {
			printer.Print(res)
		}
		return
	}

	res, err := h.MeasureDeviceTransfer(cfg.Transfer)
	if err != nil {
		log.Fatal("%v", err)
	}
	printer.Print(res)
}
