package harness

import (
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/evilsocket/xfer/backend"
	"github.com/evilsocket/xfer/device"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Timing is the granularity of the timed region.
type Timing string

const (
	// PerTrial times every trial on its own and synchronizes once per trial.
	PerTrial Timing = "per-trial"
	// Batch times the whole trial loop once and synchronizes once at its end,
	// the reported rate assumes every trial costs the same.
	Batch Timing = "batch"
)

// Unit is the unit rates are reported in.
type Unit string

const (
	// GiB is 1024^3 bytes.
	GiB Unit = "GiB"
	// GB is 10^9 bytes.
	GB Unit = "GB"
)

// Scale returns the number of bytes in one unit.
func (u Unit) Scale() float64 {
	if u == GB {
		return 1e9
	}
	return 1024 * 1024 * 1024
}

// Direction of a device transfer.
type Direction string

const (
	// HostToDevice copies the host source to every device.
	HostToDevice Direction = "h2d"
	// RoundTrip also copies every device buffer back to the host.
	RoundTrip Direction = "roundtrip"
)

// Factor is the number of times the buffer crosses the link in a trial.
func (d Direction) Factor() int {
	if d == RoundTrip {
		return 2
	}
	return 1
}

// HostCopy parameters of the sequential copy workload.
type HostCopy struct {
	Elements int `json:"elements" yaml:"elements"`
	Trials   int `json:"trials" yaml:"trials"`
}

// Gather parameters of the random gather workload.
type Gather struct {
	Rows     int     `json:"rows" yaml:"rows"`
	Cols     int     `json:"cols" yaml:"cols"`
	Fraction float64 `json:"fraction" yaml:"fraction"`
	Trials   int     `json:"trials" yaml:"trials"`
}

// Sampled returns the number of rows gathered per trial.
func (g Gather) Sampled() int {
	return int(float64(g.Rows)*g.Fraction + 0.5)
}

// Lookup parameters of the random lookup workload.
type Lookup struct {
	TableSize int `json:"table_size" yaml:"table_size"`
	Lookups   int `json:"lookups" yaml:"lookups"`
	Batches   int `json:"batches" yaml:"batches"`
}

// Transfer parameters of the host/device workload.
type Transfer struct {
	Devices   []int     `json:"devices" yaml:"devices"`
	Shape     []int     `json:"shape" yaml:"shape"`
	Trials    int       `json:"trials" yaml:"trials"`
	Direction Direction `json:"direction" yaml:"direction"`
	Pinned    bool      `json:"pinned" yaml:"pinned"`
}

// Elements returns the number of elements of a buffer with the transfer shape.
func (t Transfer) Elements() int {
	n := 1
	for _, dim := range t.Shape {
		n *= dim
	}
	return n
}

// Config holds every parameter of a run.
type Config struct {
	// Timing granularity, PerTrial or Batch.
	Timing Timing `json:"timing" yaml:"timing"`
	// Unit of the reported rates, if empty GiB for host workloads and GB for transfers.
	Unit Unit `json:"unit,omitempty" yaml:"unit,omitempty"`
	// Host kernels backend.
	Backend string `json:"backend" yaml:"backend"`
	// Number of goroutines splitting the host copy.
	Threads int `json:"threads" yaml:"threads"`
	// Seed of the random generator, 0 to seed with the current time.
	Seed int64 `json:"seed" yaml:"seed"`
	// Verify the contents of destination buffers after each measurement.
	Verify bool `json:"verify" yaml:"verify"`

	// Simulated devices, with Runtime.Devices 0 the runtime is sized to the
	// highest device id of Transfer.
	Runtime  device.Config `json:"runtime" yaml:"runtime"`
	HostCopy HostCopy      `json:"host_copy" yaml:"host_copy"`
	Gather   Gather        `json:"gather" yaml:"gather"`
	Lookup   Lookup        `json:"lookup" yaml:"lookup"`
	Transfer Transfer      `json:"transfer" yaml:"transfer"`
}

// DefaultConfig returns the configuration of the reference experiments.
func DefaultConfig() Config {
	return Config{
		Timing:  Batch,
		Backend: "naive",
		Threads: 1,
		HostCopy: HostCopy{
			Elements: 1000000000,
			Trials:   10,
		},
		Gather: Gather{
			Rows:     10000000,
			Cols:     100,
			Fraction: 0.1,
			Trials:   10,
		},
		Lookup: Lookup{
			TableSize: 30000000,
			Lookups:   1000000,
			Batches:   100,
		},
		Transfer: Transfer{
			Devices:   []int{0},
			Shape:     []int{100000, 10},
			Trials:    10,
			Direction: HostToDevice,
			Pinned:    true,
		},
	}
}

// Validate checks the run wide parameters, workload parameters are
// checked by the measurement using them.
func (c Config) Validate() error {
	if c.Timing != PerTrial && c.Timing != Batch {
		return errors.Wrapf(ErrInvalidArgument, "timing must be '%s' or '%s', got '%s'", PerTrial, Batch, c.Timing)
	} else if c.Unit != "" && c.Unit != GiB && c.Unit != GB {
		return errors.Wrapf(ErrInvalidArgument, "unit must be '%s' or '%s', got '%s'", GiB, GB, c.Unit)
	} else if c.Threads < 1 {
		return errors.Wrapf(ErrInvalidArgument, "threads must be at least 1, got %d", c.Threads)
	} else if c.Runtime.Devices < 0 {
		return errors.Wrapf(ErrInvalidArgument, "negative number of devices %d", c.Runtime.Devices)
	}

	found := false
	for _, name := range backend.Available() {
		if name == c.Backend {
			found = true
			break
		}
	}
	if !found {
		return errors.Wrapf(ErrInvalidArgument, "unknown backend '%s', available: %v", c.Backend, backend.Available())
	}

	return nil
}

// RuntimeConfig returns the configuration to open the device runtime with.
func (c Config) RuntimeConfig() device.Config {
	rc := c.Runtime
	if rc.Devices == 0 {
		for _, id := range c.Transfer.Devices {
			if id+1 > rc.Devices {
				rc.Devices = id + 1
			}
		}
	}
	return rc
}

// LoadConfig reads a yaml or json file on top of the default configuration.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := ioutil.ReadFile(configFile)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "can't parse %s", configFile)
	}

	return &cfg, nil
}

// Save writes the configuration to a yaml or json file.
func (c Config) Save(configFile string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	default:
		data, err = yaml.Marshal(c)
	}

	if err != nil {
		return err
	}

	return ioutil.WriteFile(configFile, data, 0644)
}
