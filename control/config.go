package control

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/abhi-jeet-kumar/beamline-rt-sim/safety"
)

const (
	minFrequencyHz = 10.0
	maxFrequencyHz = 2000.0
)

// PIDConfig is the PID regulator's configuration block.
type PIDConfig struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`

	Setpoint float64 `yaml:"setpoint"`

	IntegMin float64 `yaml:"integ_min"`
	IntegMax float64 `yaml:"integ_max"`
}

// WatchdogConfig is the deadline watchdog's configuration block.
type WatchdogConfig struct {
	WarningRatio             float64 `yaml:"warning_ratio"`
	ConsecutiveMissThreshold uint32  `yaml:"consecutive_miss_threshold"`
	ConsecutiveWarnThreshold uint32  `yaml:"consecutive_warn_threshold"`
}

// Config is the loop's full configuration: frequency, magnet limits,
// PID gains, integrator window, setpoint, and MPS thresholds/detector
// placements.
type Config struct {
	FrequencyHz float64 `yaml:"frequency_hz"`

	MagnetMin float64 `yaml:"magnet_min"`
	MagnetMax float64 `yaml:"magnet_max"`

	PID      PIDConfig          `yaml:"pid"`
	Watchdog WatchdogConfig     `yaml:"watchdog"`
	BLMs     []safety.BLMConfig `yaml:"blms"`

	// AutoReduceOnMiss, when true, reduces FrequencyHz by 20% through
	// the set_freq path every 10 accumulated deadline misses. Disabled
	// by default: the watchdog stays purely observational unless an
	// operator or this opt-in policy acts on it.
	AutoReduceOnMiss bool `yaml:"auto_reduce_on_miss"`
}

// DefaultConfig returns the nominal beamline parameters: hz=1000, magnet
// limits ±2.0, PID gains kp=-0.6 ki=0.05 kd=0.0, setpoint 0.0, integrator
// window ±10.0, default BLM layout, watchdog budget equal to the period
// (derived at NewLoop time) with warning ratio 0.8. kp is negative to
// close the loop against the plant's -0.4 coupling constant with
// negative feedback; see DESIGN.md.
func DefaultConfig() Config {
	return Config{
		FrequencyHz: 1000,
		MagnetMin:   -2.0,
		MagnetMax:   2.0,
		PID: PIDConfig{
			Kp: -0.6, Ki: 0.05, Kd: 0.0,
			Setpoint: 0.0,
			IntegMin: -10.0, IntegMax: 10.0,
		},
		Watchdog: WatchdogConfig{
			WarningRatio:             0.8,
			ConsecutiveMissThreshold: 5,
			ConsecutiveWarnThreshold: 10,
		},
		BLMs: safety.DefaultBLMConfigs(),
	}
}

// LoadConfigFile reads a YAML loop configuration from path, starting
// from DefaultConfig() so a partial file only overrides the fields it
// sets. This is an optional convenience for cmd/beamlinectl; the
// programmatic DefaultConfig() path remains primary.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config file %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing config file %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate clamps the frequency into [10, 2000] and rejects obviously
// inverted limit pairs. Frequency clamping is silent, matching the
// command-parameter-bounds behavior used throughout this package;
// inverted limits are a construction-time error since no valid tick
// could ever satisfy them.
func (c *Config) Validate() error {
	c.FrequencyHz = ClampFrequency(c.FrequencyHz)
	if c.MagnetMin >= c.MagnetMax {
		return errors.Errorf("control: magnet_min (%v) must be < magnet_max (%v)", c.MagnetMin, c.MagnetMax)
	}
	if c.PID.IntegMin >= c.PID.IntegMax {
		return errors.Errorf("control: pid.integ_min (%v) must be < pid.integ_max (%v)", c.PID.IntegMin, c.PID.IntegMax)
	}
	return nil
}

// ClampFrequency clamps hz into the supported range [10, 2000].
func ClampFrequency(hz float64) float64 {
	return clamp(hz, minFrequencyHz, maxFrequencyHz)
}
