package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Trajectory TrajectoryConfig `yaml:"trajectory"`
	Maneuver   ManeuverConfig   `yaml:"maneuver"`
	Control    ControlConfig    `yaml:"control"`
	Altitude   AltitudeConfig   `yaml:"altitude"`
	Output     OutputConfig     `yaml:"output"`
	Web        WebConfig        `yaml:"web"`
	Indicator  IndicatorConfig  `yaml:"indicator"`
	Sim        SimConfig        `yaml:"sim"`
}

type TrajectoryConfig struct {
	Dir string `yaml:"dir"`
	// Files overrides the catalog file for a maneuver id. Relative paths are
	// resolved against Dir.
	Files map[int]string `yaml:"files"`
}

type ManeuverConfig struct {
	FinishThreshold int `yaml:"finish_threshold"`
}

type ControlConfig struct {
	TimeConstant float64 `yaml:"time_constant"`
	MaxBodyRate  float64 `yaml:"max_body_rate"`
}

type AltitudeConfig struct {
	MaxStep time.Duration `yaml:"max_step"`
}

type OutputConfig struct {
	UDPDest string       `yaml:"udp_dest"`
	Record  RecordConfig `yaml:"record"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

type IndicatorConfig struct {
	Enable bool `yaml:"enable"`
	Pin    int  `yaml:"pin"`
	// Chip is the gpiochip device name.
	Chip string `yaml:"chip"`
}

type SimConfig struct {
	Enable bool `yaml:"enable"`
	// Rate is the attitude sample rate in Hz.
	Rate   float64 `yaml:"rate"`
	Script string  `yaml:"script"`
	// RateLag is the first-order time constant between commanded and achieved
	// body rate.
	RateLag    time.Duration `yaml:"rate_lag"`
	ClimbRate  float64       `yaml:"climb_rate"`
	InitialAlt float64       `yaml:"initial_alt"`
}

const (
	DefaultFinishThreshold = 200
	DefaultTimeConstant    = 0.3
	DefaultAltitudeMaxStep = 500 * time.Millisecond
	DefaultTrajectoryDir   = "trajectories"
	DefaultWebListen       = ":8080"
	DefaultIndicatorChip   = "gpiochip0"
	DefaultSimRate         = 250
	DefaultSimRateLag      = 50 * time.Millisecond
)

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(b)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML strictly and applies DefaultAndValidate.
func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		if strings.Contains(err.Error(), "not found in type") {
			return Config{}, fmt.Errorf("config contains unknown fields: %s", unknownFieldDetail(err))
		}
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// unknownFieldDetail strips yaml.v3's "yaml: unmarshal errors:\n  line N: "
// prefix so the message names only the offending field.
func unknownFieldDetail(err error) string {
	var te *yaml.TypeError
	if errors.As(err, &te) && len(te.Errors) > 0 {
		msg := te.Errors[0]
		if i := strings.Index(msg, ": "); i >= 0 && strings.HasPrefix(msg, "line ") {
			msg = msg[i+2:]
		}
		return msg
	}
	return err.Error()
}

// DefaultAndValidate fills zero values with defaults and rejects invalid
// combinations. It is also used for configs built in code.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if strings.TrimSpace(cfg.Trajectory.Dir) == "" {
		cfg.Trajectory.Dir = DefaultTrajectoryDir
	}
	for id, p := range cfg.Trajectory.Files {
		if id <= 0 {
			return fmt.Errorf("trajectory.files: maneuver id %d must be > 0", id)
		}
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("trajectory.files: path for maneuver %d is empty", id)
		}
	}

	if cfg.Maneuver.FinishThreshold == 0 {
		cfg.Maneuver.FinishThreshold = DefaultFinishThreshold
	}
	if cfg.Maneuver.FinishThreshold < 0 {
		return fmt.Errorf("maneuver.finish_threshold must be > 0")
	}

	if cfg.Control.TimeConstant == 0 {
		cfg.Control.TimeConstant = DefaultTimeConstant
	}
	if cfg.Control.TimeConstant < 0 {
		return fmt.Errorf("control.time_constant must be > 0")
	}
	if cfg.Control.MaxBodyRate < 0 {
		return fmt.Errorf("control.max_body_rate must be >= 0")
	}

	if cfg.Altitude.MaxStep == 0 {
		cfg.Altitude.MaxStep = DefaultAltitudeMaxStep
	}
	if cfg.Altitude.MaxStep < 0 {
		return fmt.Errorf("altitude.max_step must be > 0")
	}

	if cfg.Output.Record.Enable && strings.TrimSpace(cfg.Output.Record.Path) == "" {
		return fmt.Errorf("output.record.path is required when output.record.enable is true")
	}

	if strings.TrimSpace(cfg.Web.Listen) == "" {
		cfg.Web.Listen = DefaultWebListen
	}

	if cfg.Indicator.Chip == "" {
		cfg.Indicator.Chip = DefaultIndicatorChip
	}
	if cfg.Indicator.Enable && cfg.Indicator.Pin <= 0 {
		return fmt.Errorf("indicator.pin is required when indicator.enable is true")
	}

	// Simulator defaults (safe even if disabled).
	if cfg.Sim.Rate == 0 {
		cfg.Sim.Rate = DefaultSimRate
	}
	if cfg.Sim.Rate < 0 {
		return fmt.Errorf("sim.rate must be > 0")
	}
	if cfg.Sim.RateLag == 0 {
		cfg.Sim.RateLag = DefaultSimRateLag
	}
	if cfg.Sim.RateLag < 0 {
		return fmt.Errorf("sim.rate_lag must be >= 0")
	}
	if cfg.Sim.Enable && strings.TrimSpace(cfg.Sim.Script) == "" {
		return fmt.Errorf("sim.script is required when sim.enable is true")
	}

	return nil
}

// Interval is the time between simulated attitude samples.
func (c SimConfig) Interval() time.Duration {
	if c.Rate <= 0 {
		return time.Second / DefaultSimRate
	}
	return time.Duration(float64(time.Second) / c.Rate)
}
