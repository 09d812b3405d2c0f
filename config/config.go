// Package config loads the ocean tools' configuration from YAML, layered
// over embedded defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/ocean"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Device names accepted by pipeline.device.
const (
	DeviceEmu    = "emu"
	DeviceOpenCL = "opencl"
)

// Config holds every configuration section.
type Config struct {
	Ocean    OceanConfig    `yaml:"ocean"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Render   RenderConfig   `yaml:"render"`
	Dump     DumpConfig     `yaml:"dump"`
}

// OceanConfig holds the spectrum parameters.
type OceanConfig struct {
	Resolution    int       `yaml:"resolution"`
	Length        int       `yaml:"length"`
	Amplitude     float64   `yaml:"amplitude"`
	WindDirection []float64 `yaml:"wind_direction"`
	WindSpeed     float64   `yaml:"wind_speed"`
}

// PipelineConfig selects the compute device and pipeline features.
type PipelineConfig struct {
	Device       string `yaml:"device"`
	Precision    string `yaml:"precision"`
	Choppy       bool   `yaml:"choppy"`
	Seed         int64  `yaml:"seed"`
	DoubleBuffer bool   `yaml:"double_buffer"`
	Workers      int    `yaml:"workers"`
}

// RenderConfig holds viewer settings.
type RenderConfig struct {
	Scale       int     `yaml:"scale"`
	TargetFPS   int     `yaml:"target_fps"`
	Choppiness  float64 `yaml:"choppiness"`
	TimeScale   float64 `yaml:"time_scale"`
	HeightRange float64 `yaml:"height_range"`
}

// DumpConfig holds headless run settings.
type DumpConfig struct {
	Frames   int     `yaml:"frames"`
	TimeStep float64 `yaml:"time_step"`
	Output   string  `yaml:"output"`
}

// Load reads the embedded defaults and overlays the file at path, if any.
// Fields missing from the file keep their default. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	p, err := c.Params()
	if err != nil {
		return err
	}
	opts, err := c.Options()
	if err != nil {
		return err
	}
	if err := p.ValidateFor(opts); err != nil {
		return fmt.Errorf("config: pipeline.precision %s: %w", opts.Precision, err)
	}
	switch c.Pipeline.Device {
	case DeviceEmu, DeviceOpenCL:
	default:
		return fmt.Errorf("config: pipeline.device %q: want %q or %q", c.Pipeline.Device, DeviceEmu, DeviceOpenCL)
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("config: pipeline.workers %d is negative", c.Pipeline.Workers)
	}
	if c.Render.Scale < 1 || c.Render.TargetFPS < 1 {
		return fmt.Errorf("config: render.scale and render.target_fps must be positive")
	}
	if c.Render.TimeScale < 0 || c.Render.HeightRange <= 0 {
		return fmt.Errorf("config: render.time_scale must be non-negative and render.height_range positive")
	}
	if c.Dump.Frames < 0 || c.Dump.TimeStep < 0 {
		return fmt.Errorf("config: dump.frames and dump.time_step must be non-negative")
	}
	return nil
}

// Params converts the ocean section to validated spectrum parameters.
func (c *Config) Params() (ocean.Params, error) {
	o := c.Ocean
	if len(o.WindDirection) != 2 {
		return ocean.Params{}, fmt.Errorf("config: ocean.wind_direction has %d components, want 2", len(o.WindDirection))
	}
	p := ocean.Params{
		N:         o.Resolution,
		Length:    o.Length,
		Amplitude: o.Amplitude,
		Wind:      [2]float64{o.WindDirection[0], o.WindDirection[1]},
		WindSpeed: o.WindSpeed,
	}
	if err := p.Validate(); err != nil {
		return ocean.Params{}, fmt.Errorf("config: %w", err)
	}
	p.Wind = p.WindDirection()
	return p, nil
}

// Options converts the pipeline section to simulation options.
func (c *Config) Options() (ocean.Options, error) {
	var prec ocean.Precision
	switch c.Pipeline.Precision {
	case "float", "":
		prec = ocean.PrecisionFloat
	case "half":
		prec = ocean.PrecisionHalf
	default:
		return ocean.Options{}, fmt.Errorf("config: pipeline.precision %q: want half or float", c.Pipeline.Precision)
	}
	return ocean.Options{
		Choppy:       c.Pipeline.Choppy,
		Precision:    prec,
		Seed:         c.Pipeline.Seed,
		DoubleBuffer: c.Pipeline.DoubleBuffer,
	}, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
