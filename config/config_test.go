package config

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute/emu"
	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/ocean"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ocean.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	p, err := cfg.Params()
	if err != nil {
		t.Fatal(err)
	}
	want := ocean.DefaultParams()
	if p.N != want.N || p.Length != want.Length || p.Amplitude != want.Amplitude || p.WindSpeed != want.WindSpeed {
		t.Fatalf("defaults %+v do not match ocean.DefaultParams %+v", p, want)
	}
	if l := math.Hypot(p.Wind[0], p.Wind[1]); math.Abs(l-1) > 1e-12 {
		t.Fatalf("wind %v is not normalized", p.Wind)
	}
	opts, err := cfg.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Precision != ocean.PrecisionFloat || !opts.Choppy || !opts.DoubleBuffer {
		t.Fatalf("default options %+v", opts)
	}
	if cfg.Pipeline.Device != DeviceEmu {
		t.Fatalf("default device %q", cfg.Pipeline.Device)
	}
}

func TestDefaultsStayFinite(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	p, err := cfg.Params()
	if err != nil {
		t.Fatal(err)
	}
	opts, err := cfg.Options()
	if err != nil {
		t.Fatal(err)
	}
	dev := emu.New()
	defer dev.Close()
	sim, err := ocean.New(context.Background(), dev, p, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()
	f, err := sim.Step(1)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []ocean.Component{ocean.Height, ocean.DisplaceX, ocean.DisplaceZ} {
		field, err := f.Read(context.Background(), c)
		if err != nil {
			t.Fatal(err)
		}
		if !field.Finite() {
			t.Fatalf("%s field of the default configuration is not finite", c)
		}
		if s := field.Stats(); s.RMS == 0 {
			t.Fatalf("%s field is flat", c)
		}
	}
}

func TestLoadOverlay(t *testing.T) {
	path := writeFile(t, `
ocean:
  resolution: 64
  amplitude: 0.1
pipeline:
  precision: half
  device: opencl
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Ocean.Resolution != 64 || cfg.Ocean.Length != 1000 || cfg.Ocean.Amplitude != 0.1 {
		t.Fatalf("ocean section %+v", cfg.Ocean)
	}
	opts, err := cfg.Options()
	if err != nil || opts.Precision != ocean.PrecisionHalf {
		t.Fatalf("options %+v, %v", opts, err)
	}
	if cfg.Pipeline.Device != DeviceOpenCL || !cfg.Pipeline.Choppy {
		t.Fatalf("pipeline section %+v", cfg.Pipeline)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{"resolution", "ocean:\n  resolution: 100\n", ocean.ErrNotPowerOfTwo},
		{"too large", "ocean:\n  resolution: 4096\n", ocean.ErrResolutionTooLarge},
		{"wind", "ocean:\n  wind_direction: [0, 0]\n", ocean.ErrInvalidWind},
		{"wind arity", "ocean:\n  wind_direction: [1]\n", nil},
		{"precision", "pipeline:\n  precision: double\n", nil},
		{"half range", "pipeline:\n  precision: half\n", ocean.ErrHalfRange},
		{"device", "pipeline:\n  device: vulkan\n", nil},
		{"scale", "render:\n  scale: 0\n", nil},
		{"syntax", "ocean: [\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			if err == nil {
				t.Fatal("Load succeeded")
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Ocean.Resolution = 32
	cfg.Dump.Frames = 7
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Ocean.Resolution != 32 || back.Dump.Frames != 7 || back.Dump.Output != cfg.Dump.Output {
		t.Fatalf("round trip lost fields: %+v", back)
	}
}
