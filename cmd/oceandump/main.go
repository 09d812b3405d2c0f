// Command oceandump runs the ocean pipeline without a window and writes
// per-frame field statistics to CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/config"
	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/internal/devices"
	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/ocean"
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	ocean.SetLogger(logger)

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}
	if err := applyFlags(cfg); err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		stop()
		log.Fatalf("Dump failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if *writeConfigFlag != "" {
		if err := cfg.WriteYAML(*writeConfigFlag); err != nil {
			return err
		}
	}
	if *cpuProfileFlag != "" {
		f, err := os.Create(*cpuProfileFlag)
		if err != nil {
			return fmt.Errorf("creating profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("starting profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	dev, err := devices.Open(cfg.Pipeline)
	if err != nil {
		return err
	}
	defer dev.Close()

	out, err := os.Create(cfg.Dump.Output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", cfg.Dump.Output, err)
	}
	defer out.Close()

	slog.Info("dumping ocean statistics",
		"device", dev.Name(),
		"n", cfg.Ocean.Resolution,
		"frames", cfg.Dump.Frames,
		"output", cfg.Dump.Output)
	if err := dump(ctx, dev, cfg, newStatsWriter(out)); err != nil {
		return err
	}
	return out.Close()
}

// applyFlags copies non-zero flag overrides into cfg and revalidates it.
func applyFlags(cfg *config.Config) error {
	if *deviceFlag != "" {
		cfg.Pipeline.Device = *deviceFlag
	}
	if *framesFlag > 0 {
		cfg.Dump.Frames = *framesFlag
	}
	if *outputFlag != "" {
		cfg.Dump.Output = *outputFlag
	}
	return cfg.Validate()
}
