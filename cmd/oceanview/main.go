// Command oceanview renders the ocean height field live and lets the wind
// be steered from the keyboard.
//
//	Left/Right  rotate the wind
//	Up/Down     wind speed
//	[ ]         Phillips amplitude
//	PgUp/PgDn   grid resolution
//	C V         choppiness
//	Space       pause
//	- +         time scale (with -debug)
package main

import (
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

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

	dev, err := devices.Open(cfg.Pipeline)
	if err != nil {
		log.Fatalf("Compute device initialization failed: %v", err)
	}
	g, err := newGame(cfg, dev)
	if err != nil {
		dev.Close()
		log.Fatalf("Ocean initialization failed: %v", err)
	}
	slog.Info("ocean viewer started", "device", dev.Name(), "n", cfg.Ocean.Resolution)

	if err := run(g, cfg); err != nil {
		g.Close()
		log.Fatalf("Viewer failed: %v", err)
	}
	g.Close()
}

func run(g *Game, cfg *config.Config) error {
	profilePath := *cpuProfileFlag
	if *recordDefaultPGO {
		profilePath = pgoProfilePath
		g.enableAutoDrift(pgoRecordDuration)
	}
	if profilePath != "" {
		stop, err := startCPUProfile(profilePath)
		if err != nil {
			return err
		}
		defer stop()
		slog.Info("recording CPU profile", "path", profilePath)
	}

	scale := cfg.Render.Scale
	ebiten.SetWindowSize(g.n*scale, g.n*scale)
	ebiten.SetWindowTitle(windowTitle)
	ebiten.SetTPS(cfg.Render.TargetFPS)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

// applyFlags copies non-zero flag overrides into cfg and revalidates it.
func applyFlags(cfg *config.Config) error {
	if *deviceFlag != "" {
		cfg.Pipeline.Device = *deviceFlag
	}
	if *resolutionFlag != 0 {
		cfg.Ocean.Resolution = *resolutionFlag
	}
	return cfg.Validate()
}
