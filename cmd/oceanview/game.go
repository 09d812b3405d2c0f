package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/config"
	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/ocean"
)

// Game drives the simulation from the ebiten loop and keeps the last
// completed frame for drawing.
type Game struct {
	sim    *ocean.Simulation
	dev    compute.Device
	render config.RenderConfig

	// params holds pending edits; dirty marks them for Reconfigure.
	params    ocean.Params
	windAngle float64
	dirty     bool

	t          float64
	paused     bool
	timeScale  float64
	choppiness float64
	pending    *ocean.Frame

	n        int
	height   ocean.RealField
	dispX    ocean.RealField
	dispZ    ocean.RealField
	stats    ocean.Stats
	shownSeq uint64
	pixels   []byte

	lastSimDuration time.Duration
	lastStatsLog    time.Time

	autoDrift         bool
	autoDriftDeadline time.Time
	autoDriftRand     *rand.Rand
	autoDriftTurn     float64
	autoDriftGust     float64
	autoDriftFrames   int
}

// newGame builds the simulation described by cfg on dev.
func newGame(cfg *config.Config, dev compute.Device) (*Game, error) {
	p, err := cfg.Params()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	sim, err := ocean.New(context.Background(), dev, p, opts)
	if err != nil {
		return nil, err
	}
	return &Game{
		sim:        sim,
		dev:        dev,
		render:     cfg.Render,
		params:     p,
		windAngle:  math.Atan2(p.Wind[1], p.Wind[0]),
		timeScale:  cfg.Render.TimeScale,
		choppiness: cfg.Render.Choppiness,
		n:          p.N,
	}, nil
}

// Update applies input, reconfigures the spectrum when it changed and
// advances the simulation by one tick.
func (g *Game) Update() error {
	g.handleControls()
	if g.autoDrift && time.Now().After(g.autoDriftDeadline) {
		g.autoDrift = false
		slog.Info("scripted wind drift finished")
		if *recordDefaultPGO {
			return ebiten.Termination
		}
	}
	if g.dirty {
		if err := g.applyParams(); err != nil {
			return err
		}
	}
	if !g.paused {
		g.t += g.timeScale / float64(g.render.TargetFPS)
	}

	start := time.Now()
	if err := g.advance(context.Background()); err != nil {
		return err
	}
	g.lastSimDuration = time.Since(start)
	g.logStats()
	return nil
}

// applyParams pushes the pending parameter edits to the simulation.
// Rejected parameters are logged and rolled back.
func (g *Game) applyParams() error {
	g.dirty = false
	p := g.params
	p.Wind = [2]float64{math.Cos(g.windAngle), math.Sin(g.windAngle)}
	ctx, cancel := context.WithTimeout(context.Background(), reconfigureTimeout)
	defer cancel()
	if err := g.sim.Reconfigure(ctx, p); err != nil {
		var cfgErr *ocean.ConfigError
		if !errors.As(err, &cfgErr) {
			return fmt.Errorf("reconfiguring ocean: %w", err)
		}
		slog.Warn("ocean parameters rejected", "err", err)
		g.params = g.sim.Params()
		g.windAngle = math.Atan2(g.params.Wind[1], g.params.Wind[0])
		return nil
	}
	g.params = p
	if p.N != g.n {
		g.n = p.N
		g.pending = nil
		scale := g.render.Scale
		ebiten.SetWindowSize(g.n*scale, g.n*scale)
	}
	return nil
}

// advance submits the next frame and collects a finished one. With double
// buffering the previous frame is read while the next computes; otherwise
// the pending frame is read before its outputs are reused.
func (g *Game) advance(ctx context.Context) error {
	if g.sim.Options().DoubleBuffer {
		next, err := g.sim.Step(g.t)
		if err != nil {
			return err
		}
		prev := g.pending
		g.pending = next
		if prev == nil {
			return nil
		}
		return g.collect(ctx, prev)
	}
	if g.pending != nil {
		if err := g.collect(ctx, g.pending); err != nil {
			return err
		}
	}
	f, err := g.sim.Step(g.t)
	if err != nil {
		return err
	}
	g.pending = f
	return nil
}

// collect reads the fields of f and repaints. Stale frames are skipped.
func (g *Game) collect(ctx context.Context, f *ocean.Frame) error {
	height, err := f.Read(ctx, ocean.Height)
	if err != nil {
		return skipStale(err)
	}
	var dx, dz ocean.RealField
	if g.sim.Options().Choppy {
		if dx, err = f.Read(ctx, ocean.DisplaceX); err != nil {
			return skipStale(err)
		}
		if dz, err = f.Read(ctx, ocean.DisplaceZ); err != nil {
			return skipStale(err)
		}
	}
	g.height, g.dispX, g.dispZ = height, dx, dz
	g.stats = height.Stats()
	g.shownSeq = f.Seq()
	g.paint()
	return nil
}

func skipStale(err error) error {
	if errors.Is(err, ocean.ErrFrameStale) {
		return nil
	}
	return err
}

// logStats periodically reports the height statistics of the shown frame.
func (g *Game) logStats() {
	if !*debugFlag || g.shownSeq == 0 {
		return
	}
	now := time.Now()
	if now.Sub(g.lastStatsLog) < statsLogInterval {
		return
	}
	slog.Info("ocean frame",
		"seq", g.shownSeq,
		"t", g.t,
		"min", g.stats.Min,
		"max", g.stats.Max,
		"rms", g.stats.RMS,
		"sim_ms", g.lastSimDuration.Seconds()*1000)
	g.lastStatsLog = now
}

// Close releases the simulation and the device.
func (g *Game) Close() {
	if err := g.sim.Close(); err != nil {
		slog.Warn("closing simulation", "err", err)
	}
	if err := g.dev.Close(); err != nil {
		slog.Warn("closing device", "err", err)
	}
}
