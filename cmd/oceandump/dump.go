package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/config"
	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/ocean"
)

// dump runs cfg.Dump.Frames frames spaced cfg.Dump.TimeStep apart on dev
// and writes the statistics of every active component to sw. With double
// buffering each frame is read while the next one computes.
func dump(ctx context.Context, dev compute.Device, cfg *config.Config, sw *statsWriter) error {
	p, err := cfg.Params()
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	sim, err := ocean.New(ctx, dev, p, opts)
	if err != nil {
		return err
	}
	defer sim.Close()

	components := []ocean.Component{ocean.Height}
	if opts.Choppy {
		components = append(components, ocean.DisplaceX, ocean.DisplaceZ)
	}
	collect := func(f *ocean.Frame) error {
		records := make([]statsRecord, 0, len(components))
		for _, c := range components {
			field, err := f.Read(ctx, c)
			if err != nil {
				return err
			}
			if !field.Finite() {
				return fmt.Errorf("frame %d: %s field is not finite", f.Seq(), c)
			}
			records = append(records, newStatsRecord(f.Seq(), f.Time(), c, field.Stats()))
		}
		return sw.Write(records)
	}

	var pending *ocean.Frame
	for i := 0; i < cfg.Dump.Frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := sim.Step(float64(i) * cfg.Dump.TimeStep)
		if err != nil {
			return err
		}
		if !opts.DoubleBuffer {
			if err := collect(f); err != nil {
				return err
			}
			continue
		}
		if pending != nil {
			if err := collect(pending); err != nil {
				return err
			}
		}
		pending = f
	}
	if pending != nil {
		if err := collect(pending); err != nil {
			return err
		}
	}
	slog.Info("dump finished", "frames", cfg.Dump.Frames, "rows", sw.rows)
	return nil
}
