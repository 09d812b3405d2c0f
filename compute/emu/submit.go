package emu

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
)

type fence struct {
	err      error
	finished atomic.Bool
	waited   chan struct{}
}

func (f *fence) Wait(ctx context.Context) error {
	select {
	case <-f.waited:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fence) Done() bool { return f.finished.Load() }

// step is one resolved dispatch of a command list.
type step struct {
	label   string
	kernel  compute.Kernel
	set     *resourceSet
	params  []byte
	groupsX int
	groupsY int
}

// resolve checks ownership and barrier placement and flattens the list into
// dispatch steps.
func (d *Device) resolve(list *compute.CommandList) ([]step, error) {
	var (
		steps  []step
		pass   string
		set    *resourceSet
		params []byte
		dirty  = make(map[*texture]int)
		index  int
	)
	for i, c := range list.Commands {
		switch c.Kind {
		case compute.CmdBeginPass:
			pass = c.Label
		case compute.CmdSetPipeline:
			s, ok := c.Set.(*resourceSet)
			if !ok || s.dev != d {
				return nil, fmt.Errorf("command %d: %w", i, compute.ErrForeignResource)
			}
			p, ok := c.Pipeline.(*pipeline)
			if !ok || p != s.pipeline {
				return nil, fmt.Errorf("command %d: %w: resource set was created for another pipeline", i, compute.ErrBinding)
			}
			if p.released.Load() || s.released.Load() {
				return nil, fmt.Errorf("command %d (%s): %w", i, p.kernel.Name, compute.ErrReleased)
			}
			set = s
			params = nil
		case compute.CmdPushConstants:
			params = c.Params
		case compute.CmdDispatch:
			if set == nil {
				return nil, fmt.Errorf("command %d: %w: dispatch without a pipeline", i, compute.ErrEncoding)
			}
			k := set.pipeline.kernel
			for slot, t := range set.slots {
				if t.released.Load() {
					return nil, fmt.Errorf("pass %q dispatch %d (%s) slot %d: %w", pass, index, k.Name, slot, compute.ErrReleased)
				}
				if set.access[slot]&compute.AccessRead == 0 {
					continue
				}
				if at, ok := dirty[t]; ok {
					return nil, fmt.Errorf("pass %q dispatch %d (%s) reads %q written by dispatch %d: %w",
						pass, index, k.Name, t.desc.Label, at, compute.ErrHazard)
				}
			}
			for slot, t := range set.slots {
				if set.access[slot]&compute.AccessWrite != 0 {
					dirty[t] = index
				}
			}
			steps = append(steps, step{
				label:   pass,
				kernel:  k,
				set:     set,
				params:  params,
				groupsX: c.GroupsX,
				groupsY: c.GroupsY,
			})
			index++
		case compute.CmdBarrier, compute.CmdEndPass:
			clear(dirty)
		}
	}
	return steps, nil
}

// Submit validates list and queues it. Validation errors are returned
// directly; execution errors are reported by the fence.
func (d *Device) Submit(list *compute.CommandList) (compute.Fence, error) {
	steps, err := d.resolve(list)
	if err != nil {
		return nil, fmt.Errorf("submitting %q: %w", list.Label, err)
	}
	f := &fence{waited: make(chan struct{})}
	done, err := d.enqueue(func() error {
		return d.execute(steps)
	})
	if err != nil {
		return nil, fmt.Errorf("submitting %q: %w", list.Label, err)
	}
	go func() {
		f.err = <-done
		f.finished.Store(true)
		close(f.waited)
	}()
	return f, nil
}

func (d *Device) execute(steps []step) error {
	for i, s := range steps {
		fn, err := s.kernel.Host(s.params)
		if err != nil {
			return fmt.Errorf("pass %q dispatch %d (%s): %w", s.label, i, s.kernel.Name, err)
		}
		res := &bound{slots: s.set.slots, access: s.set.access}
		if err := d.dispatch(s.kernel, fn, res, s.groupsX, s.groupsY); err != nil {
			return fmt.Errorf("pass %q dispatch %d: %w", s.label, i, err)
		}
	}
	return nil
}
