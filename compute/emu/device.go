// Package emu is a reference compute device. It runs each kernel's host
// entry point once per invocation, workgroup by workgroup, on a pool of
// goroutines, and stores textures in their declared formats.
//
// Submissions execute in order on a single queue goroutine. Before a command
// list is queued it is checked for read-after-write hazards: a dispatch that
// reads a texture written since the last barrier is rejected with
// compute.ErrHazard, so code that is correct here is correctly synchronized
// on hardware too.
package emu

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
)

// Device is the emulated device. The zero value is not usable; call New.
type Device struct {
	name        string
	workers     int
	unsupported map[compute.Format]bool

	mu     sync.Mutex
	nextID uint64
	live   map[uint64]string
	closed bool

	jobs chan job
	wg   sync.WaitGroup
}

// Option configures a Device.
type Option func(*Device)

// WithWorkers sets the number of goroutines executing a dispatch.
func WithWorkers(n int) Option {
	return func(d *Device) { d.workers = n }
}

// WithName overrides the device name.
func WithName(name string) Option {
	return func(d *Device) { d.name = name }
}

// WithUnsupportedFormats makes the device refuse textures of the given
// formats, standing in for hardware without those storage formats.
func WithUnsupportedFormats(formats ...compute.Format) Option {
	return func(d *Device) {
		for _, f := range formats {
			d.unsupported[f] = true
		}
	}
}

type job struct {
	run  func() error
	done chan error
}

// New starts a device and its queue goroutine.
func New(opts ...Option) *Device {
	d := &Device{
		name:        "emu",
		workers:     runtime.GOMAXPROCS(0),
		unsupported: make(map[compute.Format]bool),
		live:        make(map[uint64]string),
		jobs:        make(chan job, 8),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.workers < 1 {
		d.workers = 1
	}
	d.wg.Add(1)
	go d.queueLoop()
	return d
}

func (d *Device) queueLoop() {
	defer d.wg.Done()
	for j := range d.jobs {
		j.done <- j.run()
	}
}

func (d *Device) Name() string { return d.name }

// Live returns the labels of resources created and not yet released,
// sorted.
func (d *Device) Live() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	labels := make([]string, 0, len(d.live))
	for _, l := range d.live {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func (d *Device) track(label string) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, compute.ErrClosed
	}
	d.nextID++
	d.live[d.nextID] = label
	return d.nextID, nil
}

func (d *Device) forget(id uint64) {
	d.mu.Lock()
	delete(d.live, id)
	d.mu.Unlock()
}

func (d *Device) SupportsFormat(f compute.Format, u compute.Usage) bool {
	if f.Channels() == 0 || d.unsupported[f] {
		return false
	}
	return u&(compute.UsageSampled|compute.UsageStorage) != 0
}

func (d *Device) CreateTexture(desc compute.TextureDesc) (compute.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("creating texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if !d.SupportsFormat(desc.Format, desc.Usage) {
		return nil, fmt.Errorf("creating texture %q: %w: %s", desc.Label, compute.ErrUnsupportedFormat, desc.Format)
	}
	id, err := d.track("texture " + desc.Label)
	if err != nil {
		return nil, err
	}
	return newTexture(d, id, desc), nil
}

type pipeline struct {
	dev      *Device
	id       uint64
	kernel   compute.Kernel
	released atomic.Bool
}

func (p *pipeline) Kernel() compute.Kernel { return p.kernel }

func (p *pipeline) Release() {
	if p.released.CompareAndSwap(false, true) {
		p.dev.forget(p.id)
	}
}

func (d *Device) CreatePipeline(k compute.Kernel) (compute.Pipeline, error) {
	if k.Host == nil {
		return nil, fmt.Errorf("creating pipeline %s: kernel has no host entry point", k.Name)
	}
	if k.WorkgroupSize[0] <= 0 || k.WorkgroupSize[1] <= 0 {
		return nil, fmt.Errorf("creating pipeline %s: invalid workgroup size %v", k.Name, k.WorkgroupSize)
	}
	id, err := d.track("pipeline " + k.Name)
	if err != nil {
		return nil, err
	}
	return &pipeline{dev: d, id: id, kernel: k}, nil
}

type resourceSet struct {
	dev      *Device
	id       uint64
	pipeline *pipeline
	slots    []*texture
	access   []compute.Access
	released atomic.Bool
}

func (s *resourceSet) Release() {
	if s.released.CompareAndSwap(false, true) {
		s.dev.forget(s.id)
	}
}

func (d *Device) CreateResourceSet(p compute.Pipeline, bindings []compute.Binding) (compute.ResourceSet, error) {
	pp, ok := p.(*pipeline)
	if !ok || pp.dev != d {
		return nil, fmt.Errorf("creating resource set: %w", compute.ErrForeignResource)
	}
	maxSlot := -1
	for _, b := range bindings {
		if b.Slot > maxSlot {
			maxSlot = b.Slot
		}
	}
	set := &resourceSet{
		dev:      d,
		pipeline: pp,
		slots:    make([]*texture, maxSlot+1),
		access:   make([]compute.Access, maxSlot+1),
	}
	for _, b := range bindings {
		t, ok := b.Texture.(*texture)
		if !ok || t.dev != d {
			return nil, fmt.Errorf("creating resource set for %s: slot %d: %w", pp.kernel.Name, b.Slot, compute.ErrForeignResource)
		}
		if b.Slot < 0 || set.slots[b.Slot] != nil {
			return nil, fmt.Errorf("creating resource set for %s: %w: slot %d bound twice or negative", pp.kernel.Name, compute.ErrBinding, b.Slot)
		}
		if b.Access == 0 {
			return nil, fmt.Errorf("creating resource set for %s: %w: slot %d has no access", pp.kernel.Name, compute.ErrBinding, b.Slot)
		}
		if b.Access&compute.AccessWrite != 0 && t.desc.Usage&compute.UsageStorage == 0 {
			return nil, fmt.Errorf("creating resource set for %s: %w: slot %d (%s) is not a storage texture", pp.kernel.Name, compute.ErrBinding, b.Slot, t.desc.Label)
		}
		set.slots[b.Slot] = t
		set.access[b.Slot] = b.Access
	}
	for slot, t := range set.slots {
		if t == nil {
			return nil, fmt.Errorf("creating resource set for %s: %w: slot %d unbound", pp.kernel.Name, compute.ErrBinding, slot)
		}
	}
	id, err := d.track("resource set " + pp.kernel.Name)
	if err != nil {
		return nil, err
	}
	set.id = id
	return set, nil
}

// enqueue hands run to the queue goroutine.
func (d *Device) enqueue(run func() error) (chan error, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, compute.ErrClosed
	}
	done := make(chan error, 1)
	d.jobs <- job{run: run, done: done}
	return done, nil
}

func wait(ctx context.Context, done chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Device) hostTexture(t compute.Texture) (*texture, error) {
	tt, ok := t.(*texture)
	if !ok || tt.dev != d {
		return nil, compute.ErrForeignResource
	}
	if tt.released.Load() {
		return nil, compute.ErrReleased
	}
	return tt, nil
}

func (d *Device) WriteTexture(ctx context.Context, t compute.Texture, data []byte) error {
	tt, err := d.hostTexture(t)
	if err != nil {
		return fmt.Errorf("writing texture: %w", err)
	}
	if len(data) != tt.desc.ByteSize() {
		return fmt.Errorf("writing texture %q: got %d bytes, want %d", tt.desc.Label, len(data), tt.desc.ByteSize())
	}
	buf := append([]byte(nil), data...)
	done, err := d.enqueue(func() error {
		tt.setBytes(buf)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing texture %q: %w", tt.desc.Label, err)
	}
	return wait(ctx, done)
}

func (d *Device) ReadTexture(ctx context.Context, t compute.Texture) ([]byte, error) {
	tt, err := d.hostTexture(t)
	if err != nil {
		return nil, fmt.Errorf("reading texture: %w", err)
	}
	var out []byte
	done, err := d.enqueue(func() error {
		out = tt.bytes()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading texture %q: %w", tt.desc.Label, err)
	}
	if err := wait(ctx, done); err != nil {
		return nil, err
	}
	return out, nil
}

// Close drains queued work and stops the queue goroutine. Live still
// reports resources that were never released.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}
