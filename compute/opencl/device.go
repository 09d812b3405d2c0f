//go:build opencl

package opencl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
)

// Device drives one OpenCL device through a single in-order command queue.
// Kernels of one queue run in submission order and each sees the writes of
// the ones before it, so barriers need no commands of their own.
type Device struct {
	mu      sync.Mutex
	context *cl.Context
	queue   *cl.CommandQueue
	device  *cl.Device
	name    string
	closed  bool
}

// New opens the first GPU found on any platform, falling back to a CPU
// device.
func New() (*Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	if len(platforms) == 0 {
		return nil, errors.New("no OpenCL platforms available; ensure a vendor driver is installed and detected by `clinfo`")
	}
	device := firstDevice(platforms, cl.DeviceTypeGPU)
	if device == nil {
		device = firstDevice(platforms, cl.DeviceTypeCPU)
	}
	if device == nil {
		return nil, errors.New("no suitable OpenCL devices found")
	}

	context, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL context: %w", err)
	}
	queue, err := context.CreateCommandQueue(device, 0)
	if err != nil {
		context.Release()
		return nil, fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	return &Device{
		context: context,
		queue:   queue,
		device:  device,
		name:    device.Name(),
	}, nil
}

func firstDevice(platforms []*cl.Platform, kind cl.DeviceType) *cl.Device {
	for _, p := range platforms {
		devices, err := p.GetDevices(kind)
		if err != nil && err != cl.ErrDeviceNotFound {
			continue
		}
		if len(devices) > 0 {
			return devices[0]
		}
	}
	return nil
}

func (d *Device) Name() string { return d.name }

// SupportsFormat reports true for every known format: textures are plain
// buffers and half storage goes through the core vload_half functions.
func (d *Device) SupportsFormat(f compute.Format, u compute.Usage) bool {
	return f.Channels() > 0 && u&(compute.UsageSampled|compute.UsageStorage) != 0
}

type texture struct {
	dev      *Device
	buf      *cl.MemObject
	desc     compute.TextureDesc
	released atomic.Bool
}

func (t *texture) Desc() compute.TextureDesc { return t.desc }

func (t *texture) Release() {
	if t.released.CompareAndSwap(false, true) {
		t.buf.Release()
	}
}

func (d *Device) CreateTexture(desc compute.TextureDesc) (compute.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("creating texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if !d.SupportsFormat(desc.Format, desc.Usage) {
		return nil, fmt.Errorf("creating texture %q: %w: %s", desc.Label, compute.ErrUnsupportedFormat, desc.Format)
	}
	flags := cl.MemReadWrite
	if desc.Usage&compute.UsageStorage == 0 {
		flags = cl.MemReadOnly
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, compute.ErrClosed
	}
	buf, err := d.context.CreateEmptyBuffer(flags, desc.ByteSize())
	if err != nil {
		return nil, fmt.Errorf("allocating texture %q: %w", desc.Label, err)
	}
	return &texture{dev: d, buf: buf, desc: desc}, nil
}

type pipeline struct {
	dev      *Device
	kernel   compute.Kernel
	program  *cl.Program
	clKernel *cl.Kernel
	// bound caches the buffer set on each slot argument.
	bound    []*cl.MemObject
	released atomic.Bool
}

func (p *pipeline) Kernel() compute.Kernel { return p.kernel }

func (p *pipeline) Release() {
	if p.released.CompareAndSwap(false, true) {
		p.clKernel.Release()
		p.program.Release()
	}
}

func (d *Device) CreatePipeline(k compute.Kernel) (compute.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, compute.ErrClosed
	}
	program, err := d.context.CreateProgramWithSource([]string{k.Source})
	if err != nil {
		return nil, fmt.Errorf("creating program for %s: %w", k.Name, err)
	}
	if err := program.BuildProgram([]*cl.Device{d.device}, k.BuildOptions); err != nil {
		program.Release()
		if buildErr, ok := err.(cl.BuildError); ok {
			return nil, fmt.Errorf("building %s: %s", k.Name, string(buildErr))
		}
		return nil, fmt.Errorf("building %s: %w", k.Name, err)
	}
	kernel, err := program.CreateKernel(k.Name)
	if err != nil {
		program.Release()
		return nil, fmt.Errorf("creating kernel %s: %w", k.Name, err)
	}
	return &pipeline{dev: d, kernel: k, program: program, clKernel: kernel}, nil
}

type resourceSet struct {
	pipeline *pipeline
	slots    []*texture
	released atomic.Bool
}

func (s *resourceSet) Release() { s.released.Store(true) }

func (d *Device) CreateResourceSet(p compute.Pipeline, bindings []compute.Binding) (compute.ResourceSet, error) {
	pp, ok := p.(*pipeline)
	if !ok || pp.dev != d {
		return nil, fmt.Errorf("creating resource set: %w", compute.ErrForeignResource)
	}
	slots := make([]*texture, len(bindings))
	for _, b := range bindings {
		t, ok := b.Texture.(*texture)
		if !ok || t.dev != d {
			return nil, fmt.Errorf("creating resource set for %s: slot %d: %w", pp.kernel.Name, b.Slot, compute.ErrForeignResource)
		}
		if b.Slot < 0 || b.Slot >= len(slots) || slots[b.Slot] != nil {
			return nil, fmt.Errorf("creating resource set for %s: %w: slot %d out of range or bound twice", pp.kernel.Name, compute.ErrBinding, b.Slot)
		}
		if b.Access&compute.AccessWrite != 0 && t.desc.Usage&compute.UsageStorage == 0 {
			return nil, fmt.Errorf("creating resource set for %s: %w: slot %d (%s) is not a storage texture", pp.kernel.Name, compute.ErrBinding, b.Slot, t.desc.Label)
		}
		slots[b.Slot] = t
	}
	return &resourceSet{pipeline: pp, slots: slots}, nil
}

// bind points the slot arguments of the pipeline kernel at the set's
// buffers. Argument 0 is the parameter block.
func (s *resourceSet) bind() error {
	p := s.pipeline
	if len(p.bound) != len(s.slots) {
		p.bound = make([]*cl.MemObject, len(s.slots))
	}
	for slot, t := range s.slots {
		if p.bound[slot] == t.buf {
			continue
		}
		if err := p.clKernel.SetArgBuffer(slot+1, t.buf); err != nil {
			return fmt.Errorf("binding slot %d (%s): %w", slot, t.desc.Label, err)
		}
		p.bound[slot] = t.buf
	}
	return nil
}

func (d *Device) hostTexture(t compute.Texture) (*texture, error) {
	tex, ok := t.(*texture)
	if !ok || tex.dev != d {
		return nil, compute.ErrForeignResource
	}
	if tex.released.Load() {
		return nil, fmt.Errorf("texture %q: %w", tex.desc.Label, compute.ErrReleased)
	}
	return tex, nil
}

func (d *Device) WriteTexture(ctx context.Context, t compute.Texture, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tex, err := d.hostTexture(t)
	if err != nil {
		return fmt.Errorf("writing texture: %w", err)
	}
	if len(data) != tex.desc.ByteSize() {
		return fmt.Errorf("writing texture %q: %d bytes, want %d", tex.desc.Label, len(data), tex.desc.ByteSize())
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return compute.ErrClosed
	}
	if _, err := d.queue.EnqueueWriteBuffer(tex.buf, true, 0, len(data), unsafe.Pointer(&data[0]), nil); err != nil {
		return fmt.Errorf("writing texture %q: %w", tex.desc.Label, err)
	}
	return nil
}

func (d *Device) ReadTexture(ctx context.Context, t compute.Texture) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tex, err := d.hostTexture(t)
	if err != nil {
		return nil, fmt.Errorf("reading texture: %w", err)
	}
	out := make([]byte, tex.desc.ByteSize())
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, compute.ErrClosed
	}
	if _, err := d.queue.EnqueueReadBuffer(tex.buf, true, 0, len(out), unsafe.Pointer(&out[0]), nil); err != nil {
		return nil, fmt.Errorf("reading texture %q: %w", tex.desc.Label, err)
	}
	return out, nil
}

type fence struct {
	event  *cl.Event
	err    error
	done   atomic.Bool
	waited chan struct{}
}

func (f *fence) wait() {
	if f.event != nil {
		f.err = cl.WaitForEvents([]*cl.Event{f.event})
		f.event.Release()
	}
	f.done.Store(true)
	close(f.waited)
}

func (f *fence) Wait(ctx context.Context) error {
	select {
	case <-f.waited:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fence) Done() bool { return f.done.Load() }

// Submit enqueues every dispatch of list and flushes the queue. The fence
// waits on the last kernel's event.
func (d *Device) Submit(list *compute.CommandList) (compute.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, compute.ErrClosed
	}
	var (
		set    *resourceSet
		last   *cl.Event
		params []byte
	)
	fail := func(err error) (compute.Fence, error) {
		if last != nil {
			last.Release()
		}
		return nil, fmt.Errorf("submitting %q: %w", list.Label, err)
	}
	for i, c := range list.Commands {
		switch c.Kind {
		case compute.CmdSetPipeline:
			s, ok := c.Set.(*resourceSet)
			if !ok || s.pipeline.dev != d {
				return fail(fmt.Errorf("command %d: %w", i, compute.ErrForeignResource))
			}
			if s.released.Load() || s.pipeline.released.Load() {
				return fail(fmt.Errorf("command %d (%s): %w", i, s.pipeline.kernel.Name, compute.ErrReleased))
			}
			set = s
			params = nil
		case compute.CmdPushConstants:
			params = c.Params
		case compute.CmdDispatch:
			if set == nil {
				return fail(fmt.Errorf("command %d: %w: dispatch without a pipeline", i, compute.ErrEncoding))
			}
			ev, err := d.dispatch(set, params, c.GroupsX, c.GroupsY)
			if err != nil {
				return fail(fmt.Errorf("command %d: %w", i, err))
			}
			if last != nil {
				last.Release()
			}
			last = ev
		}
	}
	if err := d.queue.Flush(); err != nil {
		return fail(fmt.Errorf("flushing queue: %w", err))
	}
	f := &fence{event: last, waited: make(chan struct{})}
	go f.wait()
	return f, nil
}

func (d *Device) dispatch(set *resourceSet, params []byte, groupsX, groupsY int) (*cl.Event, error) {
	p := set.pipeline
	for slot, t := range set.slots {
		if t.released.Load() {
			return nil, fmt.Errorf("%s slot %d: %w", p.kernel.Name, slot, compute.ErrReleased)
		}
	}
	if len(params) > 0 {
		if err := p.clKernel.SetArgUnsafe(0, len(params), unsafe.Pointer(&params[0])); err != nil {
			return nil, fmt.Errorf("%s: setting parameters: %w", p.kernel.Name, err)
		}
	}
	if err := set.bind(); err != nil {
		return nil, fmt.Errorf("%s: %w", p.kernel.Name, err)
	}
	wg := p.kernel.WorkgroupSize
	global := []int{groupsX * wg[0], groupsY * wg[1]}
	local := []int{wg[0], wg[1]}
	ev, err := d.queue.EnqueueNDRangeKernel(p.clKernel, nil, global, local, nil)
	if err != nil {
		return nil, fmt.Errorf("enqueueing %s: %w", p.kernel.Name, err)
	}
	return ev, nil
}

// Close waits for queued work and releases the queue and context. Textures
// and pipelines must be released first.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	err := d.queue.Finish()
	d.queue.Release()
	d.context.Release()
	return err
}
