package ocean

import (
	"context"
	"fmt"
	"sync"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
)

// Simulation owns the device resources of one ocean patch: the cached
// spectrum and butterfly table, the per-frame fields and the outputs.
// Its methods are safe for concurrent use.
type Simulation struct {
	dev  compute.Device
	opts Options

	mu       sync.Mutex
	params   Params
	res      *resources
	inflight *Frame
	seq      uint64
	slotSeq  []uint64
	next     int
}

// resources is everything built for one resolution. release frees it in
// reverse creation order.
type resources struct {
	n      int
	log2n  int
	format compute.Format

	noise    compute.Texture
	h0k      compute.Texture
	h0MinusK compute.Texture
	table    compute.Texture

	spectrumPipe  compute.Pipeline
	butterflyPipe compute.Pipeline
	evolvePipe    compute.Pipeline
	fftPipe       compute.Pipeline
	invertPipe    compute.Pipeline

	spectrumSet  compute.ResourceSet
	butterflySet compute.ResourceSet
	evolveSet    compute.ResourceSet

	components []*componentStage
	releases   []func()
}

// componentStage is the per-component chain: the evolved field, its FFT
// engine with a dedicated scratch buffer, and one output per slot.
type componentStage struct {
	component  Component
	field      compute.Texture
	scratch    compute.Texture
	fft        *FFT2D
	outputs    []compute.Texture
	invertSets []compute.ResourceSet
}

func (r *resources) onRelease(fn func()) {
	r.releases = append(r.releases, fn)
}

func (r *resources) release() {
	for i := len(r.releases) - 1; i >= 0; i-- {
		r.releases[i]()
	}
	r.releases = nil
}

// builder creates resources for one stage after another and keeps the first
// failure.
type builder struct {
	dev compute.Device
	res *resources
	err error
}

func (b *builder) fail(stage, resource string, err error) {
	if b.err == nil {
		b.err = &BackendError{Stage: stage, Resource: resource, Err: err}
	}
}

func (b *builder) pipeline(stage string, k compute.Kernel) compute.Pipeline {
	if b.err != nil {
		return nil
	}
	p, err := b.dev.CreatePipeline(k)
	if err != nil {
		b.fail(stage, "pipeline "+k.Name, err)
		return nil
	}
	b.res.onRelease(p.Release)
	Logger().Debug("pipeline created", "kernel", k.Name)
	return p
}

func (b *builder) texture(stage string, desc compute.TextureDesc) compute.Texture {
	if b.err != nil {
		return nil
	}
	if !b.dev.SupportsFormat(desc.Format, desc.Usage) {
		b.fail(stage, "texture "+desc.Label, fmt.Errorf("%w: %s", compute.ErrUnsupportedFormat, desc.Format))
		return nil
	}
	t, err := b.dev.CreateTexture(desc)
	if err != nil {
		b.fail(stage, "texture "+desc.Label, err)
		return nil
	}
	b.res.onRelease(t.Release)
	Logger().Debug("texture created", "label", desc.Label, "format", desc.Format.String(), "width", desc.Width, "height", desc.Height)
	return t
}

func (b *builder) set(stage string, p compute.Pipeline, bindings ...compute.Binding) compute.ResourceSet {
	if b.err != nil {
		return nil
	}
	s, err := b.dev.CreateResourceSet(p, bindings)
	if err != nil {
		b.fail(stage, "resource set "+p.Kernel().Name, err)
		return nil
	}
	b.res.onRelease(s.Release)
	return s
}

func (b *builder) fft(c *componentStage) {
	if b.err != nil {
		return
	}
	f, err := NewFFT2D(b.dev, b.res.fftPipe, b.res.table, c.field, c.scratch)
	if err != nil {
		b.fail("fft", "resource set "+c.component.String(), err)
		return
	}
	b.res.onRelease(f.Release)
	c.fft = f
}

// New validates p against opts, creates every device resource, computes the spectrum and
// the butterfly table and waits for them. On failure nothing created stays
// alive and no Simulation is returned.
func New(ctx context.Context, dev compute.Device, p Params, opts Options) (*Simulation, error) {
	if err := p.ValidateFor(opts); err != nil {
		return nil, err
	}
	s := &Simulation{
		dev:     dev,
		opts:    opts,
		params:  p,
		slotSeq: make([]uint64, opts.slots()),
	}
	res, err := s.build(ctx, p)
	if err != nil {
		return nil, err
	}
	s.res = res
	Logger().Info("ocean simulation ready",
		"device", dev.Name(),
		"n", p.N,
		"length", p.Length,
		"choppy", opts.Choppy,
		"precision", opts.Precision.String(),
		"double_buffer", opts.DoubleBuffer)
	return s, nil
}

func (s *Simulation) build(ctx context.Context, p Params) (*resources, error) {
	n := p.N
	format := fieldFormat(s.opts.Precision)
	res := &resources{n: n, log2n: p.Log2N(), format: format}
	b := &builder{dev: s.dev, res: res}
	field := func(label string, width int) compute.TextureDesc {
		return compute.TextureDesc{Label: label, Width: width, Height: n, Format: format, Usage: compute.UsageStorage}
	}

	res.noise = b.texture("noise", compute.TextureDesc{
		Label: "noise", Width: n, Height: n, Format: compute.FormatRGBA32F, Usage: compute.UsageSampled,
	})
	res.h0k = b.texture("spectrum", field("h0k", n))
	res.h0MinusK = b.texture("spectrum", field("h0-k", n))
	res.table = b.texture("butterfly", field("butterfly", res.log2n))

	res.spectrumPipe = b.pipeline("spectrum", spectrumKernel(s.opts.Precision))
	res.butterflyPipe = b.pipeline("butterfly", butterflyKernel(s.opts.Precision))
	res.evolvePipe = b.pipeline("evolve", evolveKernel(s.opts.Precision, s.opts.Choppy))
	res.fftPipe = b.pipeline("fft", fftKernel(s.opts.Precision))
	res.invertPipe = b.pipeline("invert", invertKernel(s.opts.Precision))

	res.spectrumSet = b.set("spectrum", res.spectrumPipe,
		compute.Binding{Slot: spectrumNoise, Texture: res.noise, Access: compute.AccessRead},
		compute.Binding{Slot: spectrumH0K, Texture: res.h0k, Access: compute.AccessWrite},
		compute.Binding{Slot: spectrumH0MinusK, Texture: res.h0MinusK, Access: compute.AccessWrite},
	)
	res.butterflySet = b.set("butterfly", res.butterflyPipe,
		compute.Binding{Slot: 0, Texture: res.table, Access: compute.AccessWrite},
	)

	evolveBindings := []compute.Binding{
		{Slot: evolveH0K, Texture: res.h0k, Access: compute.AccessRead},
		{Slot: evolveH0MinusK, Texture: res.h0MinusK, Access: compute.AccessRead},
	}
	for i, c := range s.opts.components() {
		stage := &componentStage{component: c}
		stage.field = b.texture("evolve", field(c.String(), n))
		stage.scratch = b.texture("fft", field(c.String()+" scratch", n))
		b.fft(stage)
		for slot := range s.slotSeq {
			out := b.texture("invert", field(fmt.Sprintf("%s output %d", c, slot), n))
			set := b.set("invert", res.invertPipe,
				compute.Binding{Slot: invertBufferA, Texture: stage.field, Access: compute.AccessRead},
				compute.Binding{Slot: invertBufferB, Texture: stage.scratch, Access: compute.AccessRead},
				compute.Binding{Slot: invertOut, Texture: out, Access: compute.AccessWrite},
			)
			stage.outputs = append(stage.outputs, out)
			stage.invertSets = append(stage.invertSets, set)
		}
		evolveBindings = append(evolveBindings, compute.Binding{
			Slot: evolveHeight + i, Texture: stage.field, Access: compute.AccessWrite,
		})
		res.components = append(res.components, stage)
	}
	res.evolveSet = b.set("evolve", res.evolvePipe, evolveBindings...)

	if b.err != nil {
		res.release()
		return nil, b.err
	}

	noise := NewNoise(n, s.opts.Seed)
	raw, err := compute.EncodeTexels(compute.FormatRGBA32F, noise.Data)
	if err == nil {
		err = s.dev.WriteTexture(ctx, res.noise, raw)
	}
	if err != nil {
		res.release()
		return nil, &BackendError{Stage: "noise", Resource: "texture noise", Err: err}
	}

	enc := compute.NewEncoder("ocean init")
	enc.BeginComputePass("precompute")
	encodeSpectrum(enc, res, p)
	enc.SetPipeline(res.butterflyPipe, res.butterflySet)
	enc.PushConstants(compute.EncodeParams(butterflyParams{N: int32(n), Log2N: int32(res.log2n)}))
	enc.Dispatch(res.log2n, compute.Groups(n, workgroupSize))
	enc.EndComputePass()
	if err := s.run(ctx, enc); err != nil {
		res.release()
		return nil, &BackendError{Stage: "spectrum", Resource: "precompute", Err: err}
	}
	return res, nil
}

func encodeSpectrum(enc *compute.Encoder, res *resources, p Params) {
	groups := compute.Groups(res.n, workgroupSize)
	enc.SetPipeline(res.spectrumPipe, res.spectrumSet)
	enc.PushConstants(compute.EncodeParams(newSpectrumParams(p)))
	enc.Dispatch(groups, groups)
}

// run submits the recorded list and waits for it.
func (s *Simulation) run(ctx context.Context, enc *compute.Encoder) error {
	list, err := enc.Finish()
	if err != nil {
		return err
	}
	fence, err := s.dev.Submit(list)
	if err != nil {
		return err
	}
	return fence.Wait(ctx)
}

// Step records and submits one frame at time t in seconds and returns
// without waiting. Use Frame.Wait or Frame.Read to consume it.
func (s *Simulation) Step(t float64) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.res
	if res == nil {
		return nil, ErrNotReady
	}
	slot := s.next
	seq := s.seq + 1

	groups := compute.Groups(res.n, workgroupSize)
	enc := compute.NewEncoder(fmt.Sprintf("ocean frame %d", seq))
	enc.BeginComputePass("evolve")
	enc.SetPipeline(res.evolvePipe, res.evolveSet)
	enc.PushConstants(compute.EncodeParams(evolveParams{
		N: int32(res.n),
		L: int32(s.params.Length),
		T: float32(t),
	}))
	enc.Dispatch(groups, groups)
	enc.EndComputePass()
	enc.BeginComputePass("transform")
	for _, c := range res.components {
		pp := c.fft.Encode(enc, BufferA)
		encodeInvert(enc, res.invertPipe, c.invertSets[slot], res.n, pp)
	}
	enc.EndComputePass()
	list, err := enc.Finish()
	if err != nil {
		return nil, fmt.Errorf("ocean: recording frame %d: %w", seq, err)
	}
	fence, err := s.dev.Submit(list)
	if err != nil {
		return nil, fmt.Errorf("ocean: submitting frame %d: %w", seq, err)
	}

	s.seq = seq
	s.slotSeq[slot] = seq
	s.next = (slot + 1) % len(s.slotSeq)
	f := &Frame{sim: s, res: res, fence: fence, seq: seq, slot: slot, time: t}
	s.inflight = f
	Logger().Debug("frame submitted", "seq", seq, "slot", slot, "t", t, "dispatches", list.Dispatches())
	return f, nil
}

// Reconfigure replaces the spectrum parameters. It waits for the in-flight
// frame first. A change of N rebuilds every resource and the butterfly
// table; otherwise only the spectrum is recomputed. If it fails the
// previous configuration stays in place.
func (s *Simulation) Reconfigure(ctx context.Context, p Params) error {
	if err := p.ValidateFor(s.opts); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.res == nil {
		return ErrNotReady
	}
	if s.inflight != nil {
		if err := s.inflight.fence.Wait(ctx); err != nil {
			return fmt.Errorf("ocean: waiting for frame %d: %w", s.inflight.seq, err)
		}
		s.inflight = nil
	}
	if p.N != s.res.n {
		res, err := s.build(ctx, p)
		if err != nil {
			return err
		}
		s.res.release()
		s.res = res
	} else {
		enc := compute.NewEncoder("ocean spectrum")
		enc.BeginComputePass("spectrum")
		encodeSpectrum(enc, s.res, p)
		enc.EndComputePass()
		if err := s.run(ctx, enc); err != nil {
			return &BackendError{Stage: "spectrum", Resource: "reconfigure", Err: err}
		}
	}
	Logger().Info("ocean reconfigured", "n", p.N, "length", p.Length, "amplitude", p.Amplitude, "wind_speed", p.WindSpeed)
	s.params = p
	return nil
}

// Params returns the current spectrum parameters.
func (s *Simulation) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Options returns the options the simulation was created with.
func (s *Simulation) Options() Options {
	return s.opts
}

// Ready reports whether the simulation can record frames.
func (s *Simulation) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res != nil
}

// ReadSpectrum returns the cached h0(k) and h0(−k) fields.
func (s *Simulation) ReadSpectrum(ctx context.Context) (h0k, h0MinusK ComplexField, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.res == nil {
		return h0k, h0MinusK, ErrNotReady
	}
	if h0k, err = s.readComplex(ctx, s.res.h0k); err != nil {
		return h0k, h0MinusK, err
	}
	h0MinusK, err = s.readComplex(ctx, s.res.h0MinusK)
	return h0k, h0MinusK, err
}

// ReadButterfly returns the cached butterfly table.
func (s *Simulation) ReadButterfly(ctx context.Context) (ButterflyTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.res == nil {
		return nil, ErrNotReady
	}
	raw, err := s.dev.ReadTexture(ctx, s.res.table)
	if err != nil {
		return nil, fmt.Errorf("ocean: reading butterfly table: %w", err)
	}
	texels, err := compute.DecodeTexels(s.res.format, raw)
	if err != nil {
		return nil, fmt.Errorf("ocean: reading butterfly table: %w", err)
	}
	return decodeButterflyTable(s.res.n, s.res.log2n, texels), nil
}

func (s *Simulation) readComplex(ctx context.Context, t compute.Texture) (ComplexField, error) {
	raw, err := s.dev.ReadTexture(ctx, t)
	if err != nil {
		return ComplexField{}, fmt.Errorf("ocean: reading %s: %w", t.Desc().Label, err)
	}
	return decodeComplexField(s.res.n, s.res.format, raw)
}

// Close waits for the in-flight frame and releases every device resource.
// The device itself stays open.
func (s *Simulation) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.res == nil {
		return nil
	}
	var err error
	if s.inflight != nil {
		if err = s.inflight.fence.Wait(context.Background()); err != nil {
			Logger().Warn("in-flight frame failed before close", "seq", s.inflight.seq, "err", err)
		}
		s.inflight = nil
	}
	s.res.release()
	s.res = nil
	Logger().Info("ocean simulation closed", "frames", s.seq)
	return err
}

// Frame is one submitted frame.
type Frame struct {
	sim   *Simulation
	res   *resources
	fence compute.Fence
	seq   uint64
	slot  int
	time  float64
}

// Seq returns the frame number, starting at 1.
func (f *Frame) Seq() uint64 { return f.seq }

// Time returns the simulation time the frame was recorded at.
func (f *Frame) Time() float64 { return f.time }

// Done reports whether the frame finished without blocking.
func (f *Frame) Done() bool { return f.fence.Done() }

// Wait blocks until the frame finished or ctx is done.
func (f *Frame) Wait(ctx context.Context) error {
	if err := f.fence.Wait(ctx); err != nil {
		return fmt.Errorf("ocean: frame %d: %w", f.seq, err)
	}
	return nil
}

func (f *Frame) current() bool {
	f.sim.mu.Lock()
	defer f.sim.mu.Unlock()
	return f.sim.res == f.res && f.sim.slotSeq[f.slot] == f.seq
}

// Read waits for the frame and returns the spatial field of component c.
// It returns ErrFrameStale once a later frame reused the frame's outputs.
func (f *Frame) Read(ctx context.Context, c Component) (RealField, error) {
	var stage *componentStage
	for _, cs := range f.res.components {
		if cs.component == c {
			stage = cs
		}
	}
	if stage == nil {
		return RealField{}, fmt.Errorf("ocean: %s: %w", c, ErrComponentInactive)
	}
	if err := f.Wait(ctx); err != nil {
		return RealField{}, err
	}
	if !f.current() {
		return RealField{}, fmt.Errorf("ocean: frame %d: %w", f.seq, ErrFrameStale)
	}
	raw, err := f.sim.dev.ReadTexture(ctx, stage.outputs[f.slot])
	if !f.current() {
		return RealField{}, fmt.Errorf("ocean: frame %d: %w", f.seq, ErrFrameStale)
	}
	if err != nil {
		return RealField{}, fmt.Errorf("ocean: reading %s of frame %d: %w", c, f.seq, err)
	}
	return decodeRealField(f.res.n, f.res.format, raw)
}
