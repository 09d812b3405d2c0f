package ocean

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute/emu"
)

// transform runs the butterfly stage and one FFT2D engine over in on dev
// and returns the buffer the engine reported.
func transform(t *testing.T, dev *emu.Device, in ComplexField) ComplexField {
	t.Helper()
	n := in.N
	log2n := Params{N: n}.Log2N()
	format := compute.FormatRGBA32F
	tex := func(label string, width int) compute.Texture {
		t.Helper()
		tx, err := dev.CreateTexture(compute.TextureDesc{Label: label, Width: width, Height: n, Format: format, Usage: compute.UsageStorage})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(tx.Release)
		return tx
	}
	table, field, scratch := tex("butterfly", log2n), tex("field", n), tex("scratch", n)

	butterflyPipe, err := dev.CreatePipeline(butterflyKernel(PrecisionFloat))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(butterflyPipe.Release)
	fftPipe, err := dev.CreatePipeline(fftKernel(PrecisionFloat))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(fftPipe.Release)
	butterflySet, err := dev.CreateResourceSet(butterflyPipe, []compute.Binding{
		{Slot: 0, Texture: table, Access: compute.AccessWrite},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(butterflySet.Release)
	engine, err := NewFFT2D(dev, fftPipe, table, field, scratch)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(engine.Release)

	raw, err := compute.EncodeTexels(format, in.texels())
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.WriteTexture(ctx(), field, raw); err != nil {
		t.Fatal(err)
	}

	enc := compute.NewEncoder("fft test")
	enc.BeginComputePass("butterfly")
	enc.SetPipeline(butterflyPipe, butterflySet)
	enc.PushConstants(compute.EncodeParams(butterflyParams{N: int32(n), Log2N: int32(log2n)}))
	enc.Dispatch(log2n, compute.Groups(n, workgroupSize))
	enc.EndComputePass()
	enc.BeginComputePass("fft")
	result := engine.Encode(enc, BufferA)
	enc.EndComputePass()
	list, err := enc.Finish()
	if err != nil {
		t.Fatal(err)
	}
	fence, err := dev.Submit(list)
	if err != nil {
		t.Fatal(err)
	}
	if err := fence.Wait(ctx()); err != nil {
		t.Fatal(err)
	}

	out := field
	if result == BufferB {
		out = scratch
	}
	raw, err = dev.ReadTexture(ctx(), out)
	if err != nil {
		t.Fatal(err)
	}
	f, err := decodeComplexField(n, format, raw)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// dft2 applies fft to every row and then every column of an n×n grid.
func dft2(fft *fourier.CmplxFFT, n int, grid []complex128) []complex128 {
	out := make([]complex128, n*n)
	for y := range n {
		copy(out[y*n:], fft.Coefficients(nil, grid[y*n:(y+1)*n]))
	}
	col := make([]complex128, n)
	for x := range n {
		for y := range n {
			col[y] = out[y*n+x]
		}
		coeff := fft.Coefficients(nil, col)
		for y := range n {
			out[y*n+x] = coeff[y]
		}
	}
	return out
}

// inverseDFT2 is the unnormalized 2D DFT with a positive exponent, computed
// as conj(DFT(conj(f))).
func inverseDFT2(f ComplexField) []complex128 {
	grid := make([]complex128, len(f.Data))
	for i, v := range f.Data {
		grid[i] = cmplx.Conj(complex128(v))
	}
	out := dft2(fourier.NewCmplxFFT(f.N), f.N, grid)
	for i := range out {
		out[i] = cmplx.Conj(out[i])
	}
	return out
}

func randomField(n int, seed int64) ComplexField {
	r := rand.New(rand.NewSource(seed))
	f := NewComplexField(n)
	for i := range f.Data {
		f.Data[i] = complex(float32(2*r.Float64()-1), float32(2*r.Float64()-1))
	}
	return f
}

func TestFFTMatchesReferenceDFT(t *testing.T) {
	dev := newDevice(t)
	for _, n := range []int{2, 4, 8, 16} {
		in := randomField(n, int64(n))
		got := transform(t, dev, in)
		want := inverseDFT2(in)
		for i, w := range want {
			if d := cmplx.Abs(complex128(got.Data[i]) - w); d > 1e-3 {
				t.Fatalf("n=%d cell %d: got %v, want %v", n, i, got.Data[i], w)
			}
		}
	}
}

func TestFFTRoundTrip(t *testing.T) {
	const n = 8
	dev := newDevice(t)
	r := rand.New(rand.NewSource(7))
	g := make([]complex128, n*n)
	for i := range g {
		g[i] = complex(2*r.Float64()-1, 0)
	}
	coeff := dft2(fourier.NewCmplxFFT(n), n, g)

	// Index the forward transform by centered frequency the way the
	// spectrum stage lays out wave vectors.
	spectrum := NewComplexField(n)
	for j := range n {
		for i := range n {
			spectrum.Set(i, j, complex64(coeff[((j-n/2+n)%n)*n+(i-n/2+n)%n]))
		}
	}
	out := transform(t, dev, spectrum)
	for y := range n {
		for x := range n {
			got := Invert(out.At(x, y), x, y, n)
			if want := real(g[y*n+x]); math.Abs(float64(got)-want) > 1e-3 {
				t.Fatalf("cell (%d, %d): got %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestFFTEncodePasses(t *testing.T) {
	dev := newDevice(t)
	const n = 16
	mk := func(label string, width int) compute.Texture {
		tx, err := dev.CreateTexture(compute.TextureDesc{Label: label, Width: width, Height: n, Format: compute.FormatRGBA32F, Usage: compute.UsageStorage})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(tx.Release)
		return tx
	}
	pipe, err := dev.CreatePipeline(fftKernel(PrecisionFloat))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pipe.Release)
	engine, err := NewFFT2D(dev, pipe, mk("table", 4), mk("field", n), mk("scratch", n))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(engine.Release)

	for _, start := range []PingPong{BufferA, BufferB} {
		enc := compute.NewEncoder("passes")
		enc.BeginComputePass("fft")
		end := engine.Encode(enc, start)
		enc.EndComputePass()
		list, err := enc.Finish()
		if err != nil {
			t.Fatal(err)
		}
		if got := list.Dispatches(); got != engine.Passes() || got != 8 {
			t.Fatalf("dispatches = %d, want 8", got)
		}
		if end != start {
			t.Fatalf("start %v: result in %v after an even number of passes", start, end)
		}
		var barriers int
		for i, c := range list.Commands {
			if c.Kind != compute.CmdDispatch {
				continue
			}
			barriers++
			if next := list.Commands[i+1].Kind; next != compute.CmdBarrier {
				t.Fatalf("dispatch %d followed by %v, want barrier", barriers, next)
			}
		}
	}
}

func TestFFTRejectsMismatchedTable(t *testing.T) {
	dev := newDevice(t)
	mk := func(width, height int) compute.Texture {
		tx, err := dev.CreateTexture(compute.TextureDesc{Label: "t", Width: width, Height: height, Format: compute.FormatRGBA32F, Usage: compute.UsageStorage})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(tx.Release)
		return tx
	}
	pipe, err := dev.CreatePipeline(fftKernel(PrecisionFloat))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pipe.Release)
	_, err = NewFFT2D(dev, pipe, mk(3, 16), mk(16, 16), mk(16, 16))
	if !errors.Is(err, compute.ErrBinding) {
		t.Fatalf("err = %v, want ErrBinding", err)
	}
}

func TestPingPongFlip(t *testing.T) {
	if BufferA.Flip() != BufferB || BufferB.Flip() != BufferA {
		t.Fatal("Flip does not alternate")
	}
	if BufferA.String() != "A" || BufferB.String() != "B" {
		t.Fatalf("names %q %q", BufferA, BufferB)
	}
}

func TestInvert(t *testing.T) {
	tests := []struct {
		v    complex64
		x, y int
		want float32
	}{
		{complex(64, 5), 0, 0, 1},
		{complex(64, 5), 1, 0, -1},
		{complex(64, 5), 1, 1, 1},
		{complex(-32, 0), 0, 3, 0.5},
	}
	for _, tt := range tests {
		if got := Invert(tt.v, tt.x, tt.y, 8); got != tt.want {
			t.Errorf("Invert(%v, %d, %d) = %v, want %v", tt.v, tt.x, tt.y, got, tt.want)
		}
	}
}

func ctx() context.Context {
	return context.Background()
}
