package ocean

import (
	"fmt"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
)

// PingPong names the buffer of an FFT buffer pair that holds the valid data.
type PingPong int32

const (
	// BufferA is the component field itself.
	BufferA PingPong = iota
	// BufferB is the component's scratch buffer.
	BufferB
)

// Flip returns the other buffer.
func (p PingPong) Flip() PingPong {
	return 1 - p
}

func (p PingPong) String() string {
	if p == BufferB {
		return "B"
	}
	return "A"
}

// Pass directions of the FFT kernel.
const (
	horizontal int32 = iota
	vertical
)

type fftParams struct {
	Stage     int32
	PingPong  int32
	Direction int32
	N         int32
}

const fftSource = `
typedef struct {
    int stage;
    int pingpong;
    int direction;
    int n;
} fft_params;

__kernel void ocean_fft_pass(
    const fft_params p,
    FIELD table,
    FIELD buf_a,
    FIELD buf_b)
{
    int x = get_global_id(0);
    int y = get_global_id(1);
    if (x >= p.n || y >= p.n) {
        return;
    }
    int log2n = 31 - clz(p.n);
    FIELD src = p.pingpong == 0 ? buf_a : buf_b;
    FIELD dst = p.pingpong == 0 ? buf_b : buf_a;
    int row = p.direction == 0 ? x : y;
    float4 b = LOAD_FIELD(table, row * log2n + p.stage);
    int i0 = (int)b.z;
    int i1 = (int)b.w;
    float2 a;
    float2 q;
    if (p.direction == 0) {
        a = LOAD_FIELD(src, y * p.n + i0).xy;
        q = LOAD_FIELD(src, y * p.n + i1).xy;
    } else {
        a = LOAD_FIELD(src, i0 * p.n + x).xy;
        q = LOAD_FIELD(src, i1 * p.n + x).xy;
    }
    float2 h = a + cmul(b.xy, q);
    STORE_FIELD(dst, y * p.n + x, (float4)(h, 0.0f, 1.0f));
}
`

// Slots of the FFT pass kernel.
const (
	fftTable = iota
	fftBufferA
	fftBufferB
)

func fftKernel(prec Precision) compute.Kernel {
	return compute.Kernel{
		Name:          "ocean_fft_pass",
		Source:        kernelSource(fftSource),
		BuildOptions:  buildOptions(prec),
		WorkgroupSize: [2]int{workgroupSize, workgroupSize},
		ParamSize:     16,
		Host:          fftHost,
	}
}

func fftHost(block []byte) (compute.HostFunc, error) {
	fp, err := decodeParams[fftParams]("ocean_fft_pass", block)
	if err != nil {
		return nil, err
	}
	n, stage := int(fp.N), int(fp.Stage)
	src, dst := fftBufferA, fftBufferB
	if PingPong(fp.PingPong) == BufferB {
		src, dst = dst, src
	}
	return func(x, y int, r compute.Resources) {
		if x >= n || y >= n {
			return
		}
		row := x
		if fp.Direction == vertical {
			row = y
		}
		b := r.Load(fftTable, stage, row)
		i0, i1 := int(b[2]), int(b[3])
		var a, q complex64
		if fp.Direction == horizontal {
			a = cplx(r.Load(src, i0, y))
			q = cplx(r.Load(src, i1, y))
		} else {
			a = cplx(r.Load(src, x, i0))
			q = cplx(r.Load(src, x, i1))
		}
		r.Store(dst, x, y, texel(a+cmul(complex(b[0], b[1]), q)))
	}, nil
}

// FFT2D runs the 2D transform of one component field through the butterfly
// table, using a scratch buffer of the same shape. Each component gets its
// own engine; engines share the pass pipeline and the table.
type FFT2D struct {
	pipeline compute.Pipeline
	set      compute.ResourceSet
	n        int
	log2n    int
}

// NewFFT2D binds table, field and scratch to the pass pipeline. The field
// and the scratch buffer must be N×N; the table must be log2(N)×N.
func NewFFT2D(dev compute.Device, pipeline compute.Pipeline, table, field, scratch compute.Texture) (*FFT2D, error) {
	fd, sd, td := field.Desc(), scratch.Desc(), table.Desc()
	n := fd.Width
	if fd.Height != n || sd.Width != n || sd.Height != n || td.Height != n || 1<<td.Width != n {
		return nil, fmt.Errorf("fft %q: %w: field %dx%d, scratch %dx%d, table %dx%d",
			fd.Label, compute.ErrBinding, fd.Width, fd.Height, sd.Width, sd.Height, td.Width, td.Height)
	}
	set, err := dev.CreateResourceSet(pipeline, []compute.Binding{
		{Slot: fftTable, Texture: table, Access: compute.AccessRead},
		{Slot: fftBufferA, Texture: field, Access: compute.AccessReadWrite},
		{Slot: fftBufferB, Texture: scratch, Access: compute.AccessReadWrite},
	})
	if err != nil {
		return nil, fmt.Errorf("fft %q: %w", fd.Label, err)
	}
	return &FFT2D{pipeline: pipeline, set: set, n: n, log2n: td.Width}, nil
}

// Passes returns the number of passes one transform records.
func (f *FFT2D) Passes() int {
	return 2 * f.log2n
}

// Encode records the log2(N) horizontal and log2(N) vertical passes, each
// followed by a barrier, starting from the buffer start. It returns the
// buffer holding the transformed field. Encode must be called inside a
// compute pass.
func (f *FFT2D) Encode(enc *compute.Encoder, start PingPong) PingPong {
	pp := start
	groups := compute.Groups(f.n, workgroupSize)
	enc.SetPipeline(f.pipeline, f.set)
	for _, dir := range [...]int32{horizontal, vertical} {
		for stage := range f.log2n {
			enc.PushConstants(compute.EncodeParams(fftParams{
				Stage:     int32(stage),
				PingPong:  int32(pp),
				Direction: dir,
				N:         int32(f.n),
			}))
			enc.Dispatch(groups, groups)
			enc.Barrier()
			pp = pp.Flip()
		}
	}
	return pp
}

// Release frees the engine's resource set. The bound textures belong to
// the caller.
func (f *FFT2D) Release() {
	f.set.Release()
}
