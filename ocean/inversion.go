package ocean

import (
	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
)

type invertParams struct {
	PingPong int32
	N        int32
	_        int32
	_        int32
}

const invertSource = `
typedef struct {
    int pingpong;
    int n;
    int pad0;
    int pad1;
} invert_params;

__kernel void ocean_invert(
    const invert_params p,
    FIELD buf_a,
    FIELD buf_b,
    FIELD out)
{
    int x = get_global_id(0);
    int y = get_global_id(1);
    if (x >= p.n || y >= p.n) {
        return;
    }
    int idx = y * p.n + x;
    FIELD src = p.pingpong == 0 ? buf_a : buf_b;
    float sign = ((x + y) & 1) == 0 ? 1.0f : -1.0f;
    float v = sign * LOAD_FIELD(src, idx).x / (float)(p.n * p.n);
    STORE_FIELD(out, idx, (float4)(v, 0.0f, 0.0f, 1.0f));
}
`

// Slots of the inversion kernel.
const (
	invertBufferA = iota
	invertBufferB
	invertOut
)

func invertKernel(prec Precision) compute.Kernel {
	return compute.Kernel{
		Name:          "ocean_invert",
		Source:        kernelSource(invertSource),
		BuildOptions:  buildOptions(prec),
		WorkgroupSize: [2]int{workgroupSize, workgroupSize},
		ParamSize:     16,
		Host:          invertHost,
	}
}

// Invert returns (−1)^(x+y)·Re(v)/N², the spatial value at (x, y) of a
// transformed centered spectrum.
func Invert(v complex64, x, y, n int) float32 {
	s := float32(1)
	if (x+y)&1 == 1 {
		s = -1
	}
	return s * real(v) / float32(n*n)
}

func invertHost(block []byte) (compute.HostFunc, error) {
	ip, err := decodeParams[invertParams]("ocean_invert", block)
	if err != nil {
		return nil, err
	}
	n := int(ip.N)
	src := invertBufferA
	if PingPong(ip.PingPong) == BufferB {
		src = invertBufferB
	}
	return func(x, y int, r compute.Resources) {
		if x >= n || y >= n {
			return
		}
		v := Invert(cplx(r.Load(src, x, y)), x, y, n)
		r.Store(invertOut, x, y, [4]float32{v, 0, 0, 1})
	}, nil
}

// encodeInvert records the normalization of the buffer src into the output
// bound by set.
func encodeInvert(enc *compute.Encoder, pipeline compute.Pipeline, set compute.ResourceSet, n int, src PingPong) {
	groups := compute.Groups(n, workgroupSize)
	enc.SetPipeline(pipeline, set)
	enc.PushConstants(compute.EncodeParams(invertParams{PingPong: int32(src), N: int32(n)}))
	enc.Dispatch(groups, groups)
}
