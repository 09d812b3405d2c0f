package ocean

import (
	"math"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
)

type evolveParams struct {
	N int32
	L int32
	T float32
	_ float32
}

const evolveSource = `
typedef struct {
    int n;
    int length;
    float t;
    float pad0;
} evolve_params;

inline float2 evolve_height(const evolve_params p, FIELD h0k, FIELD h0minusk, int idx, float mag)
{
    float w = sqrt(GRAVITY * mag);
    float c = cos(w * p.t);
    float s = sin(w * p.t);
    float2 a = LOAD_FIELD(h0k, idx).xy;
    float2 b = LOAD_FIELD(h0minusk, idx).xy;
    b.y = -b.y;
    return cmul(a, (float2)(c, s)) + cmul(b, (float2)(c, -s));
}

__kernel void ocean_evolve(
    const evolve_params p,
    FIELD h0k,
    FIELD h0minusk,
    FIELD height)
{
    int x = get_global_id(0);
    int y = get_global_id(1);
    if (x >= p.n || y >= p.n) {
        return;
    }
    int idx = y * p.n + x;
    float mag = fmax(length(wave_vector(x, y, p.n, p.length)), K_EPSILON);
    float2 h = evolve_height(p, h0k, h0minusk, idx, mag);
    STORE_FIELD(height, idx, (float4)(h, 0.0f, 1.0f));
}

__kernel void ocean_evolve_choppy(
    const evolve_params p,
    FIELD h0k,
    FIELD h0minusk,
    FIELD height,
    FIELD displace_x,
    FIELD displace_z)
{
    int x = get_global_id(0);
    int y = get_global_id(1);
    if (x >= p.n || y >= p.n) {
        return;
    }
    int idx = y * p.n + x;
    float2 k = wave_vector(x, y, p.n, p.length);
    float mag = fmax(length(k), K_EPSILON);
    float2 h = evolve_height(p, h0k, h0minusk, idx, mag);
    float2 dx = cmul((float2)(0.0f, -k.x / mag), h);
    float2 dz = cmul((float2)(0.0f, -k.y / mag), h);
    STORE_FIELD(height, idx, (float4)(h, 0.0f, 1.0f));
    STORE_FIELD(displace_x, idx, (float4)(dx, 0.0f, 1.0f));
    STORE_FIELD(displace_z, idx, (float4)(dz, 0.0f, 1.0f));
}
`

// Slots of the evolve kernels. The choppy kernel adds the two
// displacement outputs after the height.
const (
	evolveH0K = iota
	evolveH0MinusK
	evolveHeight
	evolveDisplaceX
	evolveDisplaceZ
)

func evolveKernel(prec Precision, choppy bool) compute.Kernel {
	name := "ocean_evolve"
	if choppy {
		name = "ocean_evolve_choppy"
	}
	return compute.Kernel{
		Name:          name,
		Source:        kernelSource(evolveSource),
		BuildOptions:  buildOptions(prec),
		WorkgroupSize: [2]int{workgroupSize, workgroupSize},
		ParamSize:     16,
		Host: func(block []byte) (compute.HostFunc, error) {
			return evolveHost(name, block, choppy)
		},
	}
}

// EvolveHeight returns h(k,t) = h0(k)·e^{iωt} + conj(h0(−k))·e^{−iωt} with
// ω = sqrt(g·|k|).
func EvolveHeight(h0k, h0MinusK complex64, mag, t float64) complex64 {
	w := math.Sqrt(Gravity * mag)
	s, c := math.Sincos(w * t)
	e := complex(float32(c), float32(s))
	eInv := complex(float32(c), float32(-s))
	conj := complex(real(h0MinusK), -imag(h0MinusK))
	return cmul(h0k, e) + cmul(conj, eInv)
}

// Displacement returns i·(−k_axis/|k|)·h, the horizontal displacement
// spectrum along one axis derived from the evolved height h.
func Displacement(h complex64, kAxis, mag float64) complex64 {
	return cmul(complex(0, float32(-kAxis/mag)), h)
}

func evolveHost(name string, block []byte, choppy bool) (compute.HostFunc, error) {
	ep, err := decodeParams[evolveParams](name, block)
	if err != nil {
		return nil, err
	}
	n, length, t := int(ep.N), int(ep.L), float64(ep.T)
	return func(x, y int, r compute.Resources) {
		if x >= n || y >= n {
			return
		}
		kx, ky := waveVector(x, y, n, length)
		mag := math.Max(math.Hypot(kx, ky), kEpsilon)
		h := EvolveHeight(cplx(r.Load(evolveH0K, x, y)), cplx(r.Load(evolveH0MinusK, x, y)), mag, t)
		r.Store(evolveHeight, x, y, texel(h))
		if choppy {
			r.Store(evolveDisplaceX, x, y, texel(Displacement(h, kx, mag)))
			r.Store(evolveDisplaceZ, x, y, texel(Displacement(h, ky, mag)))
		}
	}, nil
}
