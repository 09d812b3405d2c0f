package ocean

import (
	"fmt"
	"math"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
)

// kernelPrelude is shared by every OpenCL kernel. Fields are float4 texels
// (real, imaginary, unused, unused) stored either as float4 or, with
// FIELD_HALF defined, as four halves read through vload_half4.
const kernelPrelude = `
#define TWO_PI 6.28318530717958647692f
#define GRAVITY 9.81f
#define K_EPSILON 0.00001f

#ifdef FIELD_HALF
#define FIELD __global half*
#define LOAD_FIELD(buf, i) vload_half4((i), (buf))
#define STORE_FIELD(buf, i, v) vstore_half4((v), (i), (buf))
#else
#define FIELD __global float4*
#define LOAD_FIELD(buf, i) ((buf)[(i)])
#define STORE_FIELD(buf, i, v) ((buf)[(i)] = (v))
#endif

inline float2 cmul(float2 a, float2 b)
{
    return (float2)(a.x * b.x - a.y * b.y, a.x * b.y + a.y * b.x);
}

inline float2 wave_vector(int x, int y, int n, int length)
{
    return (float2)(TWO_PI * (float)(x - n / 2) / (float)length,
                    TWO_PI * (float)(y - n / 2) / (float)length);
}
`

// kEpsilon floors |k| so the DC cell never divides by zero.
const kEpsilon = 0.00001

func buildOptions(p Precision) string {
	if p == PrecisionHalf {
		return "-DFIELD_HALF"
	}
	return ""
}

func fieldFormat(p Precision) compute.Format {
	if p == PrecisionFloat {
		return compute.FormatRGBA32F
	}
	return compute.FormatRGBA16F
}

func kernelSource(body string) string {
	return kernelPrelude + body
}

// waveVector mirrors wave_vector: the centered wave vector of cell (x, y).
func waveVector(x, y, n, length int) (kx, ky float64) {
	kx = 2 * math.Pi * float64(x-n/2) / float64(length)
	ky = 2 * math.Pi * float64(y-n/2) / float64(length)
	return kx, ky
}

func cmul(a, b complex64) complex64 {
	ar, ai := real(a), imag(a)
	br, bi := real(b), imag(b)
	return complex(ar*br-ai*bi, ar*bi+ai*br)
}

func scale(c complex64, s float32) complex64 {
	return complex(real(c)*s, imag(c)*s)
}

func texel(c complex64) [4]float32 {
	return [4]float32{real(c), imag(c), 0, 1}
}

func cplx(v [4]float32) complex64 {
	return complex(v[0], v[1])
}

// decodeParams is the shared first step of every host entry point.
func decodeParams[T any](name string, block []byte) (T, error) {
	var p T
	if err := compute.DecodeParams(block, &p); err != nil {
		return p, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}
