package ocean

import (
	"math"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
)

// maxAmplitude bounds a single spectrum amplitude so degenerate parameters
// cannot push Inf into the FFT.
const maxAmplitude = 4000

type spectrumParams struct {
	N         int32
	L         int32
	A         float32
	_         float32
	WindX     float32
	WindY     float32
	WindSpeed float32
	_         float32
}

func newSpectrumParams(p Params) spectrumParams {
	w := p.WindDirection()
	return spectrumParams{
		N:         int32(p.N),
		L:         int32(p.Length),
		A:         float32(p.Amplitude),
		WindX:     float32(w[0]),
		WindY:     float32(w[1]),
		WindSpeed: float32(p.WindSpeed),
	}
}

const spectrumSource = `
typedef struct {
    int n;
    int length;
    float amplitude;
    float pad0;
    float wind_x;
    float wind_y;
    float wind_speed;
    float pad1;
} spectrum_params;

inline float phillips(float mag, float k_dot_w, float amplitude, float l_wind, int length)
{
    float mag2 = mag * mag;
    float damping = (float)length / 2000.0f;
    float d = fabs(k_dot_w);
    float d2 = d * d;
    float v = amplitude / (mag2 * mag2) * d2 * d2 * d2
        * exp(-1.0f / (mag2 * l_wind * l_wind))
        * exp(-mag2 * damping * damping);
    return clamp(sqrt(fmax(v, 0.0f)) / M_SQRT2_F, 0.0f, 4000.0f);
}

__kernel void ocean_spectrum(
    const spectrum_params p,
    __global const float4* noise,
    FIELD h0k,
    FIELD h0minusk)
{
    int x = get_global_id(0);
    int y = get_global_id(1);
    if (x >= p.n || y >= p.n) {
        return;
    }
    int idx = y * p.n + x;
    float2 k = wave_vector(x, y, p.n, p.length);
    float mag = fmax(length(k), K_EPSILON);
    float2 k_hat = k / mag;
    float2 wind = normalize((float2)(p.wind_x, p.wind_y));
    float l_wind = p.wind_speed * p.wind_speed / GRAVITY;
    float amp_k = phillips(mag, dot(k_hat, wind), p.amplitude, l_wind, p.length);
    float amp_minus_k = phillips(mag, dot(-k_hat, wind), p.amplitude, l_wind, p.length);

    float4 u = clamp(noise[idx], 0.001f, 1.0f);
    float r0 = sqrt(-2.0f * log(u.y));
    float r1 = sqrt(-2.0f * log(u.w));
    float a0 = TWO_PI * u.x;
    float a1 = TWO_PI * u.z;
    float4 g = (float4)(r0 * cos(a0), r0 * sin(a0), r1 * cos(a1), r1 * sin(a1));

    STORE_FIELD(h0k, idx, (float4)(g.x * amp_k, g.y * amp_k, 0.0f, 1.0f));
    STORE_FIELD(h0minusk, idx, (float4)(g.z * amp_minus_k, g.w * amp_minus_k, 0.0f, 1.0f));
}
`

// PhillipsAmplitude returns sqrt(Ph(k))/√2 for wave vector (kx, ky), clamped
// to [0, 4000]. It is the amplitude the spectrum stage multiplies the
// Gaussian draws by.
func PhillipsAmplitude(p Params, kx, ky float64) float64 {
	mag := math.Max(math.Hypot(kx, ky), kEpsilon)
	w := p.WindDirection()
	kDotW := (kx*w[0] + ky*w[1]) / mag
	lWind := p.WindSpeed * p.WindSpeed / Gravity
	mag2 := mag * mag
	damping := float64(p.Length) / 2000
	d2 := kDotW * kDotW
	v := p.Amplitude / (mag2 * mag2) * d2 * d2 * d2 *
		math.Exp(-1/(mag2*lWind*lWind)) *
		math.Exp(-mag2*damping*damping)
	a := math.Sqrt(math.Max(v, 0)) / math.Sqrt2
	if math.IsNaN(a) {
		return 0
	}
	return math.Min(a, maxAmplitude)
}

// peakSigmas is how many standard deviations PeakEstimate allows for. The
// chance that any of 2048² cells exceeds it is below 1e-9.
const peakSigmas = 6

// PeakEstimate bounds the largest magnitude the evolved fields reach inside
// the transform, before the final 1/N² scaling. Each output cell sums N²
// independent complex Gaussian terms of variance 2(a(k)² + a(−k)²), so the
// estimate is peakSigmas times the RMS of that sum. Displacement fields
// never exceed the height field's scale.
func PeakEstimate(p Params) float64 {
	var sum float64
	for y := range p.N {
		for x := range p.N {
			kx, ky := waveVector(x, y, p.N, p.Length)
			a, b := PhillipsAmplitude(p, kx, ky), PhillipsAmplitude(p, -kx, -ky)
			sum += 2 * (a*a + b*b)
		}
	}
	return peakSigmas * math.Sqrt(sum)
}

// gaussianPair turns four uniform samples into two standard complex
// Gaussian draws with the Box-Muller transform.
func gaussianPair(u [4]float32) (complex64, complex64) {
	for i := range u {
		u[i] = min(max(u[i], noiseFloor), 1)
	}
	r0 := math.Sqrt(-2 * math.Log(float64(u[1])))
	r1 := math.Sqrt(-2 * math.Log(float64(u[3])))
	a0 := 2 * math.Pi * float64(u[0])
	a1 := 2 * math.Pi * float64(u[2])
	return complex(float32(r0*math.Cos(a0)), float32(r0*math.Sin(a0))),
		complex(float32(r1*math.Cos(a1)), float32(r1*math.Sin(a1)))
}

func spectrumKernel(prec Precision) compute.Kernel {
	return compute.Kernel{
		Name:          "ocean_spectrum",
		Source:        kernelSource(spectrumSource),
		BuildOptions:  buildOptions(prec),
		WorkgroupSize: [2]int{workgroupSize, workgroupSize},
		ParamSize:     32,
		Host:          spectrumHost,
	}
}

// Slots of the spectrum kernel.
const (
	spectrumNoise = iota
	spectrumH0K
	spectrumH0MinusK
)

func spectrumHost(block []byte) (compute.HostFunc, error) {
	sp, err := decodeParams[spectrumParams]("ocean_spectrum", block)
	if err != nil {
		return nil, err
	}
	n := int(sp.N)
	p := Params{
		N:         n,
		Length:    int(sp.L),
		Amplitude: float64(sp.A),
		Wind:      [2]float64{float64(sp.WindX), float64(sp.WindY)},
		WindSpeed: float64(sp.WindSpeed),
	}
	return func(x, y int, r compute.Resources) {
		if x >= n || y >= n {
			return
		}
		kx, ky := waveVector(x, y, n, p.Length)
		ampK := float32(PhillipsAmplitude(p, kx, ky))
		ampMinusK := float32(PhillipsAmplitude(p, -kx, -ky))
		g0, g1 := gaussianPair(r.Load(spectrumNoise, x, y))
		r.Store(spectrumH0K, x, y, texel(scale(g0, ampK)))
		r.Store(spectrumH0MinusK, x, y, texel(scale(g1, ampMinusK)))
	}, nil
}
