package ocean

import (
	"math"
	"math/bits"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
)

type butterflyParams struct {
	N     int32
	Log2N int32
	_     int32
	_     int32
}

const butterflySource = `
typedef struct {
    int n;
    int log2n;
    int pad0;
    int pad1;
} butterfly_params;

inline int reverse_bits(int v, int width)
{
    int r = 0;
    for (int i = 0; i < width; i++) {
        r = (r << 1) | (v & 1);
        v >>= 1;
    }
    return r;
}

__kernel void ocean_butterfly(const butterfly_params p, FIELD table)
{
    int stage = get_global_id(0);
    int row = get_global_id(1);
    if (stage >= p.log2n || row >= p.n) {
        return;
    }
    int span = 1 << stage;
    int step = span << 1;
    int k = (row * (p.n / step)) % p.n;
    float angle = TWO_PI * (float)k / (float)p.n;
    float2 twiddle = (float2)(cos(angle), sin(angle));
    bool top = (row % step) < span;
    int i0;
    int i1;
    if (stage == 0) {
        i0 = reverse_bits(top ? row : row - 1, p.log2n);
        i1 = reverse_bits(top ? row + 1 : row, p.log2n);
    } else {
        i0 = top ? row : row - span;
        i1 = top ? row + span : row;
    }
    STORE_FIELD(table, row * p.log2n + stage, (float4)(twiddle, (float)i0, (float)i1));
}
`

// Butterfly is one entry of the butterfly table: the twiddle factor and the
// two partner indices combined as H = x[I0] + Twiddle·x[I1].
type Butterfly struct {
	Twiddle complex64
	I0, I1  int
}

// ButterflyTable holds log2(N) stages of N butterflies, indexed
// [stage][row].
type ButterflyTable [][]Butterfly

// ReverseBits reverses the low width bits of v.
func ReverseBits(v, width int) int {
	return int(bits.Reverse(uint(v)) >> (bits.UintSize - width))
}

// BitReversalPermutation returns the length-n sequence whose i-th entry is
// i with its low log2(n) bits reversed. n must be a power of two.
func BitReversalPermutation(n int) []int {
	width := bits.Len(uint(n)) - 1
	perm := make([]int, n)
	for i := range perm {
		perm[i] = ReverseBits(i, width)
	}
	return perm
}

// Twiddle returns the twiddle factor and partner indices for a stage and
// row of an n-point transform, the same values the butterfly stage writes.
func Twiddle(n, stage, row int, perm []int) Butterfly {
	span := 1 << stage
	step := span << 1
	k := (row * (n / step)) % n
	s, c := math.Sincos(2 * math.Pi * float64(k) / float64(n))
	b := Butterfly{Twiddle: complex(float32(c), float32(s))}
	top := row%step < span
	switch {
	case stage == 0 && top:
		b.I0, b.I1 = perm[row], perm[row+1]
	case stage == 0:
		b.I0, b.I1 = perm[row-1], perm[row]
	case top:
		b.I0, b.I1 = row, row+span
	default:
		b.I0, b.I1 = row-span, row
	}
	return b
}

// BuildButterflyTable computes the full table for an n-point transform.
// The result depends only on n.
func BuildButterflyTable(n int) ButterflyTable {
	log2n := bits.Len(uint(n)) - 1
	perm := BitReversalPermutation(n)
	table := make(ButterflyTable, log2n)
	for s := range table {
		table[s] = make([]Butterfly, n)
		for r := range table[s] {
			table[s][r] = Twiddle(n, s, r, perm)
		}
	}
	return table
}

func butterflyKernel(prec Precision) compute.Kernel {
	return compute.Kernel{
		Name:          "ocean_butterfly",
		Source:        kernelSource(butterflySource),
		BuildOptions:  buildOptions(prec),
		WorkgroupSize: [2]int{1, workgroupSize},
		ParamSize:     16,
		Host:          butterflyHost,
	}
}

func butterflyHost(block []byte) (compute.HostFunc, error) {
	bp, err := decodeParams[butterflyParams]("ocean_butterfly", block)
	if err != nil {
		return nil, err
	}
	n, log2n := int(bp.N), int(bp.Log2N)
	perm := BitReversalPermutation(n)
	return func(stage, row int, r compute.Resources) {
		if stage >= log2n || row >= n {
			return
		}
		b := Twiddle(n, stage, row, perm)
		r.Store(0, stage, row, [4]float32{real(b.Twiddle), imag(b.Twiddle), float32(b.I0), float32(b.I1)})
	}, nil
}

// decodeButterflyTable rebuilds a table from the texels of the butterfly
// texture, log2n wide and n tall.
func decodeButterflyTable(n, log2n int, texels []float32) ButterflyTable {
	table := make(ButterflyTable, log2n)
	for s := range table {
		table[s] = make([]Butterfly, n)
		for r := range table[s] {
			i := (r*log2n + s) * 4
			table[s][r] = Butterfly{
				Twiddle: complex(texels[i], texels[i+1]),
				I0:      int(texels[i+2]),
				I1:      int(texels[i+3]),
			}
		}
	}
	return table
}
