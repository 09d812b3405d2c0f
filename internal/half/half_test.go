package half

import (
	"math"
	"testing"
)

func TestFromFloat32KnownBits(t *testing.T) {
	tests := []struct {
		in   float32
		want uint16
	}{
		{0, 0x0000},
		{float32(math.Copysign(0, -1)), 0x8000},
		{1, 0x3c00},
		{-2, 0xc000},
		{0.5, 0x3800},
		{65504, 0x7bff},
		{70000, 0x7c00},
		{float32(math.Inf(-1)), 0xfc00},
		{float32(math.Ldexp(1, -24)), 0x0001},
		{float32(math.Ldexp(1, -30)), 0x0000},
	}
	for _, tt := range tests {
		if got := FromFloat32(tt.in); got != tt.want {
			t.Errorf("FromFloat32(%g) = %#04x, want %#04x", tt.in, got, tt.want)
		}
	}
}

func TestFromFloat32TiesToEven(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want uint16
	}{
		{"2049 to 2048", 2049, 0x6800},
		{"2051 to 2052", 2051, 0x6802},
		{"1+ulp/2 to 1", 1 + 1.0/2048, 0x3c00},
		{"1+3ulp/2 up", 1 + 3.0/2048, 0x3c02},
		{"below max halfway", 65519, 0x7bff},
		{"max halfway to Inf", 65520, 0x7c00},
		{"half a subnormal", float32(math.Ldexp(1, -25)), 0x0000},
		{"1.5 subnormals", float32(math.Ldexp(3, -25)), 0x0002},
		{"2.5 subnormals", float32(math.Ldexp(5, -25)), 0x0002},
		{"carry to normal", float32(math.Ldexp(1023.5, -24)), 0x0400},
	}
	for _, tt := range tests {
		if got := FromFloat32(tt.in); got != tt.want {
			t.Errorf("%s: FromFloat32(%g) = %#04x, want %#04x", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestSliceHelpers(t *testing.T) {
	src := []float32{0.5, 2049, -65504, 1e-8}
	bits := make([]uint16, len(src))
	Encode(bits, src)
	dst := make([]float32, len(src))
	Decode(dst, bits)
	for i, v := range src {
		if dst[i] != Round(v) {
			t.Errorf("index %d: got %g, want %g", i, dst[i], Round(v))
		}
	}
}

func TestNaNStaysNaN(t *testing.T) {
	h := FromFloat32(float32(math.NaN()))
	if !math.IsNaN(float64(ToFloat32(h))) {
		t.Fatalf("NaN encoded as %#04x decodes to %g", h, ToFloat32(h))
	}
}

func TestIntegersExactUpToMaxExactInt(t *testing.T) {
	for i := 0; i <= MaxExactInt; i++ {
		if got := Round(float32(i)); got != float32(i) {
			t.Fatalf("Round(%d) = %g", i, got)
		}
	}
	if got := Round(MaxExactInt + 1); got == MaxExactInt+1 {
		t.Fatalf("Round(%d) unexpectedly exact", MaxExactInt+1)
	}
}

func TestEveryFiniteHalfRoundTrips(t *testing.T) {
	for h := 0; h < 0x10000; h++ {
		bits := uint16(h)
		if bits&0x7c00 == 0x7c00 {
			continue
		}
		f := ToFloat32(bits)
		if got := FromFloat32(f); got != bits {
			t.Fatalf("round trip %#04x -> %g -> %#04x", bits, f, got)
		}
	}
}

func TestBytesRoundTrip(t *testing.T) {
	src := []float32{0.25, -1.5, 3, 1024, -0.0078125}
	buf := make([]byte, len(src)*Size)
	PutBytes(buf, src)
	dst := make([]float32, len(src))
	FromBytes(dst, buf)
	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("index %d: got %g want %g", i, dst[i], src[i])
		}
	}
}

func TestRelativeErrorBound(t *testing.T) {
	for _, v := range []float32{0.1, 0.333, 1.7, 12.34, 987.6} {
		got := Round(v)
		if rel := math.Abs(float64(got-v)) / float64(v); rel > 1.0/2048 {
			t.Errorf("Round(%g) = %g, relative error %g", v, got, rel)
		}
	}
}
