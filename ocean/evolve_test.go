package ocean

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestEvolveHeightAtZero(t *testing.T) {
	h0k, h0MinusK := complex64(complex(1.5, -0.5)), complex64(complex(0.25, 2))
	got := EvolveHeight(h0k, h0MinusK, 3, 0)
	want := h0k + complex(real(h0MinusK), -imag(h0MinusK))
	if got != want {
		t.Fatalf("EvolveHeight at t=0 = %v, want %v", got, want)
	}
}

func TestEvolveHeightPeriodic(t *testing.T) {
	const mag = 2.0
	period := 2 * math.Pi / math.Sqrt(Gravity*mag)
	h0k, h0MinusK := complex64(complex(0.3, 0.7)), complex64(complex(-1, 0.2))
	a := EvolveHeight(h0k, h0MinusK, mag, 0.4)
	b := EvolveHeight(h0k, h0MinusK, mag, 0.4+period)
	if cmplx.Abs(complex128(a-b)) > 1e-5 {
		t.Fatalf("h(t) = %v, h(t+T) = %v", a, b)
	}
}

func TestDisplacement(t *testing.T) {
	h := complex64(complex(2, 1))
	// i·(−kx/|k|)·h with kx = |k| rotates h by −90°.
	if got, want := Displacement(h, 1, 1), complex64(complex(1, -2)); got != want {
		t.Fatalf("Displacement = %v, want %v", got, want)
	}
	if got := Displacement(h, 0, 1); got != 0 {
		t.Fatalf("Displacement along a zero axis = %v", got)
	}
	kx, ky := 3.0, 4.0
	dx, dz := Displacement(h, kx, 5), Displacement(h, ky, 5)
	sum := cmplx.Abs(complex128(dx))*cmplx.Abs(complex128(dx)) + cmplx.Abs(complex128(dz))*cmplx.Abs(complex128(dz))
	if hh := cmplx.Abs(complex128(h)); math.Abs(sum-hh*hh) > 1e-5 {
		t.Fatalf("|Dx|²+|Dz|² = %v, want |h|² = %v", sum, hh*hh)
	}
}
