package ocean

import (
	"math"
	"testing"
)

func TestBitReversalPermutation(t *testing.T) {
	for n := 4; n <= MaxResolution; n *= 2 {
		perm := BitReversalPermutation(n)
		if len(perm) != n {
			t.Fatalf("n=%d: length %d", n, len(perm))
		}
		seen := make([]bool, n)
		width := Params{N: n}.Log2N()
		for i, p := range perm {
			if p < 0 || p >= n || seen[p] {
				t.Fatalf("n=%d: perm[%d]=%d is out of range or repeated", n, i, p)
			}
			seen[p] = true
			if back := ReverseBits(p, width); back != i {
				t.Fatalf("n=%d: reverse(reverse(%d)) = %d", n, i, back)
			}
		}
	}
}

func TestBitReversalKnown(t *testing.T) {
	want := []int{0, 4, 2, 6, 1, 5, 3, 7}
	got := BitReversalPermutation(8)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("BitReversalPermutation(8) = %v, want %v", got, want)
		}
	}
}

func TestButterflyStageZero(t *testing.T) {
	for _, n := range []int{4, 8, 64, 256} {
		table := BuildButterflyTable(n)
		perm := BitReversalPermutation(n)
		for r := range n {
			k := (r * (n / 2)) % n
			angle := 2 * math.Pi * float64(k) / float64(n)
			b := table[0][r]
			if math.Abs(float64(real(b.Twiddle))-math.Cos(angle)) > 1e-6 ||
				math.Abs(float64(imag(b.Twiddle))-math.Sin(angle)) > 1e-6 {
				t.Fatalf("n=%d row %d: twiddle %v, want (%v, %v)", n, r, b.Twiddle, math.Cos(angle), math.Sin(angle))
			}
			var i0, i1 int
			if r%2 == 0 {
				i0, i1 = perm[r], perm[r+1]
			} else {
				i0, i1 = perm[r-1], perm[r]
			}
			if b.I0 != i0 || b.I1 != i1 {
				t.Fatalf("n=%d row %d: indices (%d, %d), want (%d, %d)", n, r, b.I0, b.I1, i0, i1)
			}
		}
	}
}

func TestButterflyLaterStages(t *testing.T) {
	const n = 16
	table := BuildButterflyTable(n)
	if len(table) != 4 {
		t.Fatalf("stages = %d, want 4", len(table))
	}
	for s := 1; s < len(table); s++ {
		span := 1 << s
		for r, b := range table[s] {
			if r%(2*span) < span {
				if b.I0 != r || b.I1 != r+span {
					t.Fatalf("stage %d row %d: top indices (%d, %d)", s, r, b.I0, b.I1)
				}
			} else if b.I0 != r-span || b.I1 != r {
				t.Fatalf("stage %d row %d: bottom indices (%d, %d)", s, r, b.I0, b.I1)
			}
			if mag := math.Hypot(float64(real(b.Twiddle)), float64(imag(b.Twiddle))); math.Abs(mag-1) > 1e-6 {
				t.Fatalf("stage %d row %d: |twiddle| = %v", s, r, mag)
			}
		}
	}
}

func TestButterflyTableOnDevice(t *testing.T) {
	for _, prec := range []Precision{PrecisionFloat, PrecisionHalf} {
		t.Run(prec.String(), func(t *testing.T) {
			p := testParams()
			p.N = 32
			sim := newSimulation(t, p, Options{Precision: prec})
			got, err := sim.ReadButterfly(ctx())
			if err != nil {
				t.Fatal(err)
			}
			want := BuildButterflyTable(p.N)
			tol := 1e-6
			if prec == PrecisionHalf {
				tol = 1e-3
			}
			for s := range want {
				for r := range want[s] {
					g, w := got[s][r], want[s][r]
					if g.I0 != w.I0 || g.I1 != w.I1 {
						t.Fatalf("stage %d row %d: indices (%d, %d), want (%d, %d)", s, r, g.I0, g.I1, w.I0, w.I1)
					}
					if d := math.Hypot(float64(real(g.Twiddle-w.Twiddle)), float64(imag(g.Twiddle-w.Twiddle))); d > tol {
						t.Fatalf("stage %d row %d: twiddle %v, want %v", s, r, g.Twiddle, w.Twiddle)
					}
				}
			}
		})
	}
}
