package ocean

import (
	"errors"
	"math"
	"testing"
)

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Params)
		field string
		err   error
	}{
		{"default", func(*Params) {}, "", nil},
		{"minimum", func(p *Params) { p.N = 2 }, "", nil},
		{"maximum", func(p *Params) { p.N = 2048 }, "", nil},
		{"not power of two", func(p *Params) { p.N = 100 }, "N", ErrNotPowerOfTwo},
		{"zero", func(p *Params) { p.N = 0 }, "N", ErrNotPowerOfTwo},
		{"one", func(p *Params) { p.N = 1 }, "N", ErrResolutionTooSmall},
		{"too large", func(p *Params) { p.N = 4096 }, "N", ErrResolutionTooLarge},
		{"length", func(p *Params) { p.Length = 0 }, "Length", ErrInvalidLength},
		{"negative amplitude", func(p *Params) { p.Amplitude = -1 }, "Amplitude", ErrInvalidAmplitude},
		{"nan amplitude", func(p *Params) { p.Amplitude = math.NaN() }, "Amplitude", ErrInvalidAmplitude},
		{"zero wind", func(p *Params) { p.Wind = [2]float64{} }, "Wind", ErrInvalidWind},
		{"inf wind", func(p *Params) { p.Wind[1] = math.Inf(1) }, "Wind", ErrInvalidWind},
		{"negative wind speed", func(p *Params) { p.WindSpeed = -3 }, "WindSpeed", ErrInvalidWind},
		{"calm", func(p *Params) { p.WindSpeed = 0 }, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.edit(&p)
			err := p.Validate()
			if tt.err == nil {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			var ce *ConfigError
			if !errors.As(err, &ce) || !errors.Is(err, tt.err) || ce.Field != tt.field {
				t.Fatalf("Validate() = %v, want %s: %v", err, tt.field, tt.err)
			}
		})
	}
}

func TestWindDirection(t *testing.T) {
	p := DefaultParams()
	p.Wind = [2]float64{3, 4}
	if w := p.WindDirection(); math.Abs(w[0]-0.6) > 1e-12 || math.Abs(w[1]-0.8) > 1e-12 {
		t.Fatalf("WindDirection() = %v", w)
	}
	if got := (Params{N: 256}).Log2N(); got != 8 {
		t.Fatalf("Log2N() = %d", got)
	}
}

func TestOptionsComponents(t *testing.T) {
	if c := (Options{}).components(); len(c) != 1 || c[0] != Height {
		t.Fatalf("height-only components = %v", c)
	}
	if c := (Options{Choppy: true}).components(); len(c) != 3 || c[1] != DisplaceX || c[2] != DisplaceZ {
		t.Fatalf("choppy components = %v", c)
	}
	if (Options{}).slots() != 1 || (Options{DoubleBuffer: true}).slots() != 2 {
		t.Fatal("output slot count")
	}
}
