package ocean

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/internal/half"
)

const (
	// Gravity is the gravitational acceleration used by the dispersion
	// relation and the Phillips spectrum, in m/s².
	Gravity = 9.81
	// MinResolution is the smallest grid edge the pipeline accepts.
	MinResolution = 2
	// MaxResolution is the largest grid edge whose butterfly indices are
	// exact in half-float storage.
	MaxResolution = half.MaxExactInt
	// workgroupSize is the edge of the square workgroups used by every
	// N×N stage; the butterfly stage uses 1×workgroupSize.
	workgroupSize = 16
)

// Params are the spectrum parameters. They are immutable for the lifetime
// of a cached spectrum; Simulation.Reconfigure replaces them.
type Params struct {
	// N is the grid edge. It must be a power of two in
	// [MinResolution, MaxResolution].
	N int
	// Length is the patch size L in meters.
	Length int
	// Amplitude is the Phillips constant A.
	Amplitude float64
	// Wind is the wind direction. It need not be normalized but must not
	// be zero.
	Wind [2]float64
	// WindSpeed is in m/s.
	WindSpeed float64
}

// DefaultParams returns a moderate 256² swell.
func DefaultParams() Params {
	return Params{
		N:         256,
		Length:    1000,
		Amplitude: 20,
		Wind:      [2]float64{1, 1},
		WindSpeed: 31,
	}
}

// Validate checks p and returns a *ConfigError describing the first
// problem found.
func (p Params) Validate() error {
	switch {
	case p.N <= 0 || bits.OnesCount(uint(p.N)) != 1:
		return &ConfigError{Field: "N", Value: p.N, Err: ErrNotPowerOfTwo}
	case p.N < MinResolution:
		return &ConfigError{Field: "N", Value: p.N, Err: ErrResolutionTooSmall}
	case p.N > MaxResolution:
		return &ConfigError{Field: "N", Value: p.N, Err: ErrResolutionTooLarge}
	case p.Length <= 0:
		return &ConfigError{Field: "Length", Value: p.Length, Err: ErrInvalidLength}
	case !finite(p.Amplitude) || p.Amplitude < 0:
		return &ConfigError{Field: "Amplitude", Value: p.Amplitude, Err: ErrInvalidAmplitude}
	case !finite(p.Wind[0]) || !finite(p.Wind[1]) || math.Hypot(p.Wind[0], p.Wind[1]) == 0:
		return &ConfigError{Field: "Wind", Value: p.Wind, Err: ErrInvalidWind}
	case !finite(p.WindSpeed) || p.WindSpeed < 0:
		return &ConfigError{Field: "WindSpeed", Value: p.WindSpeed, Err: ErrInvalidWind}
	}
	return nil
}

// ValidateFor checks p and that opts can store its fields. Half-precision
// storage is rejected with ErrHalfRange when PeakEstimate exceeds the
// binary16 range.
func (p Params) ValidateFor(opts Options) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if opts.Precision == PrecisionHalf {
		if peak := PeakEstimate(p); peak > half.Max {
			return &ConfigError{
				Field: "Amplitude",
				Value: p.Amplitude,
				Err:   fmt.Errorf("%w: estimated peak %.0f > %d", ErrHalfRange, peak, half.Max),
			}
		}
	}
	return nil
}

// WindDirection returns the normalized wind direction.
func (p Params) WindDirection() [2]float64 {
	l := math.Hypot(p.Wind[0], p.Wind[1])
	if l == 0 {
		return [2]float64{}
	}
	return [2]float64{p.Wind[0] / l, p.Wind[1] / l}
}

// Log2N returns log2(N). N must be valid.
func (p Params) Log2N() int {
	return bits.Len(uint(p.N)) - 1
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Component selects one scalar displacement field.
type Component int

const (
	Height Component = iota
	DisplaceX
	DisplaceZ
)

func (c Component) String() string {
	switch c {
	case Height:
		return "height"
	case DisplaceX:
		return "displace-x"
	case DisplaceZ:
		return "displace-z"
	}
	return "unknown"
}

// Precision selects the storage format of the intermediate fields.
type Precision int

const (
	// PrecisionHalf stores fields as four binary16 channels, the format
	// with the broadest storage support. The unnormalized transform must
	// stay within binary16 range; see Params.ValidateFor.
	PrecisionHalf Precision = iota
	// PrecisionFloat stores fields as four float32 channels.
	PrecisionFloat
)

func (p Precision) String() string {
	if p == PrecisionFloat {
		return "float"
	}
	return "half"
}

// Options select pipeline features. The zero value is a height-only,
// half-precision, single-buffered pipeline seeded with 0.
type Options struct {
	// Choppy adds the two horizontal displacement components.
	Choppy bool
	// Precision selects the field storage format.
	Precision Precision
	// Seed drives the noise source.
	Seed int64
	// DoubleBuffer alternates between two sets of output textures so the
	// previous frame stays readable while the next one computes.
	DoubleBuffer bool
}

func (o Options) components() []Component {
	if o.Choppy {
		return []Component{Height, DisplaceX, DisplaceZ}
	}
	return []Component{Height}
}

func (o Options) slots() int {
	if o.DoubleBuffer {
		return 2
	}
	return 1
}
