package ocean

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
)

// ComplexField is an N×N grid of complex values, row-major.
type ComplexField struct {
	N    int
	Data []complex64
}

// NewComplexField returns a zeroed n×n field.
func NewComplexField(n int) ComplexField {
	return ComplexField{N: n, Data: make([]complex64, n*n)}
}

func (f ComplexField) At(x, y int) complex64 {
	return f.Data[y*f.N+x]
}

func (f ComplexField) Set(x, y int, v complex64) {
	f.Data[y*f.N+x] = v
}

// texels packs the field into (re, im, 0, 1) texels.
func (f ComplexField) texels() []float32 {
	out := make([]float32, 0, len(f.Data)*4)
	for _, v := range f.Data {
		t := texel(v)
		out = append(out, t[:]...)
	}
	return out
}

// RealField is an N×N grid of real values, row-major.
type RealField struct {
	N    int
	Data []float32
}

func (f RealField) At(x, y int) float32 {
	return f.Data[y*f.N+x]
}

// Stats summarizes a field.
type Stats struct {
	Min        float64
	Max        float64
	Mean       float64
	MeanSquare float64
	RMS        float64
	StdDev     float64
}

// Stats returns the summary statistics of f. NaN and Inf values propagate.
func (f RealField) Stats() Stats {
	if len(f.Data) == 0 {
		return Stats{}
	}
	v := make([]float64, len(f.Data))
	sq := make([]float64, len(f.Data))
	for i, x := range f.Data {
		v[i] = float64(x)
		sq[i] = v[i] * v[i]
	}
	meanSquare := stat.Mean(sq, nil)
	return Stats{
		Min:        floats.Min(v),
		Max:        floats.Max(v),
		Mean:       stat.Mean(v, nil),
		MeanSquare: meanSquare,
		RMS:        math.Sqrt(meanSquare),
		StdDev:     stat.PopStdDev(v, nil),
	}
}

// Finite reports whether every value of f is neither NaN nor infinite.
func (f RealField) Finite() bool {
	for _, x := range f.Data {
		if !finite(float64(x)) {
			return false
		}
	}
	return true
}

func decodeComplexField(n int, format compute.Format, raw []byte) (ComplexField, error) {
	texels, err := compute.DecodeTexels(format, raw)
	if err != nil {
		return ComplexField{}, err
	}
	if len(texels) != n*n*4 {
		return ComplexField{}, fmt.Errorf("%w: %d channels for a %dx%d field", compute.ErrEncoding, len(texels), n, n)
	}
	f := NewComplexField(n)
	for i := range f.Data {
		f.Data[i] = complex(texels[i*4], texels[i*4+1])
	}
	return f, nil
}

func decodeRealField(n int, format compute.Format, raw []byte) (RealField, error) {
	texels, err := compute.DecodeTexels(format, raw)
	if err != nil {
		return RealField{}, err
	}
	if len(texels) != n*n*4 {
		return RealField{}, fmt.Errorf("%w: %d channels for a %dx%d field", compute.ErrEncoding, len(texels), n, n)
	}
	f := RealField{N: n, Data: make([]float32, n*n)}
	for i := range f.Data {
		f.Data[i] = texels[i*4]
	}
	return f, nil
}
