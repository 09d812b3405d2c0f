package ocean

import "math/rand"

// noiseFloor keeps uniform samples away from zero so log(u) in the
// Box-Muller transform stays finite.
const noiseFloor = 0.001

// Noise holds four independent uniform fields in [noiseFloor, 1], packed
// as the four channels of an N×N texture.
type Noise struct {
	N    int
	Data []float32
}

// NewNoise draws the four fields for an n×n grid from seed. The same seed
// always yields the same fields.
func NewNoise(n int, seed int64) Noise {
	r := rand.New(rand.NewSource(seed))
	data := make([]float32, n*n*4)
	for i := range data {
		u := float32(1 - r.Float64())
		if u < noiseFloor {
			u = noiseFloor
		}
		data[i] = u
	}
	return Noise{N: n, Data: data}
}

// At returns the four samples of cell (x, y).
func (nz Noise) At(x, y int) [4]float32 {
	i := (y*nz.N + x) * 4
	return [4]float32{nz.Data[i], nz.Data[i+1], nz.Data[i+2], nz.Data[i+3]}
}
