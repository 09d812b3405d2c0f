package main

import (
	"fmt"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// Colors of the lowest and highest displayed height.
var (
	troughColor = [3]float64{6, 28, 64}
	crestColor  = [3]float64{196, 224, 240}
)

// paint converts the shown height field to RGBA pixels. With displacement
// fields present each pixel samples the height its horizontally displaced
// grid point came from.
func (g *Game) paint() {
	n := g.height.N
	if len(g.pixels) != n*n*4 {
		g.pixels = make([]byte, n*n*4)
	}
	cell := float64(g.params.Length) / float64(n)
	choppy := g.choppiness > 0 && g.dispX.N == n && g.dispZ.N == n
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			sx, sy := x, y
			if choppy {
				sx = wrapCoord(x-int(math.Round(g.choppiness*float64(g.dispX.At(x, y))/cell)), n)
				sy = wrapCoord(y-int(math.Round(g.choppiness*float64(g.dispZ.At(x, y))/cell)), n)
			}
			r, gr, b := shade(float64(g.height.At(sx, sy)) / g.render.HeightRange)
			base := (y*n + x) * 4
			g.pixels[base] = r
			g.pixels[base+1] = gr
			g.pixels[base+2] = b
			g.pixels[base+3] = 255
		}
	}
}

// shade maps a height in [-1, 1] onto the trough to crest gradient.
func shade(h float64) (byte, byte, byte) {
	s := clampFloat((h+1)/2, 0, 1)
	var c [3]byte
	for i := range c {
		c[i] = byte(troughColor[i] + s*(crestColor[i]-troughColor[i]) + 0.5)
	}
	return c[0], c[1], c[2]
}

// Draw renders the last collected frame and the optional overlay.
func (g *Game) Draw(screen *ebiten.Image) {
	if len(g.pixels) == g.n*g.n*4 {
		screen.WritePixels(g.pixels)
	}

	if *debugFlag {
		windDeg := math.Mod(g.windAngle*180/math.Pi+360, 360)
		state := ""
		if g.paused {
			state = " (paused)"
		}
		debugMsg := fmt.Sprintf("FPS: %.1f  TPS: %.1f\nGrid: %d  L: %dm  device: %s\nWind: %.1f m/s @ %.0f deg  A: %.2f\nChoppiness: %.1f  time x%.2f%s\nFrame %d  t=%.2fs  sim %.2f ms\nHeight min %.2f max %.2f rms %.3f",
			ebiten.ActualFPS(), ebiten.ActualTPS(),
			g.n, g.params.Length, g.dev.Name(),
			g.params.WindSpeed, windDeg, g.params.Amplitude,
			g.choppiness, g.timeScale, state,
			g.shownSeq, g.t, g.lastSimDuration.Seconds()*1000,
			g.stats.Min, g.stats.Max, g.stats.RMS)
		ebitenutil.DebugPrint(screen, debugMsg)
	}
}

// Layout reports one logical pixel per grid point.
func (g *Game) Layout(_, _ int) (int, int) { return g.n, g.n }

// wrapCoord maps v onto [0, n) periodically.
func wrapCoord(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// clampFloat constrains v to lie within the inclusive [min, max] range.
func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
