package main

import (
	"math"
	"math/rand"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/ocean"
)

// enableAutoDrift lets the wind wander randomly for a limited duration.
func (g *Game) enableAutoDrift(duration time.Duration) {
	g.autoDrift = true
	g.autoDriftDeadline = time.Now().Add(duration)
	if g.autoDriftRand == nil {
		g.autoDriftRand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	g.autoDriftFrames = 0
}

// handleControls processes keyboard input for one tick.
func (g *Game) handleControls() {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	turn, gust := g.windInput()
	if turn != 0 {
		g.windAngle = math.Mod(g.windAngle+turn, 2*math.Pi)
		g.dirty = true
	}
	if gust != 0 {
		g.params.WindSpeed = clampFloat(g.params.WindSpeed+gust, minWindSpeed, maxWindSpeed)
		g.dirty = true
	}
	g.handleSpectrumControls()
	g.handleDebugControls()
}

// windInput selects either manual or scripted wind changes.
func (g *Game) windInput() (turn, gust float64) {
	if g.autoDrift {
		return g.autoDriftInput()
	}
	return g.manualWindInput()
}

// manualWindInput returns arrow-key wind rotation and speed changes.
func (g *Game) manualWindInput() (turn, gust float64) {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
		turn -= windAngleStep
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
		turn += windAngleStep
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		gust += windSpeedStep
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		gust -= windSpeedStep
	}
	return turn, gust
}

// autoDriftInput returns small random wind changes that hold for a few
// dozen ticks before a new heading is drawn.
func (g *Game) autoDriftInput() (turn, gust float64) {
	if g.autoDriftFrames <= 0 {
		g.randomizeAutoDrift()
	}
	g.autoDriftFrames--
	return g.autoDriftTurn, g.autoDriftGust
}

// randomizeAutoDrift chooses a new drift for automatic wind changes.
func (g *Game) randomizeAutoDrift() {
	if g.autoDriftRand == nil {
		g.autoDriftRand = rand.New(rand.NewSource(time.Now().UnixNano() + 1))
	}
	g.autoDriftTurn = (g.autoDriftRand.Float64()*2 - 1) * windAngleStep / 8
	g.autoDriftGust = (g.autoDriftRand.Float64()*2 - 1) * windSpeedStep / 4
	g.autoDriftFrames = autoDriftMinFrames + g.autoDriftRand.Intn(autoDriftFrameSpread)
}

// handleSpectrumControls processes amplitude, resolution and choppiness
// hotkeys.
func (g *Game) handleSpectrumControls() {
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketRight) {
		g.params.Amplitude = clampFloat(g.params.Amplitude*amplitudeFactor, minAmplitude, maxAmplitude)
		g.dirty = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketLeft) {
		g.params.Amplitude = clampFloat(g.params.Amplitude/amplitudeFactor, minAmplitude, maxAmplitude)
		g.dirty = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageUp) && g.params.N*2 <= maxViewerResolution {
		g.params.N *= 2
		g.dirty = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageDown) && g.params.N/2 >= ocean.MinResolution {
		g.params.N /= 2
		g.dirty = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyV) {
		g.choppiness = clampFloat(g.choppiness+choppinessStep, 0, maxChoppiness)
		g.paint()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		g.choppiness = clampFloat(g.choppiness-choppinessStep, 0, maxChoppiness)
		g.paint()
	}
}

// handleDebugControls processes debug overlay hotkeys.
func (g *Game) handleDebugControls() {
	if !*debugFlag {
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract) {
		g.timeScale = clampFloat(g.timeScale-timeScaleStep, 0, maxTimeScale)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) || inpututil.IsKeyJustPressed(ebiten.KeyKPAdd) {
		g.timeScale = clampFloat(g.timeScale+timeScaleStep, 0, maxTimeScale)
	}
}
