package main

import (
	"math"
	"time"
)

// Viewer tuning. The spectrum itself comes from the configuration.
const (
	windowTitle          = "Ocean FFT"
	windAngleStep        = math.Pi / 12
	windSpeedStep        = 1.0
	minWindSpeed         = 0.0
	maxWindSpeed         = 60.0
	amplitudeFactor      = 1.25
	minAmplitude         = 0.01
	maxAmplitude         = 1000.0
	choppinessStep       = 0.1
	maxChoppiness        = 3.0
	timeScaleStep        = 0.25
	maxTimeScale         = 8.0
	maxViewerResolution  = 512
	pgoRecordDuration    = 15 * time.Second
	pgoProfilePath       = "default.pgo"
	reconfigureTimeout   = 5 * time.Second
	statsLogInterval     = 5 * time.Second
	autoDriftMinFrames   = 20
	autoDriftFrameSpread = 50
)
