package ocean

import (
	"errors"
	"fmt"
)

// Configuration errors. They are reported before any device resource is
// created.
var (
	ErrNotPowerOfTwo      = errors.New("resolution is not a power of two")
	ErrResolutionTooSmall = errors.New("resolution below minimum")
	ErrResolutionTooLarge = errors.New("resolution exceeds half-float index bound")
	ErrInvalidLength      = errors.New("patch length must be positive")
	ErrInvalidAmplitude   = errors.New("amplitude must be finite and non-negative")
	ErrInvalidWind        = errors.New("invalid wind")
	ErrHalfRange          = errors.New("transform exceeds the half-precision range")
)

var (
	// ErrNotReady is returned by a Simulation that failed to initialize or
	// was closed.
	ErrNotReady = errors.New("simulation not ready")
	// ErrFrameStale is returned when a frame's outputs were overwritten by
	// a later frame.
	ErrFrameStale = errors.New("frame outputs overwritten by a later frame")
	// ErrComponentInactive is returned when reading a displacement
	// component of a height-only simulation.
	ErrComponentInactive = errors.New("component not simulated")
)

// ConfigError reports an invalid parameter.
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("ocean: invalid %s %v: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// BackendError reports a device failure during initialization, naming the
// stage and resource involved.
type BackendError struct {
	Stage    string
	Resource string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("ocean: %s stage: %s: %v", e.Stage, e.Resource, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
