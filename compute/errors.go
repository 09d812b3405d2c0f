package compute

import "errors"

var (
	// ErrUnsupportedFormat is returned when a device cannot create a texture
	// with the requested format and usage.
	ErrUnsupportedFormat = errors.New("unsupported texture format")
	// ErrHazard is returned when a dispatch reads a texture written since
	// the last barrier.
	ErrHazard = errors.New("read-after-write hazard: missing barrier")
	// ErrReleased is returned when a released resource is used.
	ErrReleased = errors.New("resource already released")
	// ErrForeignResource is returned when a resource created by another
	// device is passed in.
	ErrForeignResource = errors.New("resource belongs to another device")
	// ErrBinding is returned for invalid resource set bindings.
	ErrBinding = errors.New("invalid binding")
	// ErrClosed is returned by a device after Close.
	ErrClosed = errors.New("device closed")
	// ErrEncoding is returned for command lists recorded out of order.
	ErrEncoding = errors.New("invalid command sequence")
)
