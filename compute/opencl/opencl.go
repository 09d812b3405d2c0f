// Package opencl implements compute.Device on OpenCL. Textures are device
// buffers of tightly packed texels; half textures are read and written by
// kernels through vload_half4 and vstore_half4.
//
// The device is only available when built with -tags opencl.
package opencl

import "errors"

// ErrUnavailable is returned by New when OpenCL support is not compiled in.
var ErrUnavailable = errors.New("OpenCL support is not enabled; rebuild with -tags opencl")
