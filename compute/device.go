// Package compute describes the GPU capability surface the ocean pipeline is
// written against: pipelines built from kernels, 2D textures, resource sets,
// recorded command lists with explicit barriers, submission and readback.
//
// Devices live in sub-packages. compute/opencl drives real hardware;
// compute/emu executes the same kernels through their host entry points and
// checks barrier placement, which makes it the device used by tests.
package compute

import "context"

// Device creates resources and executes command lists on one queue timeline.
// Submissions execute in the order they were submitted.
type Device interface {
	// Name identifies the device in logs.
	Name() string
	// SupportsFormat reports whether textures of format f can be created
	// with usage u.
	SupportsFormat(f Format, u Usage) bool
	CreatePipeline(k Kernel) (Pipeline, error)
	CreateTexture(desc TextureDesc) (Texture, error)
	// CreateResourceSet binds textures to the numbered slots of p.
	CreateResourceSet(p Pipeline, bindings []Binding) (ResourceSet, error)
	// WriteTexture replaces the texture contents with data, which must be
	// exactly Width*Height*TexelSize bytes. It returns once the upload is
	// ordered after every earlier submission.
	WriteTexture(ctx context.Context, t Texture, data []byte) error
	// Submit queues list for execution and returns without waiting.
	Submit(list *CommandList) (Fence, error)
	// ReadTexture waits for every earlier submission and returns the raw
	// texel bytes, row-major, little-endian.
	ReadTexture(ctx context.Context, t Texture) ([]byte, error)
	Close() error
}

// Fence tracks completion of one submission.
type Fence interface {
	// Wait blocks until the submission completed or ctx is done and
	// returns the submission's execution error, if any.
	Wait(ctx context.Context) error
	// Done reports completion without blocking.
	Done() bool
}

// Texture is a 2D grid of texels owned by the device that created it.
type Texture interface {
	Desc() TextureDesc
	Release()
}

// Pipeline is a kernel prepared for dispatch.
type Pipeline interface {
	Kernel() Kernel
	Release()
}

// ResourceSet is the set of textures bound to a pipeline's slots.
type ResourceSet interface {
	Release()
}

// Access declares how a kernel touches a bound texture.
type Access uint8

const (
	AccessRead Access = 1 << iota
	AccessWrite

	AccessReadWrite = AccessRead | AccessWrite
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessReadWrite:
		return "read-write"
	}
	return "none"
}

// Binding attaches a texture to a numbered slot.
type Binding struct {
	Slot    int
	Texture Texture
	Access  Access
}

// Resources is the view of bound textures a host kernel sees. Loads outside
// the texture return zero and stores outside it are dropped, the same way
// out-of-range image accesses behave on GPUs.
type Resources interface {
	Load(slot, x, y int) [4]float32
	Store(slot, x, y int, v [4]float32)
}

// HostFunc runs one kernel invocation at global position (x, y).
type HostFunc func(x, y int, r Resources)

// Kernel is a compute program in two forms: OpenCL C source for hardware
// devices and a host entry point for the emulator. Both must implement the
// same per-invocation semantics.
type Kernel struct {
	Name string
	// Source is OpenCL C. Its entry point is Name; the first argument is
	// the parameter block passed by value, followed by one __global
	// pointer per binding slot in slot order.
	Source       string
	BuildOptions string
	// WorkgroupSize is the local size in x and y.
	WorkgroupSize [2]int
	// ParamSize is the exact size of the pushed parameter block.
	ParamSize int
	// Host decodes a parameter block and returns the invocation function.
	Host func(params []byte) (HostFunc, error)
}

// Groups returns the number of workgroups needed to cover n invocations of
// a workgroup of the given size.
func Groups(n, size int) int {
	return (n + size - 1) / size
}
