//go:build !opencl

package opencl

import (
	"context"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
)

type Device struct{}

func New() (*Device, error) {
	return nil, ErrUnavailable
}

func (d *Device) Name() string { return "" }

func (d *Device) SupportsFormat(compute.Format, compute.Usage) bool { return false }

func (d *Device) CreatePipeline(compute.Kernel) (compute.Pipeline, error) {
	return nil, ErrUnavailable
}

func (d *Device) CreateTexture(compute.TextureDesc) (compute.Texture, error) {
	return nil, ErrUnavailable
}

func (d *Device) CreateResourceSet(compute.Pipeline, []compute.Binding) (compute.ResourceSet, error) {
	return nil, ErrUnavailable
}

func (d *Device) WriteTexture(context.Context, compute.Texture, []byte) error {
	return ErrUnavailable
}

func (d *Device) Submit(*compute.CommandList) (compute.Fence, error) {
	return nil, ErrUnavailable
}

func (d *Device) ReadTexture(context.Context, compute.Texture) ([]byte, error) {
	return nil, ErrUnavailable
}

func (d *Device) Close() error { return nil }
