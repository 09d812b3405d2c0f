// Package devices opens the compute device selected by the pipeline
// configuration.
package devices

import (
	"fmt"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute/emu"
	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute/opencl"
	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/config"
)

// Open returns the device named by p.Device. The caller closes it.
func Open(p config.PipelineConfig) (compute.Device, error) {
	switch p.Device {
	case config.DeviceOpenCL:
		dev, err := opencl.New()
		if err != nil {
			return nil, fmt.Errorf("opening OpenCL device: %w", err)
		}
		return dev, nil
	case config.DeviceEmu:
		var opts []emu.Option
		if p.Workers > 0 {
			opts = append(opts, emu.WithWorkers(p.Workers))
		}
		return emu.New(opts...), nil
	}
	return nil, fmt.Errorf("unknown device %q", p.Device)
}
