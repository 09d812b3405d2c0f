package main

import "flag"

// Command-line flags. Flags left at their zero value keep the setting from
// the configuration file.
var (
	// configFlag names a YAML file layered over the built-in defaults.
	configFlag = flag.String("config", "", "YAML configuration file (defaults are built in)")

	// deviceFlag overrides pipeline.device.
	deviceFlag = flag.String("device", "", "compute device: emu or opencl")

	// resolutionFlag overrides ocean.resolution.
	resolutionFlag = flag.Int("n", 0, "grid resolution, a power of two")

	// debugFlag enables the FPS and field statistics overlay.
	debugFlag = flag.Bool("debug", false, "show FPS, wind and height statistics overlay")

	verboseFlag = flag.Bool("v", false, "log per-frame submissions")

	// recordDefaultPGO drifts the wind randomly while capturing default.pgo.
	recordDefaultPGO = flag.Bool("record-default-pgo", false, "drift the wind randomly for 15s while capturing default.pgo")

	cpuProfileFlag = flag.String("cpuprofile", "", "write a CPU profile to this file")
)
