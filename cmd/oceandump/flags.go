package main

import "flag"

var (
	configFlag      = flag.String("config", "", "YAML configuration file (defaults are built in)")
	deviceFlag      = flag.String("device", "", "compute device: emu or opencl")
	framesFlag      = flag.Int("frames", 0, "number of frames to run (overrides dump.frames)")
	outputFlag      = flag.String("out", "", "CSV output path (overrides dump.output)")
	writeConfigFlag = flag.String("write-config", "", "also write the effective configuration as YAML to this path")
	verboseFlag     = flag.Bool("v", false, "log per-frame submissions")
	cpuProfileFlag  = flag.String("cpuprofile", "", "write a CPU profile to this file")
)
