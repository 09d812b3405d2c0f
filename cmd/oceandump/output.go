package main

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/ocean"
)

// statsRecord is one CSV row: the statistics of one component of one
// frame.
type statsRecord struct {
	Frame      uint64  `csv:"frame"`
	Time       float64 `csv:"time"`
	Component  string  `csv:"component"`
	Min        float64 `csv:"min"`
	Max        float64 `csv:"max"`
	Mean       float64 `csv:"mean"`
	MeanSquare float64 `csv:"mean_square"`
	RMS        float64 `csv:"rms"`
	StdDev     float64 `csv:"stddev"`
}

func newStatsRecord(seq uint64, t float64, c ocean.Component, s ocean.Stats) statsRecord {
	return statsRecord{
		Frame:      seq,
		Time:       t,
		Component:  c.String(),
		Min:        s.Min,
		Max:        s.Max,
		Mean:       s.Mean,
		MeanSquare: s.MeanSquare,
		RMS:        s.RMS,
		StdDev:     s.StdDev,
	}
}

// statsWriter streams records as CSV, writing the header once.
type statsWriter struct {
	w             io.Writer
	headerWritten bool
	rows          int
}

func newStatsWriter(w io.Writer) *statsWriter {
	return &statsWriter{w: w}
}

// Write appends the records of one frame.
func (sw *statsWriter) Write(records []statsRecord) error {
	if len(records) == 0 {
		return nil
	}
	if !sw.headerWritten {
		if err := gocsv.Marshal(records, sw.w); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		sw.headerWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, sw.w); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
	}
	sw.rows += len(records)
	return nil
}
