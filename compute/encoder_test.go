package compute

import (
	"errors"
	"testing"
)

type fakePipeline struct{ k Kernel }

func (p fakePipeline) Kernel() Kernel { return p.k }
func (fakePipeline) Release()         {}

type fakeSet struct{}

func (fakeSet) Release() {}

type stageParams struct {
	Stage     int32
	PingPong  int32
	Direction int32
	N         int32
}

type paddedParams struct {
	N int32
	_ int32
	T float32
	_ float32
}

func TestEncoderRecordsPass(t *testing.T) {
	p := fakePipeline{Kernel{Name: "k", ParamSize: 16}}
	enc := NewEncoder("frame")
	enc.BeginComputePass("fft")
	enc.SetPipeline(p, fakeSet{})
	enc.PushConstants(EncodeParams(stageParams{N: 8}))
	enc.Dispatch(1, 1)
	enc.Barrier()
	enc.EndComputePass()
	list, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	want := []CommandKind{CmdBeginPass, CmdSetPipeline, CmdPushConstants, CmdDispatch, CmdBarrier, CmdEndPass}
	if len(list.Commands) != len(want) {
		t.Fatalf("got %d commands, want %d", len(list.Commands), len(want))
	}
	for i, k := range want {
		if list.Commands[i].Kind != k {
			t.Errorf("command %d = %s, want %s", i, list.Commands[i].Kind, k)
		}
	}
	if list.Dispatches() != 1 {
		t.Errorf("Dispatches() = %d", list.Dispatches())
	}
}

func TestEncoderRejectsMisuse(t *testing.T) {
	p := fakePipeline{Kernel{Name: "k", ParamSize: 16}}
	tests := []struct {
		name   string
		record func(e *Encoder)
	}{
		{"dispatch outside pass", func(e *Encoder) { e.Dispatch(1, 1) }},
		{"barrier outside pass", func(e *Encoder) { e.Barrier() }},
		{"nested pass", func(e *Encoder) { e.BeginComputePass("a"); e.BeginComputePass("b") }},
		{"pass left open", func(e *Encoder) { e.BeginComputePass("a") }},
		{"push before pipeline", func(e *Encoder) { e.BeginComputePass("a"); e.PushConstants(make([]byte, 16)) }},
		{"wrong block size", func(e *Encoder) {
			e.BeginComputePass("a")
			e.SetPipeline(p, fakeSet{})
			e.PushConstants(make([]byte, 12))
		}},
		{"dispatch without params", func(e *Encoder) {
			e.BeginComputePass("a")
			e.SetPipeline(p, fakeSet{})
			e.Dispatch(1, 1)
		}},
		{"empty dispatch", func(e *Encoder) {
			e.BeginComputePass("a")
			e.SetPipeline(p, fakeSet{})
			e.PushConstants(make([]byte, 16))
			e.Dispatch(0, 1)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEncoder("test")
			tt.record(e)
			if _, err := e.Finish(); !errors.Is(err, ErrEncoding) {
				t.Fatalf("Finish error = %v, want ErrEncoding", err)
			}
		})
	}
}

func TestParamsPaddingAndRoundTrip(t *testing.T) {
	in := paddedParams{N: 256, T: 1.5}
	block := EncodeParams(in)
	if len(block) != 16 {
		t.Fatalf("block is %d bytes, want 16", len(block))
	}
	for _, b := range block[4:8] {
		if b != 0 {
			t.Fatalf("padding not zeroed: % x", block)
		}
	}
	var out paddedParams
	if err := DecodeParams(block, &out); err != nil {
		t.Fatalf("DecodeParams: %v", err)
	}
	if out.N != in.N || out.T != in.T {
		t.Fatalf("got %+v, want %+v", out, in)
	}
	if err := DecodeParams(block[:12], &out); err == nil {
		t.Fatal("short block accepted")
	}
}

func TestFormatSizes(t *testing.T) {
	tests := []struct {
		f         Format
		channels  int
		texelSize int
	}{
		{FormatR32F, 1, 4},
		{FormatRGBA32F, 4, 16},
		{FormatRGBA16F, 4, 8},
	}
	for _, tt := range tests {
		if got := tt.f.Channels(); got != tt.channels {
			t.Errorf("%s.Channels() = %d, want %d", tt.f, got, tt.channels)
		}
		if got := tt.f.TexelSize(); got != tt.texelSize {
			t.Errorf("%s.TexelSize() = %d, want %d", tt.f, got, tt.texelSize)
		}
	}
}

func TestTexelCodecs(t *testing.T) {
	values := []float32{1, -0.5, 2048, 0.25}
	for _, f := range []Format{FormatRGBA32F, FormatRGBA16F} {
		raw, err := EncodeTexels(f, values)
		if err != nil {
			t.Fatalf("%s: EncodeTexels: %v", f, err)
		}
		got, err := DecodeTexels(f, raw)
		if err != nil {
			t.Fatalf("%s: DecodeTexels: %v", f, err)
		}
		for i := range values {
			if got[i] != values[i] {
				t.Errorf("%s: channel %d = %g, want %g", f, i, got[i], values[i])
			}
		}
	}
	if _, err := DecodeTexels(FormatRGBA16F, make([]byte, 7)); err == nil {
		t.Error("partial texel accepted")
	}
}

func TestGroups(t *testing.T) {
	for _, tt := range []struct{ n, size, want int }{{8, 16, 1}, {16, 16, 1}, {17, 16, 2}, {256, 16, 16}} {
		if got := Groups(tt.n, tt.size); got != tt.want {
			t.Errorf("Groups(%d, %d) = %d, want %d", tt.n, tt.size, got, tt.want)
		}
	}
}
