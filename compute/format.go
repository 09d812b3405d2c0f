package compute

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/internal/half"
)

// Format is a texel channel layout.
type Format int

const (
	FormatR32F Format = iota + 1
	FormatRGBA32F
	// FormatRGBA16F stores four binary16 channels per texel.
	FormatRGBA16F
)

func (f Format) String() string {
	switch f {
	case FormatR32F:
		return "R32F"
	case FormatRGBA32F:
		return "RGBA32F"
	case FormatRGBA16F:
		return "RGBA16F"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Channels returns the number of channels per texel.
func (f Format) Channels() int {
	switch f {
	case FormatR32F:
		return 1
	case FormatRGBA32F, FormatRGBA16F:
		return 4
	}
	return 0
}

// ChannelSize returns the size of one channel in bytes.
func (f Format) ChannelSize() int {
	switch f {
	case FormatR32F, FormatRGBA32F:
		return 4
	case FormatRGBA16F:
		return half.Size
	}
	return 0
}

// TexelSize returns the size of one texel in bytes.
func (f Format) TexelSize() int {
	return f.Channels() * f.ChannelSize()
}

// Usage describes how a texture is accessed by kernels.
type Usage uint8

const (
	UsageSampled Usage = 1 << iota
	UsageStorage
)

// TextureDesc describes a texture to create.
type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Format Format
	Usage  Usage
}

// ByteSize returns the size of the texture contents in bytes.
func (d TextureDesc) ByteSize() int {
	return d.Width * d.Height * d.Format.TexelSize()
}

// DecodeTexels expands raw texture bytes into float32 channels,
// Channels() values per texel.
func DecodeTexels(f Format, raw []byte) ([]float32, error) {
	size := f.ChannelSize()
	if size == 0 {
		return nil, fmt.Errorf("decoding texels: %w: %s", ErrUnsupportedFormat, f)
	}
	if len(raw)%f.TexelSize() != 0 {
		return nil, fmt.Errorf("decoding %s texels: %d bytes is not a whole number of texels", f, len(raw))
	}
	out := make([]float32, len(raw)/size)
	if f == FormatRGBA16F {
		half.FromBytes(out, raw)
		return out, nil
	}
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

// EncodeTexels packs float32 channels into raw bytes for format f.
func EncodeTexels(f Format, values []float32) ([]byte, error) {
	size := f.ChannelSize()
	if size == 0 {
		return nil, fmt.Errorf("encoding texels: %w: %s", ErrUnsupportedFormat, f)
	}
	if len(values)%f.Channels() != 0 {
		return nil, fmt.Errorf("encoding %s texels: %d values is not a whole number of texels", f, len(values))
	}
	out := make([]byte, len(values)*size)
	if f == FormatRGBA16F {
		half.PutBytes(out, values)
		return out, nil
	}
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out, nil
}
