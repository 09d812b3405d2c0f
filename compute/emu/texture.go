package emu

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/internal/half"
)

// texture keeps texels in their declared format: float32 channels for the
// 32-bit formats and binary16 bits for RGBA16F, so stores round exactly as
// a half-float storage image would.
type texture struct {
	dev      *Device
	id       uint64
	desc     compute.TextureDesc
	channels int
	f32      []float32
	f16      []uint16
	released atomic.Bool
}

func newTexture(dev *Device, id uint64, desc compute.TextureDesc) *texture {
	t := &texture{dev: dev, id: id, desc: desc, channels: desc.Format.Channels()}
	n := desc.Width * desc.Height * t.channels
	if desc.Format == compute.FormatRGBA16F {
		t.f16 = make([]uint16, n)
	} else {
		t.f32 = make([]float32, n)
	}
	return t
}

func (t *texture) Desc() compute.TextureDesc { return t.desc }

func (t *texture) Release() {
	if t.released.CompareAndSwap(false, true) {
		t.dev.forget(t.id)
	}
}

func (t *texture) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < t.desc.Width && y < t.desc.Height
}

func (t *texture) load(x, y int) [4]float32 {
	var v [4]float32
	if !t.inside(x, y) {
		return v
	}
	base := (y*t.desc.Width + x) * t.channels
	if t.f16 != nil {
		half.Decode(v[:t.channels], t.f16[base:base+t.channels])
		return v
	}
	copy(v[:t.channels], t.f32[base:base+t.channels])
	return v
}

func (t *texture) store(x, y int, v [4]float32) {
	if !t.inside(x, y) {
		return
	}
	base := (y*t.desc.Width + x) * t.channels
	if t.f16 != nil {
		half.Encode(t.f16[base:base+t.channels], v[:t.channels])
		return
	}
	copy(t.f32[base:base+t.channels], v[:t.channels])
}

func (t *texture) bytes() []byte {
	out := make([]byte, t.desc.ByteSize())
	if t.f16 != nil {
		for i, h := range t.f16 {
			binary.LittleEndian.PutUint16(out[i*half.Size:], h)
		}
		return out
	}
	for i, f := range t.f32 {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func (t *texture) setBytes(b []byte) {
	if t.f16 != nil {
		for i := range t.f16 {
			t.f16[i] = binary.LittleEndian.Uint16(b[i*half.Size:])
		}
		return
	}
	for i := range t.f32 {
		t.f32[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
}

// bound is the Resources view of one dispatch.
type bound struct {
	slots  []*texture
	access []compute.Access
}

func (b *bound) Load(slot, x, y int) [4]float32 {
	if slot < 0 || slot >= len(b.slots) || b.slots[slot] == nil || b.access[slot]&compute.AccessRead == 0 {
		panic(slotPanic{slot: slot, op: "load"})
	}
	return b.slots[slot].load(x, y)
}

func (b *bound) Store(slot, x, y int, v [4]float32) {
	if slot < 0 || slot >= len(b.slots) || b.slots[slot] == nil || b.access[slot]&compute.AccessWrite == 0 {
		panic(slotPanic{slot: slot, op: "store"})
	}
	b.slots[slot].store(x, y, v)
}

type slotPanic struct {
	slot int
	op   string
}
