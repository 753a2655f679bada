package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodePickingIndex(t *testing.T) {
	// all-ones pixel is the cleared, nothing-drawn value
	assert.Equal(t, PickingSentinel, DecodePickingIndex([4]byte{0xFF, 0xFF, 0xFF, 0xFF}))

	// BGRA byte order: index bits land as (B<<16)|(G<<8)|R|(A<<24)
	cases := []struct {
		px   [4]byte
		want uint32
	}{
		{[4]byte{0, 0, 0, 0}, 0},
		{[4]byte{0, 0, 1, 0}, 1},
		{[4]byte{0, 1, 0, 0}, 1 << 8},
		{[4]byte{1, 0, 0, 0}, 1 << 16},
		{[4]byte{0, 0, 0, 1}, 1 << 24},
		{[4]byte{0x12, 0x34, 0x56, 0x78}, 0x78123456},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DecodePickingIndex(c.px))
	}
}

func TestDecodePickingIndexRoundTrip(t *testing.T) {
	for _, idx := range []uint32{0, 1, 255, 256, 65535, 1 << 20, 0xDEADBEEF} {
		px := [4]byte{
			byte(idx >> 16), // B
			byte(idx >> 8),  // G
			byte(idx),       // R
			byte(idx >> 24), // A
		}
		assert.Equal(t, idx, DecodePickingIndex(px))
	}
}

func TestPickingSlotRingDelay(t *testing.T) {
	// a slot is revisited exactly PickingRingSize frames later, which is
	// the delay between queuing a readback and consuming it
	for frame := uint64(0); frame < 100; frame++ {
		assert.Equal(t, pickingSlot(frame), pickingSlot(frame+PickingRingSize))
	}

	// consecutive frames within one ring period never collide
	for frame := uint64(0); frame < 100; frame++ {
		for d := uint64(1); d < PickingRingSize; d++ {
			assert.NotEqual(t, pickingSlot(frame), pickingSlot(frame+d),
				"frames %d and %d share a slot", frame, frame+d)
		}
	}
}

func TestPickingRingSize(t *testing.T) {
	// two slots would let a triple-buffered driver overwrite a mapping
	// that is still in flight
	assert.GreaterOrEqual(t, PickingRingSize, 2)
}
