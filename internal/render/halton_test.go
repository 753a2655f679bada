package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaltonBase2(t *testing.T) {
	want := []float32{0.5, 0.25, 0.75, 0.125, 0.625, 0.375, 0.875}
	for i, w := range want {
		assert.InDelta(t, w, Halton(i+1, 2), 1e-6, "Halton(%d, 2)", i+1)
	}
}

func TestHaltonBase3(t *testing.T) {
	want := []float32{1.0 / 3, 2.0 / 3, 1.0 / 9, 4.0 / 9, 7.0 / 9}
	for i, w := range want {
		assert.InDelta(t, w, Halton(i+1, 3), 1e-6, "Halton(%d, 3)", i+1)
	}
}

func TestHaltonRange(t *testing.T) {
	for _, base := range []int{2, 3} {
		for i := 1; i <= 256; i++ {
			v := Halton(i, base)
			assert.Greater(t, v, float32(0))
			assert.Less(t, v, float32(1))
		}
	}
}

func TestHaltonJitterCentered(t *testing.T) {
	// jitter is sample minus 0.5, so it stays within half a pixel
	var sumX, sumY float32
	const n = 64
	for i := 0; i < n; i++ {
		x, y := HaltonJitter(i)
		assert.GreaterOrEqual(t, x, float32(-0.5))
		assert.Less(t, x, float32(0.5))
		assert.GreaterOrEqual(t, y, float32(-0.5))
		assert.Less(t, y, float32(0.5))
		sumX += x
		sumY += y
	}

	// a low-discrepancy sequence averages out near zero
	assert.InDelta(t, 0, sumX/n, 0.02)
	assert.InDelta(t, 0, sumY/n, 0.02)
}
