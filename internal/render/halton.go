package render

// Halton returns element i (1-based) of the Halton low-discrepancy sequence
// for the given base. The HBAO rotation texture and the camera jitter both
// draw from Halton(2,3): it decorrelates per-pixel sampling without the
// clumping a plain PRNG produces.
func Halton(i, base int) float32 {
	f := float32(1)
	r := float32(0)
	for i > 0 {
		f /= float32(base)
		r += f * float32(i%base)
		i /= base
	}
	return r
}

// HaltonJitter returns the sub-pixel offset for frame index i, centered on
// zero, in units of one pixel.
func HaltonJitter(i int) (x, y float32) {
	return Halton(i+1, 2) - 0.5, Halton(i+1, 3) - 0.5
}
