package colorcompute

// pcgHash is the PCG-RXS-M-XS output permutation used as a stateless hash.
// Identical to pcg_hash in closest.wgsl.
func pcgHash(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

// DitherNoise returns a reproducible value in [0,1] for a pixel position.
func DitherNoise(x, y uint32) float32 {
	return float32(pcgHash(x^pcgHash(y))) / 4294967295.0
}
