package neural

import "math"

// xorshift128 is the four-word xorshift generator spec.md §4.3 calls
// for: four uint32 words of state, one shift-xor step per call.
type xorshift128 struct {
	x, y, z, w uint32
}

func newXorshift128(seed uint32) *xorshift128 {
	// Spread a single seed word across four state words so an all-zero
	// seed still produces a non-degenerate sequence.
	return &xorshift128{
		x: seed ^ 0x9E3779B9,
		y: seed*1812433253 + 1,
		z: seed ^ 0x85EBCA6B,
		w: seed*2654435761 + 0xC2B2AE35,
	}
}

func (s *xorshift128) next() uint32 {
	t := s.x ^ (s.x << 11)
	s.x, s.y, s.z = s.y, s.z, s.w
	s.w = s.w ^ (s.w >> 19) ^ t ^ (t >> 8)
	return s.w
}

// chaos blend constants from spec.md §4.3: "a 4-word xorshift seeded
// from (seed*K1) ^ (entropy*K2)".
const (
	chaosK1 uint32 = 0x27220A95
	chaosK2 uint32 = 0x9E3779B1
)

// chaos is the only source of stochasticity in forward entropic
// activation. It is a pure, deterministic function of (seed, entropy):
// at entropy 0 it reproduces seed exactly; at entropy 1 it is pure
// xorshift noise in [-1, 1].
func chaos(seed float64, entropy float64) float64 {
	seedBits := math.Float32bits(float32(seed))
	entropyBits := math.Float32bits(float32(entropy))
	combined := (seedBits * chaosK1) ^ (entropyBits * chaosK2)

	rng := newXorshift128(combined)
	raw := rng.next()
	chaotic := (float64(raw)/float64(math.MaxUint32))*2 - 1

	return chaotic*entropy + (1-entropy)*seed
}
