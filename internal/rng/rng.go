// Package rng provides the deterministic pseudo-random source used for all
// simulation draws. The contract is strict: the same seed yields the same
// draw sequence on every platform, forever. The documented test vectors in
// rng_test.go are fixed and must never change.
package rng

// multiplier for the 32-bit multiply-with-carry step (Numerical Recipes).
const mwcMultiplier = 4294957665

// Fallback words for degenerate seeds; the MWC recurrence requires a
// nonzero lag and carry.
const (
	defaultLag   = 0x9e3779b9
	defaultCarry = 0x1f123bb5
)

// Generator is a multiply-with-carry pseudo-random generator. It is not
// safe for concurrent use; every trajectory worker owns its own instance.
type Generator struct {
	lag   uint64 // low 32 bits hold the last output
	carry uint64 // low 32 bits hold the carry
}

// New seeds a generator. The low 32 bits of the seed become the lag word and
// the high 32 bits the carry word, with fixed substitutes for zero words so
// the recurrence never degenerates.
func New(seed int64) *Generator {
	lag := uint64(seed) & 0xffffffff
	carry := (uint64(seed) >> 32) & 0xffffffff
	if lag == 0 {
		lag = defaultLag
	}
	if carry == 0 {
		carry = defaultCarry
	}
	return &Generator{lag: lag, carry: carry}
}

// Uint32 advances the generator and returns the next 32-bit draw.
func (g *Generator) Uint32() uint32 {
	t := mwcMultiplier*g.lag + g.carry
	g.lag = t & 0xffffffff
	g.carry = t >> 32
	return uint32(g.lag)
}

// Float64 returns the next draw mapped uniformly onto [0, 1).
func (g *Generator) Float64() float64 {
	return float64(g.Uint32()) / (1 << 32)
}

// Range returns the next draw mapped uniformly onto [lo, hi).
func (g *Generator) Range(lo, hi float64) float64 {
	return lo + (hi-lo)*g.Float64()
}

// Symmetric returns the next draw mapped uniformly onto
// [-magnitude/2, +magnitude/2).
func (g *Generator) Symmetric(magnitude float64) float64 {
	return g.Range(-magnitude/2, magnitude/2)
}
