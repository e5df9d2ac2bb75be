package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixed test vectors for the multiply-with-carry generator. These pin the
// draw sequence for seeded scenario replay and must never be changed.
func TestGenerator_FixedVectors(t *testing.T) {
	vectors := []struct {
		seed  int64
		uints []uint32
	}{
		{seed: 1, uints: []uint32{521278998, 378739287, 3605406332, 1520943105, 1240833352}},
		{seed: 42, uints: []uint32{520884127, 4181741929, 72699351, 4093952319, 3312659475}},
		{seed: 123456789, uints: []uint32{1214894762, 3257885290, 3552728623, 637989807, 876122720}},
	}

	for _, v := range vectors {
		g := New(v.seed)
		for i, want := range v.uints {
			assert.Equal(t, want, g.Uint32(), "seed %d draw %d", v.seed, i)
		}
	}
}

func TestGenerator_Float64Vectors(t *testing.T) {
	// Float64 is Uint32 / 2^32, which is exact in a float64, so these
	// comparisons are exact equality.
	g := New(42)
	assert.Equal(t, 0.12127778655849397, g.Float64())
	assert.Equal(t, 0.9736376649234444, g.Float64())
	assert.Equal(t, 0.01692663668654859, g.Float64())
}

func TestGenerator_SameSeedSameSequence(t *testing.T) {
	a := New(987654321)
	b := New(987654321)
	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Uint32(), b.Uint32(), "sequences diverged at draw %d", i)
	}
}

func TestGenerator_DifferentSeedsDiverge(t *testing.T) {
	a := New(1)
	b := New(2)
	diverged := false
	for i := 0; i < 10; i++ {
		if a.Uint32() != b.Uint32() {
			diverged = true
			break
		}
	}
	assert.True(t, diverged)
}

func TestGenerator_ZeroSeedDoesNotDegenerate(t *testing.T) {
	g := New(0)
	seen := make(map[uint32]bool)
	for i := 0; i < 100; i++ {
		seen[g.Uint32()] = true
	}
	assert.Greater(t, len(seen), 90, "zero seed must still produce a varied stream")
}

func TestGenerator_RangeBounds(t *testing.T) {
	g := New(7)
	for i := 0; i < 1000; i++ {
		u := g.Float64()
		require.GreaterOrEqual(t, u, 0.0)
		require.Less(t, u, 1.0)
	}

	g = New(7)
	for i := 0; i < 1000; i++ {
		r := g.Range(0.02, 0.05)
		require.GreaterOrEqual(t, r, 0.02)
		require.Less(t, r, 0.05)
	}

	g = New(7)
	for i := 0; i < 1000; i++ {
		s := g.Symmetric(0.1)
		require.GreaterOrEqual(t, s, -0.05)
		require.Less(t, s, 0.05)
	}
}
