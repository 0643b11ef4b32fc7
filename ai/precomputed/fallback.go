package precomputed

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/semsearch/vector"
)

// FallbackVector derives a unit vector from key.
// The generator is PCG seeded with the two halves of a 128-bit BLAKE2b digest,
// both of which are stable across Go releases and platforms.
func FallbackVector(key string, dim int) []float32 {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(key))
	sum := h.Sum(nil)

	rng := rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(sum[:8]),
		binary.LittleEndian.Uint64(sum[8:16]),
	))

	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32(rng.Float64()*2 - 1)
	}
	return vector.Normalize(vec)
}
