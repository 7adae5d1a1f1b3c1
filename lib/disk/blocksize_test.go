package disk

import (
	"math/bits"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBestBlockSize(t *testing.T) {
	tests := []struct {
		size     uint64
		expected uint64
	}{
		{0, 1},
		{1, 1},
		{2, 1},
		{3, 1},
		{4, 2},
		{512, 256},
		{4096, 2048},
		{20480, 4096},
		{73728, 8192},
		{65536, 32768},
		{1 << 20, 1 << 19},
		{1 << 21, 1 << 20},
		{10 << 20, 1 << 20},
		{64 << 20, 1 << 20},
		{1<<20 + 512, 512},
		{4097, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, BestBlockSize(tt.size), "BestBlockSize(%d)", tt.size)
	}
}

// checkBlockSize asserts the documented contract for one size
func checkBlockSize(t *testing.T, size uint64) {
	t.Helper()
	bs := BestBlockSize(size)

	assert.Zero(t, size%bs, "block size %d must divide %d", bs, size)
	assert.Equal(t, 1, bits.OnesCount64(bs), "block size %d must be a power of two", bs)
	assert.LessOrEqual(t, bs, uint64(MaxBlockSize))
	if size > 1 {
		assert.Less(t, bs, size)
	}

	// no larger power of two within bounds also qualifies
	for larger := bs * 2; larger <= MaxBlockSize; larger *= 2 {
		if size > larger && size%larger == 0 {
			t.Fatalf("BestBlockSize(%d) = %d, but %d also divides", size, bs, larger)
		}
	}
}

func TestBestBlockSize_Properties(t *testing.T) {
	for size := uint64(1); size <= 1<<14; size++ {
		checkBlockSize(t, size)
	}

	for shift := 0; shift <= 30; shift++ {
		size := uint64(1) << shift
		checkBlockSize(t, size)
		checkBlockSize(t, size+1)
		if size > 1 {
			checkBlockSize(t, size-1)
		}
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		checkBlockSize(t, uint64(rng.Int63n(1<<30))+1)
	}
}
