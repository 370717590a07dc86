package util

import "runtime"

// NumCPUCaches picks the number of per-CPU cache slots a Cache should
// carry: one per logical P (runtime.GOMAXPROCS), clamped to at least 1.
// In a 1:1 CPU-to-cache deployment this is exactly the number of fast-path
// front doors; a NUMA-domain topology instead maps several Ps onto fewer
// shared slots (see policy/numadomain), but the array is still sized by
// this count so every P has a slot to index into.
func NumCPUCaches() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	return p
}

// BucketIndex maps a 64-bit hash to a bucket index in a table of the given
// size, using the fast power-of-two mask path when possible and falling
// back to modulo otherwise. Used by the bufctl hash index.
func BucketIndex(hash uint64, buckets int) int {
	if buckets <= 1 {
		return 0
	}
	if IsPowerOfTwo(uint64(buckets)) {
		return int(hash & uint64(buckets-1))
	}
	return int(hash % uint64(buckets))
}
