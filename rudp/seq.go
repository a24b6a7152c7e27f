package rudp

import "math/rand"

// Seq is a byte-stream sequence number, a 32-bit value interpreted modulo
// 2^32. Comparison is by signed difference so a channel can run
// indefinitely without special-casing the wraparound point.
type Seq uint32

// Less reports whether a precedes b under signed wraparound comparison.
func (a Seq) Less(b Seq) bool {
	return int32(a-b) < 0
}

// Add returns a+delta, truncated to 32 bits.
func (a Seq) Add(delta uint32) Seq {
	return a + Seq(delta)
}

// randomSeq returns a sequence number drawn uniformly from [0, 2^31), as
// required for channel initial sequences so a replay can't predict them.
// It takes its randomness as an explicit argument rather than reaching for
// package-level global state.
func randomSeq(r *rand.Rand) Seq {
	return Seq(r.Uint32() & 0x7fffffff)
}
