package rudp

import (
	"math/rand"
	"testing"
)

func TestSeqLess(t *testing.T) {
	cases := []struct {
		a, b Seq
		want bool
	}{
		{0, 1, true},
		{1, 0, false},
		{0, 0, false},
		{1, 1, false},
		// wraparound: the highest representable value precedes 0.
		{0xffffffff, 0, true},
		{0, 0xffffffff, false},
		{0x7fffffff, 0x80000000, true},
		{0x80000000, 0x7fffffff, false},
	}
	for _, c := range cases {
		if got := c.a.Less(c.b); got != c.want {
			t.Errorf("Seq(%#x).Less(%#x) = %v, want %v", uint32(c.a), uint32(c.b), got, c.want)
		}
	}
}

func TestSeqAddWraps(t *testing.T) {
	var a Seq = 0xfffffffe
	if got := a.Add(4); got != 2 {
		t.Errorf("Add wrapped to %#x, want 0x2", uint32(got))
	}
}

func TestSeqLessIsStrictOrderingNearZero(t *testing.T) {
	// For any small forward delta, a.Add(delta) should not be Less than a.
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		a := Seq(r.Uint32())
		delta := uint32(r.Intn(1 << 20))
		b := a.Add(delta)
		if delta > 0 && b.Less(a) {
			t.Fatalf("a=%#x delta=%d: b=%#x unexpectedly precedes a", uint32(a), delta, uint32(b))
		}
	}
}

func TestRandomSeqIsWithinSignedRange(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		s := randomSeq(r)
		if int32(s) < 0 {
			t.Fatalf("randomSeq returned %#x, which has its sign bit set", uint32(s))
		}
	}
}
