package rudp

import (
	"math/rand"
	"testing"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 300, 16383, 16384, 1 << 20, 1<<28 - 1, 0xffffffff}
	for _, v := range values {
		buf := appendVarint(nil, v)
		got, size, err := decodeVarint(buf)
		if err != nil {
			t.Fatalf("decodeVarint(%v) for n=%d: %v", buf, v, err)
		}
		if got != v {
			t.Errorf("round trip of %d produced %d", v, got)
		}
		if size != len(buf) {
			t.Errorf("decodeVarint consumed %d bytes, encoding was %d bytes", size, len(buf))
		}
	}
}

func TestVarintRoundTripRandom(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		v := r.Uint32()
		buf := appendVarint(nil, v)
		got, _, err := decodeVarint(buf)
		if err != nil || got != v {
			t.Fatalf("round trip of %d failed: got=%d err=%v", v, got, err)
		}
	}
}

func TestVarintMaxFiveBytes(t *testing.T) {
	// 0xffffffff needs ceil(32/7) = 5 groups.
	buf := appendVarint(nil, 0xffffffff)
	if len(buf) != 5 {
		t.Fatalf("encoding of max uint32 took %d bytes, want 5", len(buf))
	}
}

func TestVarintTooLarge(t *testing.T) {
	// Five bytes, every one with its continuation bit set: no terminator
	// within the 5-byte budget.
	buf := []byte{0x80, 0x80, 0x80, 0x80, 0x80}
	_, _, err := decodeVarint(buf)
	if err != ErrVarintTooLarge {
		t.Fatalf("decodeVarint(%v) = %v, want ErrVarintTooLarge", buf, err)
	}
}

func TestVarintIncomplete(t *testing.T) {
	buf := []byte{0x80, 0x80}
	_, _, err := decodeVarint(buf)
	if err != errVarintIncomplete {
		t.Fatalf("decodeVarint(%v) = %v, want errVarintIncomplete", buf, err)
	}
}

func TestVarintLowGroupFirst(t *testing.T) {
	// 300 = 0b100101100 -> low 7 bits 0101100 (0x2c) with continuation,
	// then high bits 10 (0x02).
	buf := appendVarint(nil, 300)
	want := []byte{0xac, 0x02}
	if len(buf) != len(want) || buf[0] != want[0] || buf[1] != want[1] {
		t.Fatalf("appendVarint(300) = %v, want %v", buf, want)
	}
}

func TestDecodeHalfFloat(t *testing.T) {
	cases := []struct {
		bits uint16
		want float32
	}{
		{0x0000, 0},
		{0x3c00, 1},
		{0xbc00, -1},
		{0x4000, 2},
	}
	for _, c := range cases {
		if got := decodeHalfFloat(c.bits); got != c.want {
			t.Errorf("decodeHalfFloat(%#04x) = %v, want %v", c.bits, got, c.want)
		}
	}
}

func TestBigEndianHelpers(t *testing.T) {
	buf := make([]byte, 4)
	putUint32(buf, 0x01020304)
	if buf[0] != 0x01 || buf[3] != 0x04 {
		t.Fatalf("putUint32 did not write big-endian: %v", buf)
	}
	if getUint32(buf) != 0x01020304 {
		t.Fatalf("getUint32 round trip failed")
	}

	buf8 := make([]byte, 8)
	putUint64(buf8, 0x0102030405060708)
	if getUint64(buf8) != 0x0102030405060708 {
		t.Fatalf("getUint64 round trip failed")
	}
}
