package rudp

import "testing"

func TestRecvChannelInOrderSingleMessage(t *testing.T) {
	c := newRecvChannel(FAST, 0)
	frame := buildFrame(7, []byte("hello"))

	res := c.handlePacket(0, frame)
	if !res.Accepted {
		t.Fatal("expected packet to be accepted")
	}
	if len(res.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(res.Messages))
	}
	if res.Messages[0].ProtocolID != 7 || string(res.Messages[0].Payload) != "hello" {
		t.Fatalf("decoded message = %+v", res.Messages[0])
	}
}

func TestRecvChannelMessageSpansTwoPackets(t *testing.T) {
	c := newRecvChannel(FAST, 0)
	frame := buildFrame(1, []byte("a longer message body"))

	split := 3
	res1 := c.handlePacket(0, frame[:split])
	if len(res1.Messages) != 0 {
		t.Fatalf("expected no message yet, got %d", len(res1.Messages))
	}

	res2 := c.handlePacket(Seq(split), frame[split:])
	if len(res2.Messages) != 1 {
		t.Fatalf("expected the message once the rest arrived, got %d", len(res2.Messages))
	}
	if string(res2.Messages[0].Payload) != "a longer message body" {
		t.Fatalf("reassembled payload = %q", res2.Messages[0].Payload)
	}
}

func TestRecvChannelOutOfOrderReassembly(t *testing.T) {
	c := newRecvChannel(LOSSY, 0)
	f1 := buildFrame(1, []byte("first"))
	f2 := buildFrame(2, []byte("second"))

	start2 := Seq(len(f1))

	// Second packet arrives first: buffered, no message yet.
	res := c.handlePacket(start2, f2)
	if len(res.Messages) != 0 {
		t.Fatalf("expected no messages before the gap is filled, got %d", len(res.Messages))
	}

	// First packet fills the gap: both messages drain out in order.
	res = c.handlePacket(0, f1)
	if len(res.Messages) != 2 {
		t.Fatalf("got %d messages after gap filled, want 2", len(res.Messages))
	}
	if res.Messages[0].ProtocolID != 1 || res.Messages[1].ProtocolID != 2 {
		t.Fatalf("messages out of order: %+v", res.Messages)
	}
}

func TestRecvChannelDuplicateIsIgnored(t *testing.T) {
	c := newRecvChannel(FAST, 0)
	frame := buildFrame(1, []byte("x"))

	res1 := c.handlePacket(0, frame)
	if len(res1.Messages) != 1 {
		t.Fatalf("first delivery: got %d messages, want 1", len(res1.Messages))
	}

	// A retransmit of the same already-consumed start must be accepted
	// (so it's still acked) but must not re-emit the message.
	res2 := c.handlePacket(0, frame)
	if !res2.Accepted {
		t.Fatal("duplicate should still be accepted for acking purposes")
	}
	if len(res2.Messages) != 0 {
		t.Fatalf("duplicate re-emitted %d messages, want 0", len(res2.Messages))
	}
}

func TestRecvChannelDuplicatePendingIsIgnored(t *testing.T) {
	c := newRecvChannel(FAST, 0)
	f1 := buildFrame(1, []byte("first"))
	f2 := buildFrame(2, []byte("second"))
	start2 := Seq(len(f1))

	c.handlePacket(start2, f2)
	// Same out-of-order packet arrives again before the gap is filled.
	res := c.handlePacket(start2, f2)
	if !res.Accepted {
		t.Fatal("duplicate pending packet should still be accepted")
	}

	res = c.handlePacket(0, f1)
	if len(res.Messages) != 2 {
		t.Fatalf("got %d messages, want 2 (no duplicate second message)", len(res.Messages))
	}
}

func TestParseChannelPacket(t *testing.T) {
	buf := make([]byte, ChannelHdrSize+3)
	buf[0] = byte(FAST)
	putUint32(buf[1:5], 42)
	copy(buf[5:], []byte("abc"))

	channel, start, payload, err := ParseChannelPacket(buf)
	if err != nil {
		t.Fatalf("ParseChannelPacket: %v", err)
	}
	if channel != FAST || start != 42 || string(payload) != "abc" {
		t.Fatalf("parsed channel=%d start=%d payload=%q", channel, start, payload)
	}
}

func TestParseChannelPacketTruncated(t *testing.T) {
	_, _, _, err := ParseChannelPacket([]byte{1, 2, 3})
	if _, ok := err.(TruncatedPacketError); !ok {
		t.Fatalf("ParseChannelPacket on short buffer = %v, want TruncatedPacketError", err)
	}
}

func TestParseChannelPacketControlID(t *testing.T) {
	buf := make([]byte, ChannelHdrSize)
	buf[0] = byte(ctrlKeepAlive)

	_, _, _, err := ParseChannelPacket(buf)
	if _, ok := err.(ControlChannelError); !ok {
		t.Fatalf("ParseChannelPacket on control id = %v, want ControlChannelError", err)
	}
}

func TestRecvChannelVarintTooLargeClosesDecodeButKeepsAcking(t *testing.T) {
	c := newRecvChannel(FAST, 0)

	// A protocol_id byte followed by five continuation-set varint bytes:
	// decoding must fail permanently, but the packet is still accepted.
	bad := []byte{1, 0x80, 0x80, 0x80, 0x80, 0x80}
	res := c.handlePacket(0, bad)
	if !res.Accepted {
		t.Fatal("malformed stream should still be accepted at the reassembly level")
	}
	if c.decodeErr == nil {
		t.Fatal("expected decodeErr to be set")
	}

	// Further packets keep being accepted, but never decode more messages.
	more := c.handlePacket(Seq(len(bad)), buildFrame(1, []byte("z")))
	if !more.Accepted {
		t.Fatal("packets after a decode error should still be accepted")
	}
	if len(more.Messages) != 0 {
		t.Fatalf("got %d messages after decode error, want 0", len(more.Messages))
	}
}
