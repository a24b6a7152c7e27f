package rudp

// fragment is one contiguous slice of the reassembled byte stream not yet
// consumed by message decoding.
type fragment struct {
	buf    []byte
	offset int
}

// header is a decoded message header remembered across drain passes when
// the body isn't fully buffered yet.
type header struct {
	protocolID byte
	size       uint32
}

// DecodedMessage is one application message the message drain produced.
type DecodedMessage struct {
	ProtocolID byte
	Payload    []byte
}

// HandleResult is the outcome of admitting one sequenced packet.
type HandleResult struct {
	Accepted bool
	AckStart Seq
	Messages []DecodedMessage
}

// recvChannel is the per-channel reliable receive side: it admits
// out-of-order packets keyed by sequence start, reassembles them into a
// contiguous byte stream, and decodes length-prefixed messages possibly
// spanning packet boundaries.
type recvChannel struct {
	channelID Channel
	expected  Seq

	pending map[Seq][]byte

	chunks         []fragment
	bufferedLength int

	partialHeader *header

	// decodeErr is set once a varint exceeds 5 bytes; from that point the
	// channel keeps reassembling its byte stream (and still acks) but
	// stops attempting to decode further messages.
	decodeErr error
}

func newRecvChannel(channelID Channel, initialSeq Seq) *recvChannel {
	return &recvChannel{
		channelID: channelID,
		expected:  initialSeq,
		pending:   make(map[Seq][]byte),
	}
}

// handlePacket admits one sequenced packet.
func (c *recvChannel) handlePacket(start Seq, payload []byte) HandleResult {
	if start.Less(c.expected) {
		return HandleResult{Accepted: true, AckStart: start}
	}
	if _, ok := c.pending[start]; ok {
		return HandleResult{Accepted: true, AckStart: start}
	}

	c.pending[start] = payload

	progress := false
	for {
		p, ok := c.pending[c.expected]
		if !ok {
			break
		}
		delete(c.pending, c.expected)
		c.chunks = append(c.chunks, fragment{buf: p})
		c.bufferedLength += len(p)
		c.expected = c.expected.Add(uint32(len(p)))
		progress = true
	}

	var messages []DecodedMessage
	if progress {
		messages = c.drain()
	}

	return HandleResult{Accepted: true, AckStart: start, Messages: messages}
}

// peekByte returns the i-th buffered byte without consuming it.
func (c *recvChannel) peekByte(i int) (byte, bool) {
	if i < 0 || i >= c.bufferedLength {
		return 0, false
	}
	for _, f := range c.chunks {
		remain := len(f.buf) - f.offset
		if i < remain {
			return f.buf[f.offset+i], true
		}
		i -= remain
	}
	return 0, false
}

// consume removes and returns the first n buffered bytes, which may span
// zero or more fragments.
func (c *recvChannel) consume(n int) []byte {
	out := make([]byte, 0, n)
	for n > 0 && len(c.chunks) > 0 {
		f := &c.chunks[0]
		remain := len(f.buf) - f.offset
		take := remain
		if take > n {
			take = n
		}
		out = append(out, f.buf[f.offset:f.offset+take]...)
		f.offset += take
		n -= take
		c.bufferedLength -= take
		if f.offset >= len(f.buf) {
			c.chunks = c.chunks[1:]
		}
	}
	return out
}

// drain consumes chunks through the stateful frame parser, emitting every
// fully-buffered message.
func (c *recvChannel) drain() []DecodedMessage {
	if c.decodeErr != nil {
		return nil
	}

	var out []DecodedMessage
	for {
		if c.partialHeader == nil {
			if c.bufferedLength < 1 {
				break
			}
			protocolID, _ := c.peekByte(0)

			peekLen := c.bufferedLength - 1
			if peekLen > 5 {
				peekLen = 5
			}
			peekBuf := make([]byte, peekLen)
			for i := range peekBuf {
				b, _ := c.peekByte(1 + i)
				peekBuf[i] = b
			}

			size, n, err := decodeVarint(peekBuf)
			if err == errVarintIncomplete {
				break
			}
			if err != nil {
				c.decodeErr = err
				break
			}

			c.consume(1 + n)
			c.partialHeader = &header{protocolID: protocolID, size: size}
		}

		if c.bufferedLength < int(c.partialHeader.size) {
			break
		}

		body := c.consume(int(c.partialHeader.size))
		out = append(out, DecodedMessage{ProtocolID: c.partialHeader.protocolID, Payload: body})
		c.partialHeader = nil
	}
	return out
}

// ParseChannelPacket splits a raw datagram whose leading byte names a
// sequenced channel (not a control id) into its channel, sequence start,
// and payload.
func ParseChannelPacket(buffer []byte) (channel Channel, start Seq, payload []byte, err error) {
	if len(buffer) < ChannelHdrSize {
		return 0, 0, nil, TruncatedPacketError{Len: len(buffer)}
	}
	channel = Channel(buffer[0])
	if channel >= ChannelCount {
		return 0, 0, nil, ControlChannelError{Channel: channel}
	}
	start = Seq(getUint32(buffer[1:5]))
	payload = buffer[5:]
	return channel, start, payload, nil
}
