package rudp

import "time"

const (
	// MTU is the maximum datagram size the protocol guarantees
	// deliverable, chosen to fit the IPv4 minimum reassembly buffer.
	MTU = 548

	// ChannelHdrSize is the per-packet overhead on a sequenced datagram:
	// one channel-id byte plus a 4-byte big-endian sequence start.
	ChannelHdrSize = 1 + 4

	// MaxFrameSize is the largest message frame (protocol_id + varint
	// size + body) a single packet may carry.
	MaxFrameSize = MTU - ChannelHdrSize

	// ResendTimeout is how long an in-flight packet waits for an ack
	// before it is retransmitted.
	ResendTimeout = 500 * time.Millisecond

	// InitResendInterval is how often INIT is resent while awaiting the
	// peer's handshake reply.
	InitResendInterval = 100 * time.Millisecond

	// ConfirmationBatchSize is the maximum number of ack entries flushed
	// into a single CONFIRMATION datagram per tick.
	ConfirmationBatchSize = 16

	// KeepAliveInterval is how often a KEEP_ALIVE datagram is sent while
	// the Connection is open, including while awaiting the peer's INIT.
	KeepAliveInterval = 2 * time.Second

	// KeepAliveTimeout is how long the peer may stay silent before the
	// connection is declared dead.
	KeepAliveTimeout = 4 * KeepAliveInterval

	// TickInterval is the period of Connection's driving clock.
	TickInterval = 20 * time.Millisecond
)
