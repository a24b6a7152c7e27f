package rudp

// EventKind discriminates the variants of Event. Event is an explicit sum
// type delivered to a single sink callback rather than a name-keyed
// emitter with untyped payloads, so the fields that are meaningful for a
// given Kind are documented per-Kind below.
type EventKind int

const (
	// EventConnected fires once the handshake completes. No other field
	// is meaningful.
	EventConnected EventKind = iota

	// EventProtocol fires once per decoded application message. Channel,
	// ProtocolID and Payload are meaningful.
	EventProtocol

	// EventDisconnect fires exactly once per Connection, however it came
	// to be closed. Reason is meaningful.
	EventDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventProtocol:
		return "protocol"
	case EventDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Reason names why a Connection closed.
type Reason int

const (
	// ReasonServer means the peer sent DISCONNECT.
	ReasonServer Reason = iota
	// ReasonTimeout means no inbound traffic arrived for KeepAliveTimeout.
	ReasonTimeout
	// ReasonClosed means the local Close was called.
	ReasonClosed
)

func (r Reason) String() string {
	switch r {
	case ReasonServer:
		return "server"
	case ReasonTimeout:
		return "timeout"
	case ReasonClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is delivered to an EventSink. Only the fields documented for its
// Kind are populated.
type Event struct {
	Kind EventKind

	Channel    Channel
	ProtocolID byte
	Payload    []byte

	Reason Reason
}

// EventSink receives Events from a Connection. It is called with the
// Connection's internal lock held, so implementations must not call back
// into the Connection synchronously and should not block.
type EventSink func(Event)
