/*
Package rudp implements the reliability and framing engine of a
voxel-game server's custom UDP protocol: the client side of a single UDP
flow carrying three independent reliable byte-stream channels plus a small
control plane (handshake, keep-alive, acknowledgment batching, disconnect).

All exported methods on *Connection are safe for concurrent use by
multiple goroutines; internally a single mutex is held for the duration of
every public entry point, matching a cooperative single-threaded owner
model rather than per-field locking.
*/
package rudp

import "encoding/binary"

var be = binary.BigEndian

// Channel identifies one of the three reliable byte-stream channels. The
// names reflect transport intent only: all three are identical byte
// streams with identical loss-recovery behavior.
type Channel uint8

const (
	LOSSY Channel = 0
	FAST  Channel = 1
	SLOW  Channel = 2
)

// ChannelCount is the number of reliable channels.
const ChannelCount = 3

// controlID identifies a datagram on the control plane, which never
// carries sequenced payload and is handled directly by Connection.
type controlID uint8

const (
	ctrlConfirmation controlID = 3
	ctrlInit         controlID = 4
	ctrlKeepAlive    controlID = 5
	ctrlDisconnect   controlID = 6
)

// HandshakeProtocolID is the protocol_id the user-supplied handshake
// payload is framed with when it is queued onto FAST after the init
// exchange completes. Its meaning beyond that framing is an application
// concern outside this package.
const HandshakeProtocolID byte = 0
