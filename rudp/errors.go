package rudp

import (
	"errors"
	"fmt"
)

// ErrMessageTooLarge is returned by (*Connection).QueueOutgoing when the
// encoded frame (protocol_id + varint size + body) would exceed
// MaxFrameSize.
var ErrMessageTooLarge = errors.New("rudp: message too large for a single packet")

// TruncatedPacketError reports a sequenced datagram shorter than
// ChannelHdrSize.
type TruncatedPacketError struct {
	Len int
}

func (e TruncatedPacketError) Error() string {
	return fmt.Sprintf("rudp: truncated sequenced packet: %d bytes", e.Len)
}

// ControlChannelError reports a sequenced-packet parse attempted on a
// datagram whose leading byte is not one of the three reliable channels:
// a control id, or any other id of 3 or above.
type ControlChannelError struct {
	Channel Channel
}

func (e ControlChannelError) Error() string {
	return fmt.Sprintf("rudp: channel id %d is not a sequenced channel", uint8(e.Channel))
}
