package rudp

import (
	"container/list"
	"time"
)

// buildFrame lays an application message down as
// [protocol_id][varint(len(body))][body], the unit SendChannel appends to
// its byte stream.
func buildFrame(protocolID byte, body []byte) []byte {
	buf := make([]byte, 0, 1+5+len(body))
	buf = append(buf, protocolID)
	buf = appendVarint(buf, uint32(len(body)))
	buf = append(buf, body...)
	return buf
}

type inFlightEntry struct {
	start     Seq
	payload   []byte
	timestamp time.Time
	retries   int
}

// OutPacket is one packet a SendChannel wants emitted: either a fresh
// packet or a retransmission of a previously emitted one.
type OutPacket struct {
	Start   Seq
	Payload []byte
	Resend  bool
}

// sendChannel is the per-channel reliable send side: it emits each queued
// message frame as one MTU-bounded packet (frames are not split; a frame
// larger than MaxFrameSize is rejected by queue), assigns strictly
// increasing sequence numbers, retransmits unacknowledged payloads on
// timeout, and tracks the contiguous-ack frontier.
type sendChannel struct {
	channelID Channel

	nextIndex      Seq
	fullyConfirmed Seq

	pending [][]byte

	inFlight      *list.List // of *inFlightEntry, insertion order
	inFlightIndex map[Seq]*list.Element

	acked map[Seq]uint32 // start -> length; 0 means "unknown length"
}

func newSendChannel(channelID Channel, initialSeq Seq) *sendChannel {
	return &sendChannel{
		channelID:      channelID,
		nextIndex:      initialSeq,
		fullyConfirmed: initialSeq,
		inFlight:       list.New(),
		inFlightIndex:  make(map[Seq]*list.Element),
		acked:          make(map[Seq]uint32),
	}
}

// queue builds the message frame and appends it to pending_messages.
// Sequence numbers are assigned later, at getPacket time, so that
// repeated queues never interleave with retransmissions of earlier
// frames.
func (c *sendChannel) queue(protocolID byte, body []byte) error {
	frame := buildFrame(protocolID, body)
	if len(frame) > MaxFrameSize {
		return ErrMessageTooLarge
	}
	c.pending = append(c.pending, frame)
	return nil
}

// hasWork reports whether the tick loop needs to look at this channel at
// all this tick.
func (c *sendChannel) hasWork() bool {
	return len(c.pending) > 0 || c.inFlight.Len() > 0
}

// getPacket is the single emission point: it prefers retransmitting the
// oldest timed-out in-flight packet over sending a fresh one, so a
// stalled peer can't starve recovery.
func (c *sendChannel) getPacket(now time.Time) (OutPacket, bool) {
	for e := c.inFlight.Front(); e != nil; e = e.Next() {
		ent := e.Value.(*inFlightEntry)
		if now.Sub(ent.timestamp) >= ResendTimeout {
			ent.timestamp = now
			ent.retries++
			return OutPacket{Start: ent.start, Payload: ent.payload, Resend: true}, true
		}
	}

	if len(c.pending) > 0 {
		frame := c.pending[0]
		c.pending = c.pending[1:]

		start := c.nextIndex
		ent := &inFlightEntry{start: start, payload: frame, timestamp: now}
		el := c.inFlight.PushBack(ent)
		c.inFlightIndex[start] = el
		c.nextIndex = c.nextIndex.Add(uint32(len(frame)))

		return OutPacket{Start: start, Payload: frame, Resend: false}, true
	}

	return OutPacket{}, false
}

// handleAck processes one acknowledgment entry. If start matches an
// in-flight packet it is retired and its length recorded unconditionally
// (this is what upgrades a previously-recorded length-0 "unknown ack"
// entry to a real length, resolving the frontier-stall the spec leaves as
// an open question: an in-flight match always overwrites, regardless of
// whatever acked already holds for that start).
func (c *sendChannel) handleAck(start Seq) {
	if el, ok := c.inFlightIndex[start]; ok {
		ent := el.Value.(*inFlightEntry)
		c.inFlight.Remove(el)
		delete(c.inFlightIndex, start)
		c.acked[start] = uint32(len(ent.payload))
	} else if _, exists := c.acked[start]; !exists {
		c.acked[start] = 0
	}

	for {
		length, ok := c.acked[c.fullyConfirmed]
		if !ok {
			break
		}
		delete(c.acked, c.fullyConfirmed)
		if length == 0 {
			break
		}
		c.fullyConfirmed = c.fullyConfirmed.Add(length)
	}
}
