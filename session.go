// Package vudp is a thin facade over rudp: it dials the UDP transport,
// wires up logging and the event sink, and offers a small protocol-id
// dispatch registry standing in for the application layer that sits on
// top of the reliability engine (chat formatting, player-state encoding,
// and the like) but is out of scope for this repository.
package vudp

import (
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vgnet/vudp/rudp"
)

// Channel re-exports rudp.Channel so callers of this package rarely need
// to import rudp directly.
type Channel = rudp.Channel

const (
	Lossy Channel = rudp.LOSSY
	Fast  Channel = rudp.FAST
	Slow  Channel = rudp.SLOW
)

// Event, EventKind and Reason re-export their rudp counterparts.
type (
	Event     = rudp.Event
	EventKind = rudp.EventKind
	Reason    = rudp.Reason
)

// Options configures Dial.
type Options struct {
	// Addr is the server's host:port.
	Addr string

	// Handshake is queued onto the FAST channel once the handshake
	// completes. May be nil.
	Handshake []byte

	// Logger defaults to a logrus-backed Logger at info level if nil.
	Logger Logger
}

// Session is a connected client session: one Connection plus dispatch
// convenience on top.
type Session struct {
	id   uuid.UUID
	conn *rudp.Connection

	logger Logger
	events chan Event

	mu       sync.Mutex
	handlers map[byte]func(channel Channel, payload []byte)
}

// Dial connects to a server and starts the handshake.
func Dial(opts Options) (*Session, error) {
	transport, err := net.Dial("udp", opts.Addr)
	if err != nil {
		return nil, err
	}
	return newSession(transport, opts)
}

func newSession(transport net.Conn, opts Options) (*Session, error) {
	id := uuid.New()

	logger := opts.Logger
	if logger == nil {
		logger = newTaggedLogger(logrus.InfoLevel, id)
	}

	s := &Session{
		id:       id,
		logger:   logger,
		events:   make(chan Event, 64),
		handlers: make(map[byte]func(Channel, []byte)),
	}
	s.conn = rudp.NewConnection(transport, logger, s.dispatch)

	if err := s.conn.Start(opts.Handshake); err != nil {
		return nil, err
	}
	return s, nil
}

// dispatch is the rudp.EventSink wired into the Connection. It runs with
// the Connection's lock held, so it never blocks: protocol events with a
// registered Handle callback are delivered synchronously, everything else
// goes onto the buffered Events channel (dropped with a log line if full).
func (s *Session) dispatch(e Event) {
	if e.Kind == rudp.EventProtocol {
		s.mu.Lock()
		h := s.handlers[e.ProtocolID]
		s.mu.Unlock()
		if h != nil {
			h(e.Channel, e.Payload)
			return
		}
	}

	select {
	case s.events <- e:
	default:
		s.logger.Warnf("vudp: event channel full, dropping %s event", e.Kind)
	}
}

// Events returns the channel unhandled events are delivered on (anything
// without a registered Handle callback).
func (s *Session) Events() <-chan Event {
	return s.events
}

// Handle registers a synchronous callback for a given protocol id,
// bypassing the Events channel entirely for that id.
func (s *Session) Handle(protocolID byte, fn func(channel Channel, payload []byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[protocolID] = fn
}

// QueueOutgoing schedules a message on one of the three reliable
// channels.
func (s *Session) QueueOutgoing(channel Channel, protocolID byte, payload []byte) error {
	return s.conn.QueueOutgoing(channel, protocolID, payload)
}

// Close gracefully closes the session's Connection.
func (s *Session) Close() error {
	return s.conn.Close()
}
