package rudp

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	mathrand "math/rand"
	"net"
	"sync"
	"time"
)

// Phase is the Connection's transport-level state, distinct from the
// application-level handshake-complete flag.
type Phase int

const (
	PhaseAwaitingServer Phase = iota
	PhaseConnected
	PhaseClosing
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingServer:
		return "awaiting_server"
	case PhaseConnected:
		return "connected"
	case PhaseClosing:
		return "closing"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type pendingConfirmation struct {
	channel    Channel
	start      Seq
	enqueuedAt time.Time
}

// Connection owns the UDP endpoint, the three SendChannels and three
// ReceiveChannels, handshake state, keep-alive timers, the confirmation
// batcher, and disconnect logic. A fixed-period tick flushes sends,
// flushes acks, and checks timeouts.
type Connection struct {
	mu sync.Mutex

	transport udpTransport
	logger    Logger
	sink      EventSink

	localID  int64
	remoteID int64

	phase             Phase
	handshakeComplete bool
	handshakePayload  []byte

	send             [ChannelCount]*sendChannel
	recv             [ChannelCount]*recvChannel
	localInitialSeqs [ChannelCount]Seq

	pendingConfirmations []pendingConfirmation

	lastInbound       time.Time
	lastKeepAliveSent time.Time
	lastInitSent      time.Time

	disconnectSent    bool
	disconnectEmitted bool

	ticker   *time.Ticker
	stopTick chan struct{}
	closeWG  sync.WaitGroup
}

// NewConnection constructs a Connection over an already-dialed transport.
// Call Start to begin the handshake. logger and sink may both be nil.
func NewConnection(transport udpTransport, logger Logger, sink EventSink) *Connection {
	if logger == nil {
		logger = NopLogger{}
	}

	r := newRand()
	c := &Connection{
		transport: transport,
		logger:    logger,
		sink:      sink,
		localID:   newConnectionID(time.Now(), r),
		phase:     PhaseAwaitingServer,
		stopTick:  make(chan struct{}),
	}
	for i := range c.send {
		seq := randomSeq(r)
		c.localInitialSeqs[i] = seq
		c.send[i] = newSendChannel(Channel(i), seq)
	}
	return c
}

// newRand builds a *rand.Rand seeded from the OS CSPRNG, falling back to
// the wall clock if that's unavailable. It is created once per Connection
// and threaded explicitly through every call that needs randomness,
// rather than living as package-level global state.
func newRand() *mathrand.Rand {
	var buf [8]byte
	seed := time.Now().UnixNano()
	if _, err := cryptorand.Read(buf[:]); err == nil {
		seed = int64(binary.BigEndian.Uint64(buf[:]))
	}
	return mathrand.New(mathrand.NewSource(seed))
}

// newConnectionID derives a connection id from the current wall clock
// (milliseconds, shifted left 20 bits) OR-ed with 20 random bits.
func newConnectionID(now time.Time, r *mathrand.Rand) int64 {
	ms := now.UnixMilli()
	random20 := r.Int63n(1 << 20)
	return ms<<20 | random20
}

// Start binds the tick and read loops and sends the initial INIT packet.
func (c *Connection) Start(handshakePayload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handshakePayload = handshakePayload

	now := time.Now()
	c.lastInbound = now
	if err := c.sendInit(now); err != nil {
		return fmt.Errorf("rudp: initial INIT send failed: %w", err)
	}

	c.ticker = time.NewTicker(TickInterval)
	c.closeWG.Add(2)
	go c.tickLoop()
	go c.readLoop()

	return nil
}

func (c *Connection) sendInit(now time.Time) error {
	buf := make([]byte, 21)
	buf[0] = byte(ctrlInit)
	putUint64(buf[1:9], uint64(c.localID))
	putUint32(buf[9:13], uint32(c.localInitialSeqs[LOSSY]))
	putUint32(buf[13:17], uint32(c.localInitialSeqs[FAST]))
	putUint32(buf[17:21], uint32(c.localInitialSeqs[SLOW]))

	if err := c.writeDatagram(buf); err != nil {
		return err
	}
	c.lastInitSent = now
	return nil
}

// writeDatagram writes raw bytes to the transport. A send failure is a
// transient failure (§7): it's logged and not propagated into any state
// change, since the retransmit/resend timers provide the eventual bound.
func (c *Connection) writeDatagram(buf []byte) error {
	_, err := c.transport.Write(buf)
	if err != nil {
		c.logger.Warnf("rudp: datagram write failed: %v", err)
	}
	return err
}

// tick runs the fixed-period maintenance pass: INIT resend while awaiting
// the peer, keep-alive timeout detection, keep-alive emission,
// confirmation flush, and one outbound packet per channel with work.
func (c *Connection) tick(now time.Time) {
	if c.phase == PhaseClosing || c.phase == PhaseClosed {
		return
	}

	if c.phase == PhaseAwaitingServer && (c.lastInitSent.IsZero() || now.Sub(c.lastInitSent) >= InitResendInterval) {
		c.sendInit(now)
	}

	if c.phase == PhaseConnected && now.Sub(c.lastInbound) >= KeepAliveTimeout {
		c.logger.Warnf("rudp: keep-alive timeout after %s of silence", now.Sub(c.lastInbound))
		c.close(false, ReasonTimeout)
		return
	}

	if now.Sub(c.lastKeepAliveSent) >= KeepAliveInterval {
		c.writeDatagram([]byte{byte(ctrlKeepAlive)})
		c.lastKeepAliveSent = now
	}

	c.flushConfirmations(now)

	for i := range c.send {
		ch := c.send[i]
		if !ch.hasWork() {
			continue
		}
		if pkt, ok := ch.getPacket(now); ok {
			c.sendChannelPacket(Channel(i), pkt)
		}
	}
}

func (c *Connection) sendChannelPacket(channel Channel, pkt OutPacket) {
	buf := make([]byte, ChannelHdrSize+len(pkt.Payload))
	buf[0] = byte(channel)
	putUint32(buf[1:5], uint32(pkt.Start))
	copy(buf[5:], pkt.Payload)
	c.writeDatagram(buf)

	c.logger.Debugf("rudp: channel %d: sent start=%d len=%d resend=%v", channel, pkt.Start, len(pkt.Payload), pkt.Resend)
}

// flushConfirmations drains up to ConfirmationBatchSize pending
// acknowledgments into a single CONFIRMATION datagram.
func (c *Connection) flushConfirmations(now time.Time) {
	if len(c.pendingConfirmations) == 0 {
		return
	}

	n := len(c.pendingConfirmations)
	if n > ConfirmationBatchSize {
		n = ConfirmationBatchSize
	}
	batch := c.pendingConfirmations[:n]
	c.pendingConfirmations = c.pendingConfirmations[n:]

	const entrySize = 1 + 2 + 4
	buf := make([]byte, 1+entrySize*n)
	buf[0] = byte(ctrlConfirmation)
	for i, pc := range batch {
		off := 1 + entrySize*i

		delayMS := now.Sub(pc.enqueuedAt).Milliseconds() / 2
		if delayMS < 0 {
			delayMS = 0
		}
		if delayMS > 0xFFFF {
			delayMS = 0xFFFF
		}

		buf[off] = byte(pc.channel)
		be.PutUint16(buf[off+1:off+3], uint16(delayMS))
		putUint32(buf[off+3:off+7], uint32(pc.start))
	}

	c.writeDatagram(buf)
}

// QueueOutgoing schedules a message on one of the three reliable
// channels.
func (c *Connection) QueueOutgoing(channel Channel, protocolID byte, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if channel >= ChannelCount {
		return fmt.Errorf("rudp: invalid channel: %d", channel)
	}
	return c.send[channel].queue(protocolID, payload)
}

// Close closes the Connection. By default it sends DISCONNECT first;
// passing notify=false skips that (used internally for the timeout and
// peer-DISCONNECT paths, but available to callers that already know the
// peer is gone). Idempotent.
func (c *Connection) Close(notify ...bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseClosing || c.phase == PhaseClosed {
		return net.ErrClosed
	}
	n := true
	if len(notify) > 0 {
		n = notify[0]
	}
	c.close(n, ReasonClosed)
	return nil
}

// Wait blocks until the tick and read goroutines have both exited. Call
// it from a goroutine other than an EventSink callback (which runs with
// the Connection's lock held) to avoid deadlocking against Close.
func (c *Connection) Wait() {
	c.closeWG.Wait()
}

func (c *Connection) close(notify bool, reason Reason) {
	if c.phase == PhaseClosing || c.phase == PhaseClosed {
		return
	}
	c.phase = PhaseClosing

	if notify && !c.disconnectSent {
		c.writeDatagram([]byte{byte(ctrlDisconnect)})
		c.disconnectSent = true
	}

	if c.ticker != nil {
		c.ticker.Stop()
	}
	select {
	case <-c.stopTick:
	default:
		close(c.stopTick)
	}
	c.transport.Close()

	c.phase = PhaseClosed
	c.emitDisconnect(reason)
}

func (c *Connection) emitDisconnect(reason Reason) {
	if c.disconnectEmitted {
		return
	}
	c.disconnectEmitted = true
	c.emit(Event{Kind: EventDisconnect, Reason: reason})
}

func (c *Connection) emit(e Event) {
	if c.sink != nil {
		c.sink(e)
	}
}

func (c *Connection) tickLoop() {
	defer c.closeWG.Done()
	for {
		select {
		case t := <-c.ticker.C:
			c.mu.Lock()
			c.tick(t)
			closed := c.phase == PhaseClosed
			c.mu.Unlock()
			if closed {
				return
			}
		case <-c.stopTick:
			return
		}
	}
}

func (c *Connection) readLoop() {
	defer c.closeWG.Done()

	buf := make([]byte, MTU)
	for {
		n, err := c.transport.Read(buf)
		if err != nil {
			return
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])

		c.mu.Lock()
		closed := c.phase == PhaseClosed
		if !closed {
			c.handleDatagram(datagram, time.Now())
		}
		c.mu.Unlock()

		if closed {
			return
		}
	}
}

func (c *Connection) handleDatagram(data []byte, now time.Time) {
	if len(data) < 1 {
		return
	}
	c.lastInbound = now

	switch controlID(data[0]) {
	case ctrlInit:
		c.handleInit(data)
	case ctrlConfirmation:
		c.handleConfirmation(data[1:])
	case ctrlKeepAlive:
		// No-op beyond the last_inbound touch above.
	case ctrlDisconnect:
		c.close(false, ReasonServer)
	default:
		c.handleSequenced(data, now)
	}
}

func (c *Connection) handleInit(data []byte) {
	if c.phase != PhaseAwaitingServer {
		return
	}

	switch len(data) {
	case 21:
		c.remoteID = int64(getUint64(data[1:9]))
		seqLossy := Seq(getUint32(data[9:13]))
		seqFast := Seq(getUint32(data[13:17]))
		seqSlow := Seq(getUint32(data[17:21]))

		c.recv[LOSSY] = newRecvChannel(LOSSY, seqLossy)
		c.recv[FAST] = newRecvChannel(FAST, seqFast)
		c.recv[SLOW] = newRecvChannel(SLOW, seqSlow)

		ack := make([]byte, 9)
		ack[0] = byte(ctrlInit)
		putUint64(ack[1:9], uint64(c.remoteID))
		c.writeDatagram(ack)

		if len(c.handshakePayload) > 0 {
			if err := c.send[FAST].queue(HandshakeProtocolID, c.handshakePayload); err != nil {
				c.logger.Errorf("rudp: handshake payload too large to queue: %v", err)
			}
		}

		c.phase = PhaseConnected
		c.handshakeComplete = true
		c.logger.Infof("rudp: connected, remote id %d", c.remoteID)
		c.emit(Event{Kind: EventConnected})
	case 9:
		c.logger.Debugf("rudp: received short INIT (remote id echo) while awaiting server")
	default:
		c.logger.Warnf("rudp: received INIT with unexpected length %d", len(data))
	}
}

func (c *Connection) handleConfirmation(data []byte) {
	const entrySize = 1 + 2 + 4
	for len(data) >= entrySize {
		channel := Channel(data[0])
		start := Seq(getUint32(data[3:7]))
		if channel < ChannelCount {
			c.send[channel].handleAck(start)
		} else {
			c.logger.Warnf("rudp: confirmation names invalid channel %d", channel)
		}
		data = data[entrySize:]
	}
	if len(data) > 0 {
		c.logger.Warnf("rudp: %d trailing bytes in CONFIRMATION datagram", len(data))
	}
}

func (c *Connection) handleSequenced(data []byte, now time.Time) {
	channel, start, payload, err := ParseChannelPacket(data)
	if err != nil {
		c.logger.Warnf("rudp: dropping malformed sequenced datagram: %v", err)
		return
	}

	recv := c.recv[channel]
	if recv == nil {
		// ReceiveChannels are created lazily once the peer's INIT
		// arrives; anything sequenced before that is dropped silently.
		return
	}

	result := recv.handlePacket(start, payload)
	c.pendingConfirmations = append(c.pendingConfirmations, pendingConfirmation{
		channel:    channel,
		start:      result.AckStart,
		enqueuedAt: now,
	})

	for _, m := range result.Messages {
		c.emit(Event{Kind: EventProtocol, Channel: channel, ProtocolID: m.ProtocolID, Payload: m.Payload})
	}
}
