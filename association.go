// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package sctp implements a userspace SCTP (RFC 4960) association sized for
// carrying WebRTC data-channel traffic over an externally supplied datagram
// transport. It owns no socket: bytes arrive through WriteIncoming and leave
// through ReadOutgoing.
package sctp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pion/logging"
)

// Association is the per-peer SCTP state machine: handshake, chunk
// dispatch, TSN/SSN bookkeeping, windowed send scheduling, and reassembly.
// It is single-threaded and cooperative (SPEC_FULL.md §5): every exported
// method must be called from one owning goroutine, never re-entrantly from
// a callback.
type Association struct {
	cfg Config
	log logging.LeveledLogger
	now func() time.Time

	sourcePort      uint16
	destinationPort uint16

	myTag   uint32
	peerTag uint32

	state State

	nextTSN     uint32
	lastRcvdTSN uint32

	myMaxOutboundStreams uint16
	myMaxInboundStreams  uint16

	outboundSSN map[uint16]uint16
	inbound     map[uint16]*streamReassembly

	mtu                uint32
	remoteWindowCredit uint32

	cc *congestionController

	controlQ controlQueue
	dataQ    dataQueue
	unacked  *unackedQueue

	cumTSNAckPoint uint32
	cumTSNAckSeen  bool

	outgoingPackets [][]byte

	cookies         *cookieJar
	initChunk       *chunkInit
	cookieEchoChunk *chunkCookieEcho

	// inbound SACK bookkeeping
	recvOOO       map[uint32]bool
	dupTSNs       []uint32
	dataSinceSack int
	sackImmediate bool

	heartbeatPending bool

	lastErrorKind ErrorKind
	lastErr       error

	// T1-init: retransmits the INIT while CookieWait.
	t1InitArmed    bool
	t1InitDeadline time.Time
	t1InitAttempts int
	t1InitRTO      time.Duration

	// T1-cookie: retransmits the COOKIE-ECHO while CookieEchoed.
	t1CookieArmed    bool
	t1CookieDeadline time.Time
	t1CookieAttempts int
	t1CookieRTO      time.Duration

	// T2-shutdown: retransmits SHUTDOWN / SHUTDOWN-ACK.
	t2ShutdownArmed    bool
	t2ShutdownDeadline time.Time
	t2ShutdownAttempts int
	t2ShutdownRTO      time.Duration

	// T3-rtx: retransmits unacknowledged DATA.
	t3RTXArmed    bool
	t3RTXDeadline time.Time
	rto           time.Duration

	// Delayed SACK, RFC 4960 §6.2.
	delayedSackArmed    bool
	delayedSackDeadline time.Time
}

// NewAssociation constructs an Association in StateClosed. cfg.SourcePort
// and cfg.DestinationPort must both be non-zero.
func NewAssociation(cfg Config) *Association {
	c := cfg.withDefaults()

	a := &Association{
		cfg:                c,
		log:                c.LoggerFactory.NewLogger("sctp"),
		now:                c.nowFunc,
		sourcePort:         c.SourcePort,
		destinationPort:    c.DestinationPort,
		state:              StateClosed,
		mtu:                c.MTU,
		remoteWindowCredit: c.MaxReceiveBufferSize,
		outboundSSN:        map[uint16]uint16{},
		inbound:            map[uint16]*streamReassembly{},
		unacked:            newUnackedQueue(),
		recvOOO:            map[uint32]bool{},
		cookies:            newCookieJar(c.nowFunc),
		cc:                 newCongestionController(c.MTU),
		t1InitRTO:          defaultInitRTO,
		t1CookieRTO:        defaultInitRTO,
		t2ShutdownRTO:      defaultInitRTO,
		rto:                defaultInitRTO,
	}

	return a
}

// State returns the association's current lifecycle state.
func (a *Association) State() State { return a.state }

// LastError returns the most recent terminal error, if any.
func (a *Association) LastError() (ErrorKind, error) { return a.lastErrorKind, a.lastErr }

// ReadOutgoing pulls the next assembled outbound packet, or nil if none is
// queued.
func (a *Association) ReadOutgoing() []byte {
	if len(a.outgoingPackets) == 0 {
		return nil
	}
	next := a.outgoingPackets[0]
	a.outgoingPackets = a.outgoingPackets[1:]

	return next
}

func (a *Association) notifyReadyReadOutgoing() {
	if a.cfg.OnReadyReadOutgoing != nil {
		a.cfg.OnReadyReadOutgoing()
	}
}

// wrongState reports a WrongState error to the caller without touching the
// wire or the association's lifecycle, per SPEC_FULL.md §7.
func (a *Association) wrongState(op string) error {
	a.lastErrorKind = ErrorWrongState
	a.lastErr = fmt.Errorf("%w: %s called in state %s", ErrWrongState, op, a.state)

	return a.lastErr
}

func abortCauseFor(kind ErrorKind) errorCauseCode {
	switch kind {
	case ErrorInvalidCookie, ErrorVerificationTag:
		return causeInvalidMandatoryParameter
	default:
		return causeProtocolViolation
	}
}

// fail terminates the association: state -> Closed, best-effort ABORT
// addressed to the peer's known tag, queues dropped, OnErrorOccurred fired.
func (a *Association) fail(kind ErrorKind, cause error) error {
	return a.failWithTag(a.peerTag, kind, cause)
}

func (a *Association) failWithTag(tag uint32, kind ErrorKind, cause error) error {
	a.lastErrorKind = kind
	a.lastErr = cause

	if a.state != StateClosed {
		a.log.Warnf("[%s] state change: %s -> Closed (%s: %s)", a.cfg.Name, a.state, kind, cause)
	}
	a.state = StateClosed

	a.sendControlPacket(tag, newAbortChunk(abortCauseFor(kind), cause.Error()))

	a.controlQ.chunks = nil
	a.dataQ.chunks = nil
	a.unacked = newUnackedQueue()
	a.disarmAllTimers()

	if a.cfg.OnErrorOccurred != nil {
		a.cfg.OnErrorOccurred(kind, cause)
	}

	return cause
}

// Abort is the host-initiated terminal cancel, SPEC_FULL.md §5.
func (a *Association) Abort(kind ErrorKind, reason string) {
	if a.state == StateClosed {
		return
	}
	if kind == ErrorNone {
		kind = ErrorUnknown
	}
	a.fail(kind, errors.New(reason)) //nolint:err113
}

func (a *Association) sendControlPacket(tag uint32, chunks ...chunk) {
	pkt := &packet{sourcePort: a.sourcePort, destinationPort: a.destinationPort, verificationTag: tag, chunks: chunks}

	raw, err := pkt.marshal()
	if err != nil {
		a.log.Errorf("[%s] marshal control packet: %s", a.cfg.Name, err)

		return
	}

	a.outgoingPackets = append(a.outgoingPackets, raw)
	a.notifyReadyReadOutgoing()
}

// Associate begins the four-way handshake. A no-op with a logged warning
// outside StateClosed.
func (a *Association) Associate() error {
	if a.state != StateClosed {
		a.log.Warnf("[%s] Associate called in state %s, ignoring", a.cfg.Name, a.state)

		return nil
	}

	a.myTag = randomNonZeroUint32()
	a.nextTSN = a.myTag

	init := &chunkInit{chunkInitCommon{
		initiateTag:                    a.myTag,
		advertisedReceiverWindowCredit: a.cfg.MaxReceiveBufferSize,
		numOutboundStreams:             a.cfg.MaxOutboundStreams,
		numInboundStreams:              a.cfg.MaxInboundStreams,
		initialTSN:                     a.nextTSN,
	}}
	a.initChunk = init

	a.state = StateCookieWait
	a.log.Debugf("[%s] state change: Closed -> CookieWait", a.cfg.Name)
	a.armT1Init()
	a.sendControlPacket(0, init)

	return nil
}

// WriteIncoming decodes and dispatches one complete inbound SCTP packet.
func (a *Association) WriteIncoming(data []byte) error { //nolint:cyclop
	pkt := &packet{}
	err := pkt.unmarshal(data)

	if err != nil && (errors.Is(err, ErrPacketRawTooSmall) || errors.Is(err, ErrChecksumMismatch) ||
		errors.Is(err, ErrSCTPPacketSourcePortZero) || errors.Is(err, ErrSCTPPacketDestinationPortZero)) {
		a.log.Tracef("[%s] dropping packet: %s", a.cfg.Name, err)

		return nil
	}

	// Header and checksum are valid even if a later chunk turned out to be
	// malformed; the tag check (step 2) runs before chunk-level handling
	// (step 3) either way, per SPEC_FULL.md §9 decision 1.
	if a.state != StateClosed && pkt.verificationTag != a.myTag {
		a.log.Tracef("[%s] dropping packet: verification tag mismatch", a.cfg.Name)

		return nil
	}

	if err != nil {
		a.fail(ErrorProtocolViolation, err)

		return nil
	}

	for _, c := range pkt.chunks {
		if herr := a.handleChunk(pkt, c); herr != nil {
			break // association already failed; ignore the rest of the packet
		}
	}

	a.trySend()

	return nil
}

func (a *Association) handleChunk(pkt *packet, c chunk) error { //nolint:cyclop
	switch v := c.(type) {
	case *chunkInit:
		return a.handleInit(pkt, v)
	case *chunkInitAck:
		return a.handleInitAck(pkt, v)
	case *chunkCookieEcho:
		return a.handleCookieEcho(pkt, v)
	case *chunkCookieAck:
		return a.handleCookieAck()
	case *chunkSelectiveAck:
		return a.handleSack(v)
	case *chunkPayloadData:
		return a.handleData(v)
	case *chunkAbort:
		return a.handlePeerAbort(v)
	case *chunkShutdown:
		return a.handleShutdown(v)
	case *chunkShutdownAck:
		return a.handleShutdownAck()
	case *chunkShutdownComplete:
		return a.handleShutdownComplete()
	case *chunkHeartbeat:
		return a.handleHeartbeat(v)
	case *chunkHeartbeatAck:
		return a.handleHeartbeatAck()
	default:
		return nil // chunkUnknown and anything else: silently ignored
	}
}

func (a *Association) handleInit(pkt *packet, c *chunkInit) error {
	if len(pkt.chunks) != 1 {
		return a.failWithTag(pkt.verificationTag, ErrorProtocolViolation, ErrInitChunkBundled)
	}
	if pkt.verificationTag != 0 {
		return a.failWithTag(pkt.verificationTag, ErrorVerificationTag, ErrInitChunkVerifyTagNotZero)
	}
	if c.initiateTag == 0 {
		return a.failWithTag(pkt.verificationTag, ErrorVerificationTag, ErrVerificationTagMismatch)
	}

	// DO NOT change a.state: the cookie carries all state for this
	// stateless reply, SPEC_FULL.md §4.4.
	a.sourcePort = pkt.destinationPort
	a.destinationPort = pkt.sourcePort

	myTag := randomNonZeroUint32()
	t := &tcb{
		myTag:              myTag,
		peerTag:            c.initiateTag,
		nextTSN:            myTag,
		lastRcvdTSN:        c.initialTSN - 1,
		remoteWindowCredit: c.advertisedReceiverWindowCredit,
		inStreams:          min16(c.numOutboundStreams, a.cfg.MaxInboundStreams),
		outStreams:         min16(c.numInboundStreams, a.cfg.MaxOutboundStreams),
		sourcePort:         a.sourcePort,
		destPort:           a.destinationPort,
	}
	a.cookies.rotate()
	cookie := a.cookies.mint(t)

	ack := &chunkInitAck{chunkInitCommon{
		initiateTag:                    myTag,
		advertisedReceiverWindowCredit: a.cfg.MaxReceiveBufferSize,
		numOutboundStreams:             t.outStreams,
		numInboundStreams:              t.inStreams,
		initialTSN:                     myTag,
		params:                         []param{newParamStateCookie(cookie)},
	}}

	a.log.Debugf("[%s] INIT -> INIT-ACK (stateless)", a.cfg.Name)
	a.sendControlPacket(c.initiateTag, ack)

	return nil
}

func (a *Association) initRemote(c *chunkInitCommon) error {
	if c.initiateTag == 0 {
		return a.failWithTag(0, ErrorVerificationTag, ErrVerificationTagMismatch)
	}

	a.peerTag = c.initiateTag
	a.remoteWindowCredit = c.advertisedReceiverWindowCredit
	a.lastRcvdTSN = c.initialTSN - 1
	a.myMaxOutboundStreams = min16(c.numInboundStreams, a.cfg.MaxOutboundStreams)
	a.myMaxInboundStreams = min16(c.numOutboundStreams, a.cfg.MaxInboundStreams)
	a.cc = newCongestionController(a.mtu)
	a.cc.reset(a.remoteWindowCredit)

	return nil
}

func (a *Association) handleInitAck(pkt *packet, c *chunkInitAck) error {
	if len(pkt.chunks) != 1 {
		return a.fail(ErrorProtocolViolation, ErrInitChunkBundled)
	}
	if a.state != StateCookieWait {
		a.log.Debugf("[%s] ignoring INIT-ACK in state %s", a.cfg.Name, a.state)

		return nil
	}

	cookieParam := firstParamStateCookie(c.params)
	if cookieParam == nil {
		return a.fail(ErrorInvalidCookie, ErrInitAckNoCookie)
	}

	if err := a.initRemote(&c.chunkInitCommon); err != nil {
		return err
	}

	a.disarmT1Init()

	echo := &chunkCookieEcho{cookie: append([]byte(nil), cookieParam.cookie...)}
	a.cookieEchoChunk = echo
	a.state = StateCookieEchoed
	a.log.Debugf("[%s] state change: CookieWait -> CookieEchoed", a.cfg.Name)
	a.armT1Cookie()
	a.sendControlPacket(a.peerTag, echo)

	return nil
}

func (a *Association) handleCookieEcho(pkt *packet, c *chunkCookieEcho) error {
	t, err := a.cookies.verify(c.cookie)
	if err != nil {
		return a.failWithTag(pkt.verificationTag, ErrorInvalidCookie, err)
	}

	a.myTag = t.myTag
	a.peerTag = t.peerTag
	a.nextTSN = t.nextTSN
	a.lastRcvdTSN = t.lastRcvdTSN
	a.remoteWindowCredit = t.remoteWindowCredit
	a.myMaxInboundStreams = t.inStreams
	a.myMaxOutboundStreams = t.outStreams
	a.sourcePort = t.sourcePort
	a.destinationPort = t.destPort
	a.cc = newCongestionController(a.mtu)
	a.cc.reset(a.remoteWindowCredit)
	a.unacked = newUnackedQueue()
	a.inbound = map[uint16]*streamReassembly{}
	a.outboundSSN = map[uint16]uint16{}
	a.recvOOO = map[uint32]bool{}

	a.state = StateEstablished
	a.log.Debugf("[%s] state change: Closed -> Established (COOKIE-ECHO)", a.cfg.Name)
	a.sendControlPacket(a.peerTag, &chunkCookieAck{})

	if a.cfg.OnEstablished != nil {
		a.cfg.OnEstablished()
	}

	return nil
}

func (a *Association) handleCookieAck() error {
	if a.state != StateCookieEchoed {
		return nil
	}

	a.disarmT1Cookie()
	a.state = StateEstablished
	a.log.Debugf("[%s] state change: CookieEchoed -> Established (COOKIE-ACK)", a.cfg.Name)

	if a.cfg.OnEstablished != nil {
		a.cfg.OnEstablished()
	}

	return nil
}

func (a *Association) handlePeerAbort(*chunkAbort) error {
	a.lastErrorKind = ErrorUnknown
	a.lastErr = ErrAssociationClosed

	if a.state != StateClosed {
		a.log.Warnf("[%s] state change: %s -> Closed (peer ABORT)", a.cfg.Name, a.state)
	}
	a.state = StateClosed
	a.controlQ.chunks = nil
	a.dataQ.chunks = nil
	a.disarmAllTimers()

	if a.cfg.OnErrorOccurred != nil {
		a.cfg.OnErrorOccurred(ErrorUnknown, ErrAssociationClosed)
	}

	return ErrAssociationClosed
}

// Write fragments payload into mtu-sized DATA chunks and enqueues them for
// the next trySend pass.
func (a *Association) Write(streamID uint16, unordered bool, ppid uint32, payload []byte) error {
	if a.state != StateEstablished {
		return a.wrongState("Write")
	}

	maxFragment := int(a.mtu) - packetHeaderSize - chunkHeaderSize - dataChunkFixedLength
	if maxFragment <= 0 {
		maxFragment = 1
	}

	var ssn uint16
	if !unordered {
		ssn = a.outboundSSN[streamID]
	}

	offset := 0
	for {
		end := offset + maxFragment
		last := false
		if end >= len(payload) {
			end = len(payload)
			last = true
		}

		c := &chunkPayloadData{
			tsn:               a.nextTSN,
			streamIdentifier:  streamID,
			ppid:              ppid,
			unordered:         unordered,
			beginningFragment: offset == 0,
			endingFragment:    last,
			userData:          append([]byte(nil), payload[offset:end]...),
		}
		if !unordered {
			c.streamSequenceNumber = ssn
		}
		a.nextTSN++
		a.dataQ.push(c)

		if last {
			break
		}
		offset = end
	}

	if !unordered {
		a.outboundSSN[streamID] = ssn + 1
	}

	a.trySend()

	return nil
}

// sendWindow is the current flight-size ceiling: the smaller of the peer's
// advertised receiver window and the local congestion window, RFC 4960
// §7.2.1 ("SHOULD ... not exceed the minimum of the congestion window and
// the receiver advertised window").
func (a *Association) sendWindow() uint32 {
	return min32(a.remoteWindowCredit, a.cc.cwnd)
}

// trySend assembles and queues outbound packets per SPEC_FULL.md §4.5: the
// control queue is fully drained ahead of data, and data is admitted only
// while it fits the MTU and the lesser of the peer's advertised window and
// the local congestion window.
func (a *Association) trySend() { //nolint:cyclop
	switch a.state {
	case StateCookieEchoed, StateEstablished, StateShutdownPending, StateShutdownSent, StateShutdownReceived, StateShutdownAckSent:
	default:
		return
	}

	a.maybeBuildSack()

	sentAny := false

	for uint32(a.unacked.numBytes) < a.sendWindow() || !a.controlQ.empty() { //nolint:gosec
		pkt := &packet{sourcePort: a.sourcePort, destinationPort: a.destinationPort, verificationTag: a.peerTag}
		size := packetHeaderSize

		for !a.controlQ.empty() {
			raw, err := a.controlQ.chunks[0].marshal()
			if err != nil {
				a.log.Errorf("[%s] marshal control chunk: %s", a.cfg.Name, err)
				a.controlQ.pop()

				continue
			}
			chunkSize := len(raw) + getPadding(len(raw))
			if len(pkt.chunks) > 0 && size+chunkSize > int(a.mtu) { //nolint:gosec
				break
			}
			pkt.chunks = append(pkt.chunks, a.controlQ.chunks[0])
			size += chunkSize
			a.controlQ.pop()
		}

		for {
			next := a.dataQ.peek()
			if next == nil {
				break
			}
			raw, err := next.marshal()
			if err != nil {
				a.log.Errorf("[%s] marshal DATA chunk: %s", a.cfg.Name, err)
				a.dataQ.pop()

				continue
			}
			chunkSize := len(raw) + getPadding(len(raw))
			if len(pkt.chunks) > 0 && size+chunkSize > int(a.mtu) { //nolint:gosec
				break
			}
			if uint32(a.unacked.numBytes)+uint32(len(next.userData)) > a.sendWindow() { //nolint:gosec
				break
			}

			a.dataQ.pop()
			a.unacked.add(next, a.now())
			size += chunkSize
			pkt.chunks = append(pkt.chunks, next)
		}

		if len(pkt.chunks) == 0 {
			break
		}

		raw, err := pkt.marshal()
		if err != nil {
			a.log.Errorf("[%s] marshal outbound packet: %s", a.cfg.Name, err)

			break
		}
		a.outgoingPackets = append(a.outgoingPackets, raw)
		sentAny = true
	}

	if sentAny {
		a.notifyReadyReadOutgoing()
	}
	if a.unacked.size() > 0 {
		a.armT3RTX()
	} else {
		a.disarmT3RTX()
	}

	a.checkShutdownProgress()
}

func (a *Association) checkShutdownProgress() {
	if !a.dataQ.empty() || a.unacked.size() != 0 {
		return
	}

	switch a.state {
	case StateShutdownPending:
		a.state = StateShutdownSent
		a.log.Debugf("[%s] state change: ShutdownPending -> ShutdownSent", a.cfg.Name)
		a.sendShutdown()
	case StateShutdownReceived:
		a.enterShutdownAckSent()
	}
}

// Shutdown begins the graceful RFC 4960 §9.2 shutdown sequence.
func (a *Association) Shutdown() error {
	if a.state != StateEstablished {
		return a.wrongState("Shutdown")
	}

	if a.dataQ.empty() && a.unacked.size() == 0 {
		a.state = StateShutdownSent
		a.log.Debugf("[%s] state change: Established -> ShutdownSent", a.cfg.Name)
		a.sendShutdown()
	} else {
		a.state = StateShutdownPending
		a.log.Debugf("[%s] state change: Established -> ShutdownPending", a.cfg.Name)
	}

	return nil
}

func (a *Association) sendShutdown() {
	a.controlQ.pushFront(&chunkShutdown{cumulativeTSNAck: a.lastRcvdTSN})
	a.armT2Shutdown()
	a.trySend()
}

func (a *Association) handleShutdown(*chunkShutdown) error {
	switch a.state {
	case StateEstablished:
		if a.dataQ.empty() && a.unacked.size() == 0 {
			a.enterShutdownAckSent()
		} else {
			a.state = StateShutdownReceived
			a.log.Debugf("[%s] state change: Established -> ShutdownReceived", a.cfg.Name)
		}
	case StateShutdownSent:
		// Simultaneous shutdown, RFC 4960 §9.2.
		a.enterShutdownAckSent()
	}

	return nil
}

func (a *Association) enterShutdownAckSent() {
	a.disarmT2Shutdown()
	a.state = StateShutdownAckSent
	a.log.Debugf("[%s] state change: -> ShutdownAckSent", a.cfg.Name)
	a.controlQ.pushFront(&chunkShutdownAck{})
	a.armT2Shutdown()
	a.trySend()
}

func (a *Association) handleShutdownAck() error {
	switch a.state {
	case StateShutdownSent, StateShutdownAckSent:
		a.disarmT2Shutdown()
		a.sendControlPacket(a.peerTag, &chunkShutdownComplete{})
		a.log.Debugf("[%s] state change: %s -> Closed (SHUTDOWN-ACK)", a.cfg.Name, a.state)
		a.state = StateClosed
	}

	return nil
}

func (a *Association) handleShutdownComplete() error {
	if a.state == StateShutdownAckSent {
		a.disarmT2Shutdown()
		a.log.Debugf("[%s] state change: ShutdownAckSent -> Closed (SHUTDOWN-COMPLETE)", a.cfg.Name)
		a.state = StateClosed
	}

	return nil
}

// Heartbeat enqueues a HEARTBEAT carrying the current timestamp, per
// SPEC_FULL.md §4.9.
func (a *Association) Heartbeat() error {
	if a.state != StateEstablished {
		return a.wrongState("Heartbeat")
	}

	info := make([]byte, 8)
	binary.BigEndian.PutUint64(info, uint64(a.now().UnixNano())) //nolint:gosec
	a.heartbeatPending = true
	a.controlQ.push(&chunkHeartbeat{params: []param{newParamHeartbeatInfo(info)}})
	a.trySend()

	return nil
}

func (a *Association) handleHeartbeat(h *chunkHeartbeat) error {
	a.controlQ.pushFront(&chunkHeartbeatAck{params: h.params})
	a.trySend()

	return nil
}

func (a *Association) handleHeartbeatAck() error {
	a.heartbeatPending = false

	return nil
}

func (a *Association) handleData(c *chunkPayloadData) error { //nolint:cyclop
	switch a.state {
	case StateEstablished, StateShutdownPending, StateShutdownSent:
	default:
		return nil
	}

	if sna32LTE(c.tsn, a.lastRcvdTSN) {
		a.dupTSNs = append(a.dupTSNs, c.tsn)
		a.scheduleSack(false)

		return nil
	}

	if a.recvOOO[c.tsn] {
		a.dupTSNs = append(a.dupTSNs, c.tsn)
		a.scheduleSack(false)

		return nil
	}

	outOfOrder := c.tsn != a.lastRcvdTSN+1
	if outOfOrder {
		a.recvOOO[c.tsn] = true
	} else {
		a.lastRcvdTSN = c.tsn
		for a.recvOOO[a.lastRcvdTSN+1] {
			a.lastRcvdTSN++
			delete(a.recvOOO, a.lastRcvdTSN)
		}
	}

	r := a.inbound[c.streamIdentifier]
	if r == nil {
		r = newStreamReassembly()
		a.inbound[c.streamIdentifier] = r
	}

	delivered, err := r.handleData(c)
	if err != nil {
		return a.fail(ErrorProtocolViolation, err)
	}

	for _, msg := range delivered {
		if a.cfg.OnMessage != nil {
			a.cfg.OnMessage(c.streamIdentifier, msg.ppid, c.unordered, msg.payload)
		}
	}

	a.dataSinceSack++
	a.scheduleSack(outOfOrder || a.dataSinceSack >= 2)

	return nil
}

func (a *Association) scheduleSack(immediate bool) {
	if immediate {
		a.sackImmediate = true
		a.delayedSackArmed = false

		return
	}

	if !a.delayedSackArmed && !a.sackImmediate {
		a.delayedSackArmed = true
		a.delayedSackDeadline = a.now().Add(defaultDelayedSackTimeout)
	}
}

// maybeBuildSack pushes a SACK to the front of the control queue if one is
// due (immediate reason, or the delayed-SACK timer has elapsed).
func (a *Association) maybeBuildSack() {
	due := a.sackImmediate
	if !due && a.delayedSackArmed && !a.now().Before(a.delayedSackDeadline) {
		due = true
	}
	if !due {
		return
	}

	a.sackImmediate = false
	a.delayedSackArmed = false
	a.dataSinceSack = 0
	a.controlQ.pushFront(a.buildSack())
}

func (a *Association) buildSack() *chunkSelectiveAck {
	tsns := make([]uint32, 0, len(a.recvOOO))
	for tsn := range a.recvOOO {
		tsns = append(tsns, tsn)
	}
	sort.Slice(tsns, func(i, j int) bool { return sna32LT(tsns[i], tsns[j]) })

	var gapBlocks []gapAckBlock
	var start, end uint16
	have := false
	for _, tsn := range tsns {
		off := uint16(tsn - a.lastRcvdTSN) //nolint:gosec
		if have && off == end+1 {
			end = off

			continue
		}
		if have {
			gapBlocks = append(gapBlocks, gapAckBlock{start: start, end: end})
		}
		start, end, have = off, off, true
	}
	if have {
		gapBlocks = append(gapBlocks, gapAckBlock{start: start, end: end})
	}

	dup := a.dupTSNs
	a.dupTSNs = nil

	return &chunkSelectiveAck{
		cumulativeTSNAck:               a.lastRcvdTSN,
		advertisedReceiverWindowCredit: a.cfg.MaxReceiveBufferSize,
		gapAckBlocks:                   gapBlocks,
		duplicateTSN:                   dup,
	}
}

func (a *Association) handleSack(s *chunkSelectiveAck) error { //nolint:cyclop
	switch a.state {
	case StateEstablished, StateShutdownPending, StateShutdownSent, StateShutdownReceived, StateShutdownAckSent:
	default:
		return nil
	}

	ackedBytes := 0
	if !a.cumTSNAckSeen || sna32GT(s.cumulativeTSNAck, a.cumTSNAckPoint) {
		ackedBytes += a.unacked.removeThrough(s.cumulativeTSNAck)
		a.cumTSNAckPoint = s.cumulativeTSNAck
		a.cumTSNAckSeen = true
	}

	htna := s.cumulativeTSNAck
	for _, g := range s.gapAckBlocks {
		for off := g.start; ; off++ {
			tsn := s.cumulativeTSNAck + uint32(off)
			// Gap-acked bytes are counted once, when the cumulative ack
			// point passes them in removeThrough.
			a.unacked.markAcked(tsn)
			if sna32GT(tsn, htna) {
				htna = tsn
			}
			if off == g.end {
				break
			}
		}
	}

	a.cc.maybeExitFastRecovery(htna)
	a.remoteWindowCredit = s.advertisedReceiverWindowCredit

	if a.recordMissingReports(htna) {
		a.cc.enterFastRecovery(htna)
	}

	pending := !a.dataQ.empty() || a.unacked.size() > 0
	a.cc.onCumAckAdvanced(uint32(ackedBytes), pending) //nolint:gosec

	a.checkShutdownProgress()

	return nil
}

// recordMissingReports increments the miss indicator of every unacked entry
// strictly below htna and not yet acked; entries that reach 3 misses are
// moved back to the front of the data queue for fast retransmit, RFC 4960
// §7.2.4.
func (a *Association) recordMissingReports(htna uint32) bool {
	triggered := false
	for tsn, e := range a.unacked.entries {
		if e.acked || !sna32LT(tsn, htna) {
			continue
		}
		e.missIndicator++
		if e.missIndicator >= 3 {
			a.log.Debugf("[%s] fast-retransmit tsn=%d", a.cfg.Name, tsn)
			a.dataQ.pushFront(e.chunkPayload)
			a.unacked.numBytes -= e.bytes()
			delete(a.unacked.entries, tsn)
			triggered = true
		}
	}

	return triggered
}
