// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import "time"

// Tick drives every retransmission timer. The teacher arms a goroutine per
// timer (time.AfterFunc) under rtoManager; this core owns no goroutine, so
// the host is expected to call Tick periodically (a few times per RTO) and
// every deadline is just a time.Time compared against now, RFC 4960 §6.3/§8.3.
func (a *Association) Tick(now time.Time) {
	a.now = func() time.Time { return now }

	if a.t1InitArmed && !now.Before(a.t1InitDeadline) {
		a.onT1InitExpire()
	}
	if a.t1CookieArmed && !now.Before(a.t1CookieDeadline) {
		a.onT1CookieExpire()
	}
	if a.t2ShutdownArmed && !now.Before(a.t2ShutdownDeadline) {
		a.onT2ShutdownExpire()
	}
	if a.t3RTXArmed && !now.Before(a.t3RTXDeadline) {
		a.onT3RTXExpire()
	}

	a.trySend()

	a.now = a.cfg.nowFunc
}

// backoff doubles d, capped at defaultRTOMax, RFC 4960 §6.3.3 E2.
func backoff(d time.Duration) time.Duration {
	d *= 2
	if d > defaultRTOMax {
		d = defaultRTOMax
	}

	return d
}

func (a *Association) armT1Init() {
	a.t1InitArmed = true
	a.t1InitAttempts = 0
	a.t1InitRTO = defaultInitRTO
	a.t1InitDeadline = a.now().Add(a.t1InitRTO)
}

func (a *Association) disarmT1Init() {
	a.t1InitArmed = false
}

// onT1InitExpire retransmits the INIT, RFC 4960 §5.1. After
// defaultMaxInitRetx unacknowledged attempts the association aborts.
func (a *Association) onT1InitExpire() {
	a.t1InitAttempts++
	if a.t1InitAttempts > defaultMaxInitRetx {
		a.t1InitArmed = false
		a.fail(ErrorTimeout, ErrRetransmitLimitReached)

		return
	}

	a.t1InitRTO = backoff(a.t1InitRTO)
	a.t1InitDeadline = a.now().Add(a.t1InitRTO)
	a.log.Debugf("[%s] T1-init expired, retransmit %d", a.cfg.Name, a.t1InitAttempts)
	a.sendControlPacket(0, a.initChunk)
}

func (a *Association) armT1Cookie() {
	a.t1CookieArmed = true
	a.t1CookieAttempts = 0
	a.t1CookieRTO = defaultInitRTO
	a.t1CookieDeadline = a.now().Add(a.t1CookieRTO)
}

func (a *Association) disarmT1Cookie() {
	a.t1CookieArmed = false
}

// onT1CookieExpire retransmits the COOKIE-ECHO, RFC 4960 §5.1.
func (a *Association) onT1CookieExpire() {
	a.t1CookieAttempts++
	if a.t1CookieAttempts > defaultMaxInitRetx {
		a.t1CookieArmed = false
		a.fail(ErrorTimeout, ErrRetransmitLimitReached)

		return
	}

	a.t1CookieRTO = backoff(a.t1CookieRTO)
	a.t1CookieDeadline = a.now().Add(a.t1CookieRTO)
	a.log.Debugf("[%s] T1-cookie expired, retransmit %d", a.cfg.Name, a.t1CookieAttempts)
	a.sendControlPacket(a.peerTag, a.cookieEchoChunk)
}

func (a *Association) armT2Shutdown() {
	a.t2ShutdownArmed = true
	a.t2ShutdownAttempts = 0
	a.t2ShutdownRTO = a.rto
	a.t2ShutdownDeadline = a.now().Add(a.t2ShutdownRTO)
}

func (a *Association) disarmT2Shutdown() {
	a.t2ShutdownArmed = false
}

// onT2ShutdownExpire re-sends SHUTDOWN or SHUTDOWN-ACK depending on which
// sub-state the association is in, RFC 4960 §9.2.
func (a *Association) onT2ShutdownExpire() {
	a.t2ShutdownAttempts++
	if a.t2ShutdownAttempts > defaultMaxInitRetx {
		a.t2ShutdownArmed = false
		a.fail(ErrorTimeout, ErrRetransmitLimitReached)

		return
	}

	a.t2ShutdownRTO = backoff(a.t2ShutdownRTO)
	a.t2ShutdownDeadline = a.now().Add(a.t2ShutdownRTO)
	a.log.Debugf("[%s] T2-shutdown expired, retransmit %d", a.cfg.Name, a.t2ShutdownAttempts)

	switch a.state {
	case StateShutdownSent:
		a.sendControlPacket(a.peerTag, &chunkShutdown{cumulativeTSNAck: a.lastRcvdTSN})
	case StateShutdownAckSent:
		a.sendControlPacket(a.peerTag, &chunkShutdownAck{})
	}
}

func (a *Association) armT3RTX() {
	if a.t3RTXArmed {
		return
	}
	a.t3RTXArmed = true
	a.t3RTXDeadline = a.now().Add(a.rto)
}

func (a *Association) disarmT3RTX() {
	a.t3RTXArmed = false
}

// onT3RTXExpire is the RFC 4960 §6.3.3 retransmission-timeout reaction:
// every unacked DATA chunk goes back to the front of the send queue,
// ssthresh halves, cwnd resets to one MTU, and the backoff doubles.
func (a *Association) onT3RTXExpire() {
	a.log.Debugf("[%s] T3-rtx expired, %d chunk(s) in flight", a.cfg.Name, a.unacked.size())

	a.cc.onRTO()
	a.rto = backoff(a.rto)

	pending := make([]*chunkPayloadData, 0, a.unacked.size())
	for _, e := range a.unacked.entries {
		pending = append(pending, e.chunkPayload)
	}
	sortDataChunksByTSN(pending)

	for i := len(pending) - 1; i >= 0; i-- {
		a.dataQ.pushFront(pending[i])
	}
	a.unacked = newUnackedQueue()

	a.t3RTXArmed = false
}

func (a *Association) disarmAllTimers() {
	a.t1InitArmed = false
	a.t1CookieArmed = false
	a.t2ShutdownArmed = false
	a.t3RTXArmed = false
	a.delayedSackArmed = false
	a.sackImmediate = false
}

func sortDataChunksByTSN(chunks []*chunkPayloadData) {
	for i := 1; i < len(chunks); i++ {
		for j := i; j > 0 && sna32LT(chunks[j].tsn, chunks[j-1].tsn); j-- {
			chunks[j], chunks[j-1] = chunks[j-1], chunks[j]
		}
	}
}
