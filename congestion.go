// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

// congestionController implements RFC 4960 §7.2 slow-start / congestion
// avoidance / fast-retransmit bookkeeping for a single-homed association.
type congestionController struct {
	mtu                  uint32
	cwnd                 uint32
	ssthresh             uint32
	partialBytesAcked    uint32
	inFastRecovery       bool
	fastRecoverExitPoint uint32
}

func newCongestionController(mtu uint32) *congestionController {
	c := &congestionController{mtu: mtu}
	c.reset(0)

	return c
}

// reset (re)establishes the initial window after INIT/INIT-ACK exchange,
// RFC 4960 §7.2.1: cwnd = min(4*mtu, max(2*mtu, 4380)); ssthresh = rwnd.
func (c *congestionController) reset(rwnd uint32) {
	c.cwnd = min32(4*c.mtu, max32(2*c.mtu, 4380))
	c.ssthresh = rwnd
	c.partialBytesAcked = 0
	c.inFastRecovery = false
	c.fastRecoverExitPoint = 0
}

// onCumAckAdvanced applies slow-start or congestion-avoidance growth after a
// SACK has advanced the cumulative TSN ack point by ackedBytes. pending
// reports whether any DATA is still queued or in flight; growth is skipped
// otherwise (the teacher's pendingQueue.size() > 0 guard looks at queued
// data only).
func (c *congestionController) onCumAckAdvanced(ackedBytes uint32, pending bool) {
	if !pending {
		return
	}

	if c.cwnd <= c.ssthresh {
		if !c.inFastRecovery {
			c.cwnd += min32(ackedBytes, c.mtu)
		}

		return
	}

	c.partialBytesAcked += ackedBytes
	if c.partialBytesAcked >= c.cwnd {
		c.partialBytesAcked -= c.cwnd
		c.cwnd += c.mtu
	}
}

// onRTO applies RFC 4960 §7.2.3's retransmit-timeout reaction.
func (c *congestionController) onRTO() {
	c.ssthresh = max32(c.cwnd/2, 4*c.mtu)
	c.cwnd = c.mtu
	c.partialBytesAcked = 0
}

// enterFastRecovery applies RFC 4960 §7.2.4 on the third miss indication.
func (c *congestionController) enterFastRecovery(htna uint32) {
	if c.inFastRecovery {
		return
	}
	c.inFastRecovery = true
	c.fastRecoverExitPoint = htna
	c.ssthresh = max32(c.cwnd/2, 4*c.mtu)
	c.cwnd = c.ssthresh
	c.partialBytesAcked = 0
}

func (c *congestionController) maybeExitFastRecovery(ackedTSN uint32) {
	if c.inFastRecovery && ackedTSN == c.fastRecoverExitPoint {
		c.inFastRecovery = false
	}
}
