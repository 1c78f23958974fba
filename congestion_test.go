// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCongestionController_InitialWindow(t *testing.T) {
	cc := newCongestionController(1400)
	cc.reset(1024 * 1024)
	assert.Equal(t, min32(4*1400, max32(2*1400, 4380)), cc.cwnd)
	assert.Equal(t, uint32(1024*1024), cc.ssthresh)
}

func TestCongestionController_SlowStartGrowth(t *testing.T) {
	cc := newCongestionController(1000)
	cc.reset(100000)
	before := cc.cwnd
	cc.onCumAckAdvanced(500, true)
	assert.Greater(t, cc.cwnd, before)
	assert.LessOrEqual(t, cc.cwnd, before+500)
}

func TestCongestionController_NoGrowthWhenNothingPending(t *testing.T) {
	cc := newCongestionController(1000)
	cc.reset(100000)
	before := cc.cwnd
	cc.onCumAckAdvanced(500, false)
	assert.Equal(t, before, cc.cwnd)
}

func TestCongestionController_CongestionAvoidance(t *testing.T) {
	cc := newCongestionController(1000)
	cc.reset(100000)
	cc.ssthresh = 1000
	cc.cwnd = 2000 // cwnd > ssthresh: congestion avoidance branch
	cc.onCumAckAdvanced(2000, true)
	assert.Equal(t, uint32(0), cc.partialBytesAcked)
	assert.Equal(t, uint32(3000), cc.cwnd)
}

func TestCongestionController_OnRTO(t *testing.T) {
	cc := newCongestionController(1000)
	cc.reset(100000)
	cc.cwnd = 8000
	cc.onRTO()
	assert.Equal(t, uint32(4000), cc.ssthresh)
	assert.Equal(t, uint32(1000), cc.cwnd)
}

func TestCongestionController_FastRecoveryEntryAndExit(t *testing.T) {
	cc := newCongestionController(1000)
	cc.reset(100000)
	cc.cwnd = 8000

	cc.enterFastRecovery(500)
	assert.True(t, cc.inFastRecovery)
	assert.Equal(t, cc.ssthresh, cc.cwnd)

	cc.maybeExitFastRecovery(100)
	assert.True(t, cc.inFastRecovery, "must stay in fast recovery until the exit point is acked")

	cc.maybeExitFastRecovery(500)
	assert.False(t, cc.inFastRecovery)
}
