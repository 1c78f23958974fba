// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragment(tsn uint32, ssn uint16, unordered, begin, end bool, data string) *chunkPayloadData {
	return &chunkPayloadData{
		tsn:                  tsn,
		streamIdentifier:     0,
		streamSequenceNumber: ssn,
		ppid:                 1,
		unordered:            unordered,
		beginningFragment:    begin,
		endingFragment:       end,
		userData:             []byte(data),
	}
}

func TestStreamReassembly_OrderedSingleFragment(t *testing.T) {
	r := newStreamReassembly()
	delivered, err := r.handleData(fragment(1, 0, false, true, true, "hello"))
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	assert.Equal(t, "hello", string(delivered[0].payload))
}

func TestStreamReassembly_OrderedHeldUntilInTurn(t *testing.T) {
	r := newStreamReassembly()

	// SSN 1 arrives complete before SSN 0: must not be delivered yet.
	delivered, err := r.handleData(fragment(2, 1, false, true, true, "second"))
	require.NoError(t, err)
	assert.Empty(t, delivered)

	delivered, err = r.handleData(fragment(1, 0, false, true, true, "first"))
	require.NoError(t, err)
	require.Len(t, delivered, 2)
	assert.Equal(t, "first", string(delivered[0].payload))
	assert.Equal(t, "second", string(delivered[1].payload))
}

func TestStreamReassembly_OrderedFragmentsArbitraryPermutation(t *testing.T) {
	// Message split into 4 fragments, TSNs 10..13, delivered out of order.
	frags := []*chunkPayloadData{
		fragment(10, 0, false, true, false, "AA"),
		fragment(11, 0, false, false, false, "BB"),
		fragment(12, 0, false, false, false, "CC"),
		fragment(13, 0, false, false, true, "DD"),
	}

	perms := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{1, 3, 0, 2},
		{2, 0, 3, 1},
	}

	for _, perm := range perms {
		r := newStreamReassembly()
		var delivered []deliveredMessage
		for _, idx := range perm {
			got, err := r.handleData(frags[idx])
			require.NoError(t, err)
			delivered = append(delivered, got...)
		}
		require.Len(t, delivered, 1)
		assert.Equal(t, "AABBCCDD", string(delivered[0].payload))
	}
}

func TestStreamReassembly_Unordered_BypassesSSN(t *testing.T) {
	r := newStreamReassembly()

	delivered, err := r.handleData(fragment(5, 0, true, true, true, "u1"))
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	assert.Equal(t, "u1", string(delivered[0].payload))

	// A second unordered message delivers immediately too, regardless of SSN.
	delivered, err = r.handleData(fragment(6, 0, true, true, true, "u2"))
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	assert.Equal(t, "u2", string(delivered[0].payload))
}

func TestStreamReassembly_UnorderedFragmented(t *testing.T) {
	r := newStreamReassembly()

	delivered, err := r.handleData(fragment(1, 0, true, true, false, "A"))
	require.NoError(t, err)
	assert.Empty(t, delivered)

	delivered, err = r.handleData(fragment(2, 0, true, false, true, "B"))
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	assert.Equal(t, "AB", string(delivered[0].payload))
}

func TestStreamReassembly_DuplicateFragmentIgnored(t *testing.T) {
	r := newStreamReassembly()

	_, err := r.handleData(fragment(1, 0, false, true, false, "A"))
	require.NoError(t, err)

	// Retransmitted duplicate of the same TSN before completion.
	delivered, err := r.handleData(fragment(1, 0, false, true, false, "A"))
	require.NoError(t, err)
	assert.Empty(t, delivered)

	delivered, err = r.handleData(fragment(2, 0, false, false, true, "B"))
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	assert.Equal(t, "AB", string(delivered[0].payload))
}

func TestPendingMessage_ContradictoryBeginErrors(t *testing.T) {
	m := newPendingMessage()
	_, _, err := m.addFragment(fragment(1, 0, false, true, false, "A"))
	require.NoError(t, err)

	_, _, err = m.addFragment(fragment(5, 0, false, true, false, "A2"))
	assert.ErrorIs(t, err, ErrProtocolViolation)
}
