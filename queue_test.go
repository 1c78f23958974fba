// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestControlQueue_FIFOAndPushFront(t *testing.T) {
	q := &controlQueue{}
	assert.True(t, q.empty())

	q.push(&chunkCookieAck{})
	q.push(&chunkShutdownAck{})
	q.pushFront(&chunkHeartbeatAck{})

	drained := q.popAll()
	assert.Len(t, drained, 3)
	_, ok := drained[0].(*chunkHeartbeatAck)
	assert.True(t, ok)
}

func TestControlQueue_Pop(t *testing.T) {
	q := &controlQueue{}
	q.push(&chunkCookieAck{})
	q.push(&chunkShutdownAck{})
	q.pop()
	assert.Len(t, q.chunks, 1)
	_, ok := q.chunks[0].(*chunkShutdownAck)
	assert.True(t, ok)
}

func TestDataQueue_PushPeekPopPushFront(t *testing.T) {
	q := &dataQueue{}
	assert.Nil(t, q.peek())

	a := &chunkPayloadData{tsn: 1}
	b := &chunkPayloadData{tsn: 2}
	q.push(a)
	q.push(b)

	assert.Equal(t, a, q.peek())
	q.pop()
	assert.Equal(t, b, q.peek())

	c := &chunkPayloadData{tsn: 0}
	q.pushFront(c)
	assert.Equal(t, c, q.peek())
}

func TestUnackedQueue_AddMarkRemove(t *testing.T) {
	q := newUnackedQueue()
	now := time.Unix(0, 0)

	q.add(&chunkPayloadData{tsn: 1, userData: []byte("abc")}, now)
	q.add(&chunkPayloadData{tsn: 2, userData: []byte("de")}, now)
	assert.Equal(t, 5, q.numBytes)
	assert.Equal(t, 2, q.size())

	freed := q.markAcked(2)
	assert.Equal(t, 2, freed)
	assert.Equal(t, 0, q.markAcked(2), "marking an already-acked TSN frees nothing")

	freed = q.removeThrough(1)
	assert.Equal(t, 3, freed)
	assert.Equal(t, 1, q.size(), "TSN 2 remains, only marked acked, not removed")
}
