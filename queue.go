// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import "time"

// controlQueue is a FIFO of chunks produced in reaction to inbound packets
// or user calls. SACK, SHUTDOWN, SHUTDOWN-ACK and HEARTBEAT-ACK use
// pushFront so they are emitted ahead of anything already queued for the
// same trySend pass, matching SPEC_FULL.md §5's "control chunks emitted
// before pending user-DATA" rule. Handshake chunks and ABORT do not pass
// through this queue: sendControlPacket emits them directly.
type controlQueue struct {
	chunks []chunk
}

func (q *controlQueue) push(c chunk) {
	q.chunks = append(q.chunks, c)
}

func (q *controlQueue) pushFront(c chunk) {
	q.chunks = append([]chunk{c}, q.chunks...)
}

func (q *controlQueue) empty() bool {
	return len(q.chunks) == 0
}

// pop removes and discards the first queued control chunk.
func (q *controlQueue) pop() {
	if len(q.chunks) == 0 {
		return
	}
	q.chunks = q.chunks[1:]
}

// popAll drains every queued control chunk in FIFO order.
func (q *controlQueue) popAll() []chunk {
	out := q.chunks
	q.chunks = nil

	return out
}

// dataQueue is the FIFO of user DATA chunks not yet handed to the peer.
type dataQueue struct {
	chunks []*chunkPayloadData
}

func (q *dataQueue) push(c *chunkPayloadData) {
	q.chunks = append(q.chunks, c)
}

// pushFront re-queues a chunk ahead of everything else, used for
// fast-retransmit and RTO-triggered retransmission.
func (q *dataQueue) pushFront(c *chunkPayloadData) {
	q.chunks = append([]*chunkPayloadData{c}, q.chunks...)
}

func (q *dataQueue) empty() bool {
	return len(q.chunks) == 0
}

func (q *dataQueue) peek() *chunkPayloadData {
	if len(q.chunks) == 0 {
		return nil
	}

	return q.chunks[0]
}

func (q *dataQueue) pop() {
	if len(q.chunks) == 0 {
		return
	}
	q.chunks = q.chunks[1:]
}

// unackedEntry tracks a DATA chunk that has been transmitted at least once
// but not yet acknowledged by a cumulative or gap SACK entry.
type unackedEntry struct {
	chunkPayload  *chunkPayloadData
	firstSentAt   time.Time
	nSent         int
	missIndicator int
	acked         bool
}

func (e *unackedEntry) bytes() int {
	return len(e.chunkPayload.userData)
}

// unackedQueue maps TSN to its in-flight bookkeeping entry, the teacher's
// inflightQueue generalized to a plain map since this core is
// single-threaded and needs no internal locking.
type unackedQueue struct {
	entries  map[uint32]*unackedEntry
	numBytes int
}

func newUnackedQueue() *unackedQueue {
	return &unackedQueue{entries: map[uint32]*unackedEntry{}}
}

func (q *unackedQueue) add(c *chunkPayloadData, now time.Time) {
	e := &unackedEntry{chunkPayload: c, firstSentAt: now, nSent: 1}
	q.entries[c.tsn] = e
	q.numBytes += e.bytes()
}

// markAcked marks tsn acked and returns the bytes freed (0 if already
// acked or unknown).
func (q *unackedQueue) markAcked(tsn uint32) int {
	e, ok := q.entries[tsn]
	if !ok || e.acked {
		return 0
	}
	e.acked = true

	return e.bytes()
}

// removeThrough deletes every entry with TSN <= cumAck (the cumulative ack
// point has already passed them) and returns total bytes freed.
func (q *unackedQueue) removeThrough(cumAck uint32) int {
	freed := 0
	for tsn, e := range q.entries {
		if sna32LTE(tsn, cumAck) {
			freed += e.bytes()
			q.numBytes -= e.bytes()
			delete(q.entries, tsn)
		}
	}

	return freed
}

func (q *unackedQueue) size() int {
	return len(q.entries)
}
