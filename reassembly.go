// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import "sort"

// pendingMessage accumulates the fragments of one in-flight DATA message,
// keyed by the begin/end B/E flags and TSN contiguity, RFC 4960 §6.9.
type pendingMessage struct {
	fragments map[uint32][]byte
	ppid      uint32
	beginTSN  uint32
	endTSN    uint32
	hasBegin  bool
	hasEnd    bool
}

func newPendingMessage() *pendingMessage {
	return &pendingMessage{fragments: map[uint32][]byte{}}
}

// addFragment inserts one DATA chunk's payload. It returns the completed,
// concatenated message (and true) once every TSN in [beginTSN,endTSN] has
// arrived, or an error if the accumulated flags are contradictory.
func (m *pendingMessage) addFragment(c *chunkPayloadData) ([]byte, bool, error) {
	if _, dup := m.fragments[c.tsn]; dup {
		return nil, false, nil // retransmitted duplicate, already counted
	}

	if c.beginningFragment {
		if m.hasBegin && m.beginTSN != c.tsn {
			return nil, false, ErrProtocolViolation
		}
		m.hasBegin = true
		m.beginTSN = c.tsn
		m.ppid = c.ppid
	}
	if c.endingFragment {
		if m.hasEnd && m.endTSN != c.tsn {
			return nil, false, ErrProtocolViolation
		}
		m.hasEnd = true
		m.endTSN = c.tsn
	}

	m.fragments[c.tsn] = c.userData

	if !m.hasBegin || !m.hasEnd {
		return nil, false, nil
	}
	if sna32GT(m.beginTSN, m.endTSN) {
		return nil, false, ErrProtocolViolation
	}

	tsns := make([]uint32, 0, len(m.fragments))
	for tsn := range m.fragments {
		if sna32LTE(m.beginTSN, tsn) && sna32LTE(tsn, m.endTSN) {
			tsns = append(tsns, tsn)
		}
	}
	sort.Slice(tsns, func(i, j int) bool { return sna32LT(tsns[i], tsns[j]) })

	want := m.endTSN - m.beginTSN + 1
	if uint32(len(tsns)) != want { //nolint:gosec
		return nil, false, nil // still waiting on a gap
	}

	payload := make([]byte, 0, len(m.fragments)*avgChunkSize)
	for _, tsn := range tsns {
		payload = append(payload, m.fragments[tsn]...)
	}

	return payload, true, nil
}

// streamReassembly is the per-stream reordering state for C6: ordered
// messages are held until delivered strictly in SSN order; unordered
// messages bypass SSN ordering entirely, per SPEC_FULL.md §4.6.
type streamReassembly struct {
	expectedSSN     uint16
	orderedPending  map[uint16]*pendingMessage // in-progress, keyed by SSN
	orderedComplete map[uint16]deliveredMessage // complete but not yet in SSN turn
	unorderedActive *pendingMessage             // at most one in-flight unordered message at a time
}

func newStreamReassembly() *streamReassembly {
	return &streamReassembly{
		orderedPending:  map[uint16]*pendingMessage{},
		orderedComplete: map[uint16]deliveredMessage{},
	}
}

// deliveredMessage is one complete message ready to hand to the host.
type deliveredMessage struct {
	ppid    uint32
	payload []byte
}

// handleData feeds one inbound DATA chunk into the reassembly state,
// returning every message that becomes deliverable as a result: the newly
// completed unordered message (if any), followed by any newly-eligible
// ordered messages in SSN order.
func (r *streamReassembly) handleData(c *chunkPayloadData) ([]deliveredMessage, error) {
	if c.unordered {
		return r.handleUnordered(c)
	}

	return r.handleOrdered(c)
}

func (r *streamReassembly) handleUnordered(c *chunkPayloadData) ([]deliveredMessage, error) {
	if c.beginningFragment && c.endingFragment {
		return []deliveredMessage{{ppid: c.ppid, payload: append([]byte(nil), c.userData...)}}, nil
	}

	if r.unorderedActive == nil {
		r.unorderedActive = newPendingMessage()
	}

	payload, done, err := r.unorderedActive.addFragment(c)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, nil
	}

	r.unorderedActive = nil

	return []deliveredMessage{{ppid: c.ppid, payload: payload}}, nil
}

func (r *streamReassembly) handleOrdered(c *chunkPayloadData) ([]deliveredMessage, error) {
	if c.beginningFragment && c.endingFragment {
		r.orderedComplete[c.streamSequenceNumber] = deliveredMessage{
			ppid:    c.ppid,
			payload: append([]byte(nil), c.userData...),
		}

		return r.drainOrdered(), nil
	}

	msg, ok := r.orderedPending[c.streamSequenceNumber]
	if !ok {
		msg = newPendingMessage()
		r.orderedPending[c.streamSequenceNumber] = msg
	}

	payload, done, err := msg.addFragment(c)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, nil
	}

	delete(r.orderedPending, c.streamSequenceNumber)
	r.orderedComplete[c.streamSequenceNumber] = deliveredMessage{ppid: msg.ppid, payload: payload}

	return r.drainOrdered(), nil
}

// drainOrdered delivers expectedSSN, expectedSSN+1, ... for as long as a
// complete message is already buffered, advancing expectedSSN each time.
func (r *streamReassembly) drainOrdered() []deliveredMessage {
	var out []deliveredMessage
	for {
		msg, ok := r.orderedComplete[r.expectedSSN]
		if !ok {
			break
		}

		out = append(out, msg)
		delete(r.orderedComplete, r.expectedSSN)
		r.expectedSSN++
	}

	return out
}
