// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAssociationPair(t *testing.T) (client, server *Association) {
	t.Helper()

	now := time.Unix(1700000000, 0)
	nowFunc := func() time.Time { return now }

	client = NewAssociation(Config{Name: "client", SourcePort: 5000, DestinationPort: 5000, nowFunc: nowFunc})
	server = NewAssociation(Config{Name: "server", SourcePort: 5000, DestinationPort: 5000, nowFunc: nowFunc})

	return client, server
}

// pump relays every queued outbound packet between a and b until both are
// quiet, simulating an always-delivering transport. It bounds the number of
// rounds so a protocol bug shows up as a test failure, not a hang.
func pump(t *testing.T, a, b *Association) {
	t.Helper()

	for round := 0; round < 64; round++ {
		progressed := false

		for {
			raw := a.ReadOutgoing()
			if raw == nil {
				break
			}
			progressed = true
			require.NoError(t, b.WriteIncoming(raw))
		}
		for {
			raw := b.ReadOutgoing()
			if raw == nil {
				break
			}
			progressed = true
			require.NoError(t, a.WriteIncoming(raw))
		}

		if !progressed {
			return
		}
	}

	t.Fatal("pump did not converge")
}

func establish(t *testing.T) (client, server *Association) {
	t.Helper()

	client, server = testAssociationPair(t)
	require.NoError(t, client.Associate())
	pump(t, client, server)

	require.Equal(t, StateEstablished, client.State())
	require.Equal(t, StateEstablished, server.State())

	return client, server
}

// TestAssociation_HandshakeConverges pins scenario S1: a four-way handshake
// between two associations reaches Established on both sides.
func TestAssociation_HandshakeConverges(t *testing.T) {
	client, server := establish(t)

	assert.Equal(t, client.myTag, server.peerTag)
	assert.Equal(t, server.myTag, client.peerTag)
	assert.NotZero(t, client.myTag)
	assert.NotZero(t, server.myTag)
}

// TestInitRequiresZeroTag pins Open Question decision 1: an INIT in a packet
// whose verification tag is non-zero, sent to an association in StateClosed,
// is not dropped by the packet-level tag check (which applies only outside
// StateClosed); handleInit's zero-tag check rejects it with an ABORT.
func TestInitRequiresZeroTag(t *testing.T) {
	_, server := testAssociationPair(t)

	init := &chunkInit{chunkInitCommon{
		initiateTag:                    777,
		advertisedReceiverWindowCredit: 1024,
		numOutboundStreams:             1,
		numInboundStreams:              1,
		initialTSN:                     1,
	}}
	pkt := &packet{sourcePort: 5000, destinationPort: 5000, verificationTag: 12345, chunks: []chunk{init}}
	raw, err := pkt.marshal()
	require.NoError(t, err)

	require.NoError(t, server.WriteIncoming(raw))

	// Server was Closed and has no tag of its own yet, so the tag-mismatch
	// drop in WriteIncoming does not apply (it only triggers once a.myTag is
	// established); the INIT-specific zero-tag check in handleInit must
	// reject it instead with an ABORT, never an INIT-ACK.
	assert.Equal(t, StateClosed, server.State())

	out := server.ReadOutgoing()
	require.NotNil(t, out)
	reply := &packet{}
	require.NoError(t, reply.unmarshal(out))
	require.Len(t, reply.chunks, 1)
	_, isAbort := reply.chunks[0].(*chunkAbort)
	assert.True(t, isAbort, "expected ABORT, not INIT-ACK, in reply to a non-zero-tag INIT")
}

func TestAssociation_WriteAndDeliverOrderedMessage(t *testing.T) {
	client, server := establish(t)

	var got []byte
	var gotStream uint16
	var gotPPID uint32
	server.cfg.OnMessage = func(streamID uint16, ppid uint32, unordered bool, payload []byte) {
		got = payload
		gotStream = streamID
		gotPPID = ppid
	}

	require.NoError(t, client.Write(3, false, 51, []byte("hello, association")))
	pump(t, client, server)

	assert.Equal(t, "hello, association", string(got))
	assert.Equal(t, uint16(3), gotStream)
	assert.Equal(t, uint32(51), gotPPID)
}

func TestAssociation_WriteFragmentsLargeMessage(t *testing.T) {
	client, server := testAssociationPair(t)
	client.mtu = 64
	server.mtu = 64
	require.NoError(t, client.Associate())
	pump(t, client, server)
	require.Equal(t, StateEstablished, client.State())

	var delivered []byte
	server.cfg.OnMessage = func(_ uint16, _ uint32, _ bool, payload []byte) {
		delivered = payload
	}

	payload := make([]byte, 500)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, client.Write(0, false, 0, payload))
	pump(t, client, server)

	assert.Equal(t, payload, delivered)
}

func TestAssociation_MonotonicTSN(t *testing.T) {
	client, server := establish(t)

	first := client.nextTSN
	require.NoError(t, client.Write(0, false, 0, []byte("a")))
	require.NoError(t, client.Write(0, false, 0, []byte("b")))
	require.NoError(t, client.Write(0, false, 0, []byte("c")))

	assert.True(t, sna32LT(first, client.nextTSN))
	pump(t, client, server)
}

func TestAssociation_HeartbeatRoundTrip(t *testing.T) {
	client, server := establish(t)

	require.NoError(t, client.Heartbeat())
	assert.True(t, client.heartbeatPending)

	pump(t, client, server)
	assert.False(t, client.heartbeatPending)
}

func TestAssociation_ShutdownSequence(t *testing.T) {
	client, server := establish(t)

	require.NoError(t, client.Shutdown())
	pump(t, client, server)

	assert.Equal(t, StateClosed, client.State())
	assert.Equal(t, StateClosed, server.State())
}

func TestAssociation_ShutdownWrongStateErrors(t *testing.T) {
	client, _ := testAssociationPair(t)
	err := client.Shutdown()
	assert.ErrorIs(t, err, ErrWrongState)
}

func TestAssociation_WriteWrongStateErrors(t *testing.T) {
	client, _ := testAssociationPair(t)
	err := client.Write(0, false, 0, []byte("x"))
	assert.ErrorIs(t, err, ErrWrongState)
}

func TestAssociation_AbortEmitsAbortChunk(t *testing.T) {
	client, server := establish(t)

	client.Abort(ErrorProtocolViolation, "host gave up")
	assert.Equal(t, StateClosed, client.State())

	raw := client.ReadOutgoing()
	require.NotNil(t, raw)
	require.NoError(t, server.WriteIncoming(raw))
	assert.Equal(t, StateClosed, server.State())
}

func TestAssociation_PeerAbortClosesAssociation(t *testing.T) {
	client, server := establish(t)

	var gotKind ErrorKind
	server.cfg.OnErrorOccurred = func(kind ErrorKind, _ error) { gotKind = kind }

	abort := newAbortChunk(causeProtocolViolation, "nope")
	pkt := &packet{sourcePort: 5000, destinationPort: 5000, verificationTag: server.myTag, chunks: []chunk{abort}}
	raw, err := pkt.marshal()
	require.NoError(t, err)

	require.NoError(t, server.WriteIncoming(raw))
	assert.Equal(t, StateClosed, server.State())
	assert.Equal(t, ErrorUnknown, gotKind)
	_ = client
}

func TestAssociation_TickRetransmitsInitUntilLimit(t *testing.T) {
	now := time.Unix(1700000000, 0)
	client := NewAssociation(Config{Name: "client", SourcePort: 5000, DestinationPort: 5000, nowFunc: func() time.Time { return now }})
	require.NoError(t, client.Associate())
	client.ReadOutgoing() // drain the initial INIT

	var failed bool
	client.cfg.OnErrorOccurred = func(kind ErrorKind, _ error) {
		if kind == ErrorTimeout {
			failed = true
		}
	}

	for i := 0; i < defaultMaxInitRetx+2 && !failed; i++ {
		now = now.Add(defaultRTOMax) // always past the current backoff deadline
		client.Tick(now)
		client.ReadOutgoing()
	}

	assert.True(t, failed)
	assert.Equal(t, StateClosed, client.State())
}
