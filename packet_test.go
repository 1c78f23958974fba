// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putChecksum(raw []byte, sum uint32) {
	binary.LittleEndian.PutUint32(raw[8:], sum)
}

func testCookieAckPacket() *packet {
	return &packet{
		sourcePort:      1,
		destinationPort: 2,
		verificationTag: 3,
		chunks:          []chunk{&chunkCookieAck{}},
	}
}

func TestPacket_MarshalUnmarshalRoundTrip(t *testing.T) {
	pkt := &packet{
		sourcePort:      5000,
		destinationPort: 5000,
		verificationTag: 0xdeadbeef,
		chunks: []chunk{
			&chunkPayloadData{
				tsn:               42,
				streamIdentifier:  1,
				ppid:              53,
				beginningFragment: true,
				endingFragment:    true,
				userData:          []byte("hello world"),
			},
		},
	}

	raw, err := pkt.marshal()
	require.NoError(t, err)

	got := &packet{}
	require.NoError(t, got.unmarshal(raw))

	assert.Equal(t, pkt.sourcePort, got.sourcePort)
	assert.Equal(t, pkt.destinationPort, got.destinationPort)
	assert.Equal(t, pkt.verificationTag, got.verificationTag)
	require.Len(t, got.chunks, 1)
	data, ok := got.chunks[0].(*chunkPayloadData)
	require.True(t, ok)
	assert.Equal(t, []byte("hello world"), data.userData)
}

func TestPacket_ChecksumBitFlipInvalidates(t *testing.T) {
	raw, err := testCookieAckPacket().marshal()
	require.NoError(t, err)

	for i := range raw {
		flipped := append([]byte(nil), raw...)
		flipped[i] ^= 0xff

		p := &packet{}
		err := p.unmarshal(flipped)
		// The computed CRC treats bytes 8..12 as zero, so flipping a byte of
		// the checksum field changes only the stored value and is caught
		// like any other byte.
		assert.ErrorIsf(t, err, ErrChecksumMismatch, "byte %d not caught", i)
	}
}

func TestPacket_UnmarshalTooSmall(t *testing.T) {
	p := &packet{}
	err := p.unmarshal(make([]byte, packetHeaderSize-1))
	assert.ErrorIs(t, err, ErrPacketRawTooSmall)
}

func TestPacket_UnmarshalUnknownChunkIsIgnored(t *testing.T) {
	pkt := &packet{
		sourcePort:      1,
		destinationPort: 2,
		verificationTag: 3,
		chunks: []chunk{
			&chunkUnknown{typ: chunkType(200), length: chunkHeaderSize},
			&chunkCookieAck{},
		},
	}

	// chunkUnknown refuses to marshal itself (this core never emits one), so
	// build the raw packet by hand: an unrecognized chunk type followed by a
	// real COOKIE-ACK.
	raw := make([]byte, packetHeaderSize)
	unknownChunk := []byte{200, 0, 0, 4}
	ackChunk, err := (&chunkCookieAck{}).marshal()
	require.NoError(t, err)
	raw = append(raw, unknownChunk...)
	raw = append(raw, ackChunk...)
	putChecksum(raw, generatePacketChecksum(raw))

	got := &packet{}
	require.NoError(t, got.unmarshal(raw))
	require.Len(t, got.chunks, 2)
	_, isUnknown := got.chunks[0].(*chunkUnknown)
	assert.True(t, isUnknown)
	_, isAck := got.chunks[1].(*chunkCookieAck)
	assert.True(t, isAck)
	assert.Equal(t, pkt.chunks[1], got.chunks[1])
}

func TestPacket_UnmarshalMalformedUnknownChunkErrors(t *testing.T) {
	raw := make([]byte, packetHeaderSize)
	raw = append(raw, 200, 0, 0, 2) // declared length 2 < chunk header size
	putChecksum(raw, generatePacketChecksum(raw))

	p := &packet{}
	err := p.unmarshal(raw)
	assert.ErrorIs(t, err, ErrChunkMalformed)
}

func TestIsValidSctp(t *testing.T) {
	raw, err := testCookieAckPacket().marshal()
	require.NoError(t, err)
	assert.True(t, isValidSctp(raw))
	assert.False(t, isValidSctp(raw[:4]))
}
