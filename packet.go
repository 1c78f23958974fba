// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// castagnoliTable is the CRC32C table, computed once.
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli) //nolint:gochecknoglobals

// fourZeroes stands in for the checksum field while it is being computed.
var fourZeroes [4]byte //nolint:gochecknoglobals

// packetHeaderSize is the size in bytes of the common header, RFC 4960 §3.
const packetHeaderSize = 12

/*
packet represents an SCTP packet, RFC 4960 section 3: a common header
followed by zero or more chunks, each padded to a 4-byte boundary.

	 0                   1                   2                   3
	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|     Source Port Number       |     Destination Port Number    |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                      Verification Tag                         |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	|                           Checksum                            |
	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/
type packet struct {
	sourcePort      uint16
	destinationPort uint16
	verificationTag uint32
	chunks          []chunk
}

// unmarshal decodes raw into p. CRC32C is always verified; a mismatch or a
// malformed chunk sequence is reported as an error for the caller to decide
// whether to drop silently or ABORT (see Association.WriteIncoming).
func (p *packet) unmarshal(raw []byte) error { //nolint:cyclop
	if len(raw) < packetHeaderSize {
		return fmt.Errorf("%w: raw only %d bytes, %d is the minimum length", ErrPacketRawTooSmall, len(raw), packetHeaderSize)
	}

	theirChecksum := binary.LittleEndian.Uint32(raw[8:])
	ourChecksum := generatePacketChecksum(raw)
	if theirChecksum != ourChecksum {
		return fmt.Errorf("%w: theirs=%d ours=%d", ErrChecksumMismatch, theirChecksum, ourChecksum)
	}

	p.sourcePort = binary.BigEndian.Uint16(raw[0:])
	p.destinationPort = binary.BigEndian.Uint16(raw[2:])
	p.verificationTag = binary.BigEndian.Uint32(raw[4:])

	if p.sourcePort == 0 {
		return ErrSCTPPacketSourcePortZero
	}
	if p.destinationPort == 0 {
		return ErrSCTPPacketDestinationPortZero
	}

	offset := packetHeaderSize
	for {
		if offset == len(raw) {
			break
		} else if offset+chunkHeaderSize > len(raw) {
			return fmt.Errorf("%w: offset %d remaining %d", ErrParseSCTPChunkNotEnoughData, offset, len(raw))
		}

		var dataChunk chunk
		switch chunkType(raw[offset]) {
		case ctInit:
			dataChunk = &chunkInit{}
		case ctInitAck:
			dataChunk = &chunkInitAck{}
		case ctAbort:
			dataChunk = &chunkAbort{}
		case ctCookieEcho:
			dataChunk = &chunkCookieEcho{}
		case ctCookieAck:
			dataChunk = &chunkCookieAck{}
		case ctHeartbeat:
			dataChunk = &chunkHeartbeat{}
		case ctHeartbeatAck:
			dataChunk = &chunkHeartbeatAck{}
		case ctData:
			dataChunk = &chunkPayloadData{}
		case ctSack:
			dataChunk = &chunkSelectiveAck{}
		case ctShutdown:
			dataChunk = &chunkShutdown{}
		case ctShutdownAck:
			dataChunk = &chunkShutdownAck{}
		case ctShutdownComplete:
			dataChunk = &chunkShutdownComplete{}
		default:
			dataChunk = &chunkUnknown{}
		}

		if err := dataChunk.unmarshal(raw[offset:]); err != nil {
			return err
		}

		p.chunks = append(p.chunks, dataChunk)
		offset += chunkHeaderSize + dataChunk.valueLength() + getPadding(dataChunk.valueLength())
	}

	return nil
}

// marshal encodes p, stamping the CRC32C checksum into the header.
func (p *packet) marshal() ([]byte, error) {
	raw := make([]byte, packetHeaderSize)

	binary.BigEndian.PutUint16(raw[0:], p.sourcePort)
	binary.BigEndian.PutUint16(raw[2:], p.destinationPort)
	binary.BigEndian.PutUint32(raw[4:], p.verificationTag)

	for _, c := range p.chunks {
		chunkRaw, err := c.marshal()
		if err != nil {
			return nil, err
		}
		raw = append(raw, chunkRaw...) //nolint:makezero

		if padding := getPadding(len(raw)); padding != 0 {
			raw = append(raw, make([]byte, padding)...) //nolint:makezero
		}
	}

	binary.LittleEndian.PutUint32(raw[8:], generatePacketChecksum(raw))

	return raw, nil
}

// generatePacketChecksum computes CRC32C over raw with the checksum field
// (bytes 8..12) treated as zero. golang's crc32.Castagnoli table already
// reflects input/output, so the resulting value is written back
// little-endian per the RFC 4960 errata wire convention — see
// SPEC_FULL.md §9.4.
func generatePacketChecksum(raw []byte) (sum uint32) {
	sum = crc32.Update(sum, castagnoliTable, raw[0:8])
	sum = crc32.Update(sum, castagnoliTable, fourZeroes[:])
	sum = crc32.Update(sum, castagnoliTable, raw[12:])

	return sum
}

// isValidSctp fully validates raw: well-formed header, checksum, and chunk
// framing. It is the codec-level counterpart to the association's
// WriteIncoming drop path.
func isValidSctp(raw []byte) bool {
	p := &packet{}

	return p.unmarshal(raw) == nil
}

// String makes packet printable for debugging/logging.
func (p *packet) String() string {
	res := fmt.Sprintf("Packet:\n\tsourcePort: %d\n\tdestinationPort: %d\n\tverificationTag: %d\n",
		p.sourcePort, p.destinationPort, p.verificationTag)
	for i, c := range p.chunks {
		res += fmt.Sprintf("Chunk %d:\n %s", i, c)
	}

	return res
}
