// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"fmt"
)

const sackChunkFixedLength = 12 // cumTSNAck, a_rwnd, numGapAckBlocks, numDupTSNs
const gapAckBlockLength = 4

// gapAckBlock is one {start,end} entry, offsets from the cumulative TSN ack,
// RFC 4960 §3.3.4.
type gapAckBlock struct {
	start uint16
	end   uint16
}

// chunkSelectiveAck is the SACK chunk (type 3).
type chunkSelectiveAck struct {
	cumulativeTSNAck               uint32
	advertisedReceiverWindowCredit uint32
	gapAckBlocks                   []gapAckBlock
	duplicateTSN                   []uint32
}

func (s *chunkSelectiveAck) unmarshal(raw []byte) error { //nolint:cyclop
	if len(raw) < chunkHeaderSize {
		return fmt.Errorf("%w: chunk header needs %d bytes", ErrChunkMalformed, chunkHeaderSize)
	}
	length := int(binary.BigEndian.Uint16(raw[2:]))
	if length < chunkHeaderSize+sackChunkFixedLength || length > len(raw) {
		return fmt.Errorf("%w: SACK length %d out of bounds (have %d)", ErrChunkMalformed, length, len(raw))
	}

	value := raw[chunkHeaderSize:length]
	s.cumulativeTSNAck = binary.BigEndian.Uint32(value[0:])
	s.advertisedReceiverWindowCredit = binary.BigEndian.Uint32(value[4:])
	numGapAckBlocks := int(binary.BigEndian.Uint16(value[8:]))
	numDupTSNs := int(binary.BigEndian.Uint16(value[10:]))

	offset := sackChunkFixedLength
	need := offset + numGapAckBlocks*gapAckBlockLength + numDupTSNs*4
	if need > len(value) {
		return fmt.Errorf("%w: SACK declares more blocks than fit (need %d have %d)", ErrChunkMalformed, need, len(value))
	}

	s.gapAckBlocks = make([]gapAckBlock, numGapAckBlocks)
	for i := 0; i < numGapAckBlocks; i++ {
		s.gapAckBlocks[i] = gapAckBlock{
			start: binary.BigEndian.Uint16(value[offset:]),
			end:   binary.BigEndian.Uint16(value[offset+2:]),
		}
		offset += gapAckBlockLength
	}

	s.duplicateTSN = make([]uint32, numDupTSNs)
	for i := 0; i < numDupTSNs; i++ {
		s.duplicateTSN[i] = binary.BigEndian.Uint32(value[offset:])
		offset += 4
	}

	return nil
}

func (s *chunkSelectiveAck) marshal() ([]byte, error) {
	length := chunkHeaderSize + sackChunkFixedLength + len(s.gapAckBlocks)*gapAckBlockLength + len(s.duplicateTSN)*4
	raw := make([]byte, length)
	raw[0] = uint8(ctSack)
	binary.BigEndian.PutUint16(raw[2:], uint16(length)) //nolint:gosec

	binary.BigEndian.PutUint32(raw[4:], s.cumulativeTSNAck)
	binary.BigEndian.PutUint32(raw[8:], s.advertisedReceiverWindowCredit)
	binary.BigEndian.PutUint16(raw[12:], uint16(len(s.gapAckBlocks))) //nolint:gosec
	binary.BigEndian.PutUint16(raw[14:], uint16(len(s.duplicateTSN))) //nolint:gosec

	offset := chunkHeaderSize + sackChunkFixedLength
	for _, g := range s.gapAckBlocks {
		binary.BigEndian.PutUint16(raw[offset:], g.start)
		binary.BigEndian.PutUint16(raw[offset+2:], g.end)
		offset += gapAckBlockLength
	}
	for _, d := range s.duplicateTSN {
		binary.BigEndian.PutUint32(raw[offset:], d)
		offset += 4
	}

	return raw, nil
}

func (s *chunkSelectiveAck) valueLength() int {
	return sackChunkFixedLength + len(s.gapAckBlocks)*gapAckBlockLength + len(s.duplicateTSN)*4
}

func (s *chunkSelectiveAck) String() string {
	return fmt.Sprintf("SACK cumTSNAck=%d a_rwnd=%d gapBlocks=%d dupTSN=%d\n",
		s.cumulativeTSNAck, s.advertisedReceiverWindowCredit, len(s.gapAckBlocks), len(s.duplicateTSN))
}
