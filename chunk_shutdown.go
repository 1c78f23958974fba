// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"fmt"
)

// chunkShutdown is the SHUTDOWN chunk (type 7), RFC 4960 §3.3.8.
type chunkShutdown struct {
	cumulativeTSNAck uint32
}

func (s *chunkShutdown) unmarshal(raw []byte) error {
	if len(raw) < chunkHeaderSize+4 {
		return fmt.Errorf("%w: SHUTDOWN needs %d bytes", ErrChunkMalformed, chunkHeaderSize+4)
	}
	length := int(binary.BigEndian.Uint16(raw[2:]))
	if length < chunkHeaderSize+4 || length > len(raw) {
		return fmt.Errorf("%w: SHUTDOWN length %d out of bounds (have %d)", ErrChunkMalformed, length, len(raw))
	}
	s.cumulativeTSNAck = binary.BigEndian.Uint32(raw[chunkHeaderSize:])

	return nil
}

func (s *chunkShutdown) marshal() ([]byte, error) {
	raw := make([]byte, chunkHeaderSize+4)
	raw[0] = uint8(ctShutdown)
	binary.BigEndian.PutUint16(raw[2:], uint16(len(raw))) //nolint:gosec
	binary.BigEndian.PutUint32(raw[chunkHeaderSize:], s.cumulativeTSNAck)

	return raw, nil
}

func (s *chunkShutdown) valueLength() int { return 4 }

func (s *chunkShutdown) String() string {
	return fmt.Sprintf("SHUTDOWN cumTSNAck=%d\n", s.cumulativeTSNAck)
}

// chunkShutdownAck is the SHUTDOWN-ACK chunk (type 8): no value.
type chunkShutdownAck struct{}

func (s *chunkShutdownAck) unmarshal(raw []byte) error {
	if len(raw) < chunkHeaderSize {
		return fmt.Errorf("%w: chunk header needs %d bytes", ErrChunkMalformed, chunkHeaderSize)
	}

	return nil
}

func (s *chunkShutdownAck) marshal() ([]byte, error) {
	raw := make([]byte, chunkHeaderSize)
	raw[0] = uint8(ctShutdownAck)
	binary.BigEndian.PutUint16(raw[2:], chunkHeaderSize)

	return raw, nil
}

func (s *chunkShutdownAck) valueLength() int { return 0 }
func (s *chunkShutdownAck) String() string   { return "SHUTDOWN-ACK\n" }

// chunkShutdownComplete is the SHUTDOWN-COMPLETE chunk (type 14): no value
// (the T-bit variant used when no TCB exists is not implemented, consistent
// with this core never needing to reply to an association it never formed).
type chunkShutdownComplete struct{}

func (s *chunkShutdownComplete) unmarshal(raw []byte) error {
	if len(raw) < chunkHeaderSize {
		return fmt.Errorf("%w: chunk header needs %d bytes", ErrChunkMalformed, chunkHeaderSize)
	}

	return nil
}

func (s *chunkShutdownComplete) marshal() ([]byte, error) {
	raw := make([]byte, chunkHeaderSize)
	raw[0] = uint8(ctShutdownComplete)
	binary.BigEndian.PutUint16(raw[2:], chunkHeaderSize)

	return raw, nil
}

func (s *chunkShutdownComplete) valueLength() int { return 0 }
func (s *chunkShutdownComplete) String() string   { return "SHUTDOWN-COMPLETE\n" }
