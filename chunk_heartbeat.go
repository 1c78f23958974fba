// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"fmt"
)

// chunkHeartbeat is the HEARTBEAT chunk (type 4), carrying a single
// Heartbeat Info parameter the peer must echo back in HEARTBEAT-ACK.
type chunkHeartbeat struct {
	params []param
}

func (h *chunkHeartbeat) unmarshal(raw []byte) error {
	if len(raw) < chunkHeaderSize {
		return fmt.Errorf("%w: chunk header needs %d bytes", ErrChunkMalformed, chunkHeaderSize)
	}
	length := int(binary.BigEndian.Uint16(raw[2:]))
	if length < chunkHeaderSize || length > len(raw) {
		return fmt.Errorf("%w: HEARTBEAT length %d out of bounds (have %d)", ErrChunkMalformed, length, len(raw))
	}
	params, err := unmarshalParams(raw[chunkHeaderSize:length], length-chunkHeaderSize)
	if err != nil {
		return err
	}
	h.params = params

	return nil
}

func (h *chunkHeartbeat) marshal() ([]byte, error) {
	value := marshalParams(h.params)
	raw := make([]byte, chunkHeaderSize+len(value))
	raw[0] = uint8(ctHeartbeat)
	binary.BigEndian.PutUint16(raw[2:], uint16(len(raw))) //nolint:gosec
	copy(raw[chunkHeaderSize:], value)

	return raw, nil
}

func (h *chunkHeartbeat) valueLength() int {
	n := 0
	for _, p := range h.params {
		n += p.valueLength() + getPadding(p.valueLength())
	}

	return n
}

func (h *chunkHeartbeat) String() string { return "HEARTBEAT\n" }

// chunkHeartbeatAck is the HEARTBEAT-ACK chunk (type 5).
type chunkHeartbeatAck struct {
	params []param
}

func (h *chunkHeartbeatAck) unmarshal(raw []byte) error {
	if len(raw) < chunkHeaderSize {
		return fmt.Errorf("%w: chunk header needs %d bytes", ErrChunkMalformed, chunkHeaderSize)
	}
	length := int(binary.BigEndian.Uint16(raw[2:]))
	if length < chunkHeaderSize || length > len(raw) {
		return fmt.Errorf("%w: HEARTBEAT-ACK length %d out of bounds (have %d)", ErrChunkMalformed, length, len(raw))
	}
	params, err := unmarshalParams(raw[chunkHeaderSize:length], length-chunkHeaderSize)
	if err != nil {
		return err
	}
	h.params = params

	return nil
}

func (h *chunkHeartbeatAck) marshal() ([]byte, error) {
	value := marshalParams(h.params)
	raw := make([]byte, chunkHeaderSize+len(value))
	raw[0] = uint8(ctHeartbeatAck)
	binary.BigEndian.PutUint16(raw[2:], uint16(len(raw))) //nolint:gosec
	copy(raw[chunkHeaderSize:], value)

	return raw, nil
}

func (h *chunkHeartbeatAck) valueLength() int {
	n := 0
	for _, p := range h.params {
		n += p.valueLength() + getPadding(p.valueLength())
	}

	return n
}

func (h *chunkHeartbeatAck) String() string { return "HEARTBEAT-ACK\n" }
