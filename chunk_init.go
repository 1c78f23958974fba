// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"fmt"
)

const initChunkFixedLength = 16 // after the 4-byte chunk header

// chunkInitCommon is the fixed-field layout shared by INIT and INIT-ACK,
// RFC 4960 §3.3.2/§3.3.3.
type chunkInitCommon struct {
	initiateTag                    uint32
	advertisedReceiverWindowCredit uint32
	numOutboundStreams             uint16
	numInboundStreams              uint16
	initialTSN                     uint32
	params                         []param
}

func (c *chunkInitCommon) unmarshalFixed(value []byte) error {
	if len(value) < initChunkFixedLength {
		return fmt.Errorf("%w: INIT fixed part needs %d bytes, got %d", ErrChunkMalformed, initChunkFixedLength, len(value))
	}

	c.initiateTag = binary.BigEndian.Uint32(value[0:])
	c.advertisedReceiverWindowCredit = binary.BigEndian.Uint32(value[4:])
	c.numOutboundStreams = binary.BigEndian.Uint16(value[8:])
	c.numInboundStreams = binary.BigEndian.Uint16(value[10:])
	c.initialTSN = binary.BigEndian.Uint32(value[12:])

	params, err := unmarshalParams(value[initChunkFixedLength:], len(value)-initChunkFixedLength)
	if err != nil {
		return err
	}
	c.params = params

	return nil
}

func (c *chunkInitCommon) marshalFixed() []byte {
	raw := make([]byte, initChunkFixedLength)
	binary.BigEndian.PutUint32(raw[0:], c.initiateTag)
	binary.BigEndian.PutUint32(raw[4:], c.advertisedReceiverWindowCredit)
	binary.BigEndian.PutUint16(raw[8:], c.numOutboundStreams)
	binary.BigEndian.PutUint16(raw[10:], c.numInboundStreams)
	binary.BigEndian.PutUint32(raw[12:], c.initialTSN)

	return append(raw, marshalParams(c.params)...)
}

func (c *chunkInitCommon) valueLength() int {
	n := initChunkFixedLength
	for _, p := range c.params {
		n += p.valueLength() + getPadding(p.valueLength())
	}

	return n
}

// chunkInit is the INIT chunk (type 1), sent to begin association setup.
type chunkInit struct {
	chunkInitCommon
}

func (c *chunkInit) unmarshal(raw []byte) error {
	if len(raw) < chunkHeaderSize {
		return fmt.Errorf("%w: chunk header needs %d bytes", ErrChunkMalformed, chunkHeaderSize)
	}
	length := int(binary.BigEndian.Uint16(raw[2:]))
	if length < chunkHeaderSize+initChunkFixedLength || length > len(raw) {
		return fmt.Errorf("%w: INIT length %d out of bounds (have %d)", ErrChunkMalformed, length, len(raw))
	}

	return c.unmarshalFixed(raw[chunkHeaderSize:length])
}

func (c *chunkInit) marshal() ([]byte, error) {
	value := c.marshalFixed()
	raw := make([]byte, chunkHeaderSize+len(value))
	raw[0] = uint8(ctInit)
	binary.BigEndian.PutUint16(raw[2:], uint16(len(raw))) //nolint:gosec
	copy(raw[chunkHeaderSize:], value)

	return raw, nil
}

func (c *chunkInit) valueLength() int { return c.chunkInitCommon.valueLength() }

func (c *chunkInit) String() string {
	return fmt.Sprintf("INIT initiateTag=%d a_rwnd=%d outStreams=%d inStreams=%d initialTSN=%d\n",
		c.initiateTag, c.advertisedReceiverWindowCredit, c.numOutboundStreams, c.numInboundStreams, c.initialTSN)
}

// chunkInitAck is the INIT-ACK chunk (type 2), replying to INIT with a
// mandatory State Cookie parameter.
type chunkInitAck struct {
	chunkInitCommon
}

func (c *chunkInitAck) unmarshal(raw []byte) error {
	if len(raw) < chunkHeaderSize {
		return fmt.Errorf("%w: chunk header needs %d bytes", ErrChunkMalformed, chunkHeaderSize)
	}
	length := int(binary.BigEndian.Uint16(raw[2:]))
	if length < chunkHeaderSize+initChunkFixedLength || length > len(raw) {
		return fmt.Errorf("%w: INIT-ACK length %d out of bounds (have %d)", ErrChunkMalformed, length, len(raw))
	}

	return c.unmarshalFixed(raw[chunkHeaderSize:length])
}

func (c *chunkInitAck) marshal() ([]byte, error) {
	value := c.marshalFixed()
	raw := make([]byte, chunkHeaderSize+len(value))
	raw[0] = uint8(ctInitAck)
	binary.BigEndian.PutUint16(raw[2:], uint16(len(raw))) //nolint:gosec
	copy(raw[chunkHeaderSize:], value)

	return raw, nil
}

func (c *chunkInitAck) valueLength() int { return c.chunkInitCommon.valueLength() }

func (c *chunkInitAck) String() string {
	return fmt.Sprintf("INIT-ACK initiateTag=%d a_rwnd=%d outStreams=%d inStreams=%d initialTSN=%d\n",
		c.initiateTag, c.advertisedReceiverWindowCredit, c.numOutboundStreams, c.numInboundStreams, c.initialTSN)
}
