// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"fmt"
)

// chunkCookieEcho is the COOKIE-ECHO chunk (type 10): the opaque cookie
// value echoed back verbatim from INIT-ACK's State Cookie parameter.
type chunkCookieEcho struct {
	cookie []byte
}

func (c *chunkCookieEcho) unmarshal(raw []byte) error {
	if len(raw) < chunkHeaderSize {
		return fmt.Errorf("%w: chunk header needs %d bytes", ErrChunkMalformed, chunkHeaderSize)
	}
	length := int(binary.BigEndian.Uint16(raw[2:]))
	if length < chunkHeaderSize || length > len(raw) {
		return fmt.Errorf("%w: COOKIE-ECHO length %d out of bounds (have %d)", ErrChunkMalformed, length, len(raw))
	}
	c.cookie = append([]byte(nil), raw[chunkHeaderSize:length]...)

	return nil
}

func (c *chunkCookieEcho) marshal() ([]byte, error) {
	raw := make([]byte, chunkHeaderSize+len(c.cookie))
	raw[0] = uint8(ctCookieEcho)
	binary.BigEndian.PutUint16(raw[2:], uint16(len(raw))) //nolint:gosec
	copy(raw[chunkHeaderSize:], c.cookie)

	return raw, nil
}

func (c *chunkCookieEcho) valueLength() int { return len(c.cookie) }

func (c *chunkCookieEcho) String() string {
	return fmt.Sprintf("COOKIE-ECHO len=%d\n", len(c.cookie))
}

// chunkCookieAck is the COOKIE-ACK chunk (type 11): no value.
type chunkCookieAck struct{}

func (c *chunkCookieAck) unmarshal(raw []byte) error {
	if len(raw) < chunkHeaderSize {
		return fmt.Errorf("%w: chunk header needs %d bytes", ErrChunkMalformed, chunkHeaderSize)
	}

	return nil
}

func (c *chunkCookieAck) marshal() ([]byte, error) {
	raw := make([]byte, chunkHeaderSize)
	raw[0] = uint8(ctCookieAck)
	binary.BigEndian.PutUint16(raw[2:], chunkHeaderSize)

	return raw, nil
}

func (c *chunkCookieAck) valueLength() int { return 0 }

func (c *chunkCookieAck) String() string { return "COOKIE-ACK\n" }
