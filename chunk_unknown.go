// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"fmt"
)

// chunkUnknown is a framing-only view over a chunk kind this core does not
// interpret (RECONFIG, FORWARD-TSN, ERROR, ASCONF, ...). RFC 4960's handling
// rules for the two high bits of an unrecognized type are not implemented;
// SPEC_FULL.md §4.4 commits to silently ignoring every such chunk once it is
// confirmed well-formed enough to skip over.
type chunkUnknown struct {
	typ    chunkType
	length int
}

func (u *chunkUnknown) unmarshal(raw []byte) error {
	if len(raw) < chunkHeaderSize {
		return fmt.Errorf("%w: chunk header needs %d bytes", ErrChunkMalformed, chunkHeaderSize)
	}
	u.typ = chunkType(raw[0])
	length := int(binary.BigEndian.Uint16(raw[2:]))
	if length < chunkHeaderSize || length > len(raw) {
		return fmt.Errorf("%w: chunk %s length %d out of bounds (have %d)", ErrChunkMalformed, u.typ, length, len(raw))
	}
	u.length = length

	return nil
}

func (u *chunkUnknown) marshal() ([]byte, error) {
	return nil, fmt.Errorf("%w: chunk type %s is not emitted by this core", ErrChunkMalformed, u.typ)
}

func (u *chunkUnknown) valueLength() int { return u.length - chunkHeaderSize }

func (u *chunkUnknown) String() string { return fmt.Sprintf("%s (ignored)\n", u.typ) }
