// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"fmt"
)

const dataChunkFixedLength = 12 // tsn, streamId, ssn, ppid — after the 4-byte chunk header

// chunkPayloadData is the DATA chunk (type 0), RFC 4960 §3.3.1.
type chunkPayloadData struct {
	tsn                  uint32
	streamIdentifier     uint16
	streamSequenceNumber uint16
	ppid                 uint32
	unordered            bool
	beginningFragment    bool
	endingFragment       bool
	userData             []byte
}

func (d *chunkPayloadData) unmarshal(raw []byte) error {
	if len(raw) < chunkHeaderSize {
		return fmt.Errorf("%w: chunk header needs %d bytes", ErrChunkMalformed, chunkHeaderSize)
	}

	flags := raw[1]
	length := int(binary.BigEndian.Uint16(raw[2:]))
	if length < chunkHeaderSize+dataChunkFixedLength || length > len(raw) {
		return fmt.Errorf("%w: DATA length %d out of bounds (have %d)", ErrChunkMalformed, length, len(raw))
	}

	value := raw[chunkHeaderSize:length]
	d.tsn = binary.BigEndian.Uint32(value[0:])
	d.streamIdentifier = binary.BigEndian.Uint16(value[4:])
	d.streamSequenceNumber = binary.BigEndian.Uint16(value[6:])
	d.ppid = binary.BigEndian.Uint32(value[8:])
	d.unordered = flags&flagDataUnordered != 0
	d.beginningFragment = flags&flagDataBeginning != 0
	d.endingFragment = flags&flagDataEnding != 0
	d.userData = append([]byte(nil), value[dataChunkFixedLength:]...)

	return nil
}

func (d *chunkPayloadData) marshal() ([]byte, error) {
	length := chunkHeaderSize + dataChunkFixedLength + len(d.userData)
	raw := make([]byte, length)
	raw[0] = uint8(ctData)

	var flags uint8
	if d.unordered {
		flags |= flagDataUnordered
	}
	if d.beginningFragment {
		flags |= flagDataBeginning
	}
	if d.endingFragment {
		flags |= flagDataEnding
	}
	raw[1] = flags

	binary.BigEndian.PutUint16(raw[2:], uint16(length)) //nolint:gosec
	binary.BigEndian.PutUint32(raw[4:], d.tsn)
	binary.BigEndian.PutUint16(raw[8:], d.streamIdentifier)
	binary.BigEndian.PutUint16(raw[10:], d.streamSequenceNumber)
	binary.BigEndian.PutUint32(raw[12:], d.ppid)
	copy(raw[chunkHeaderSize+dataChunkFixedLength:], d.userData)

	return raw, nil
}

func (d *chunkPayloadData) valueLength() int {
	return dataChunkFixedLength + len(d.userData)
}

func (d *chunkPayloadData) String() string {
	return fmt.Sprintf("DATA tsn=%d stream=%d ssn=%d ppid=%d len=%d B=%v E=%v U=%v\n",
		d.tsn, d.streamIdentifier, d.streamSequenceNumber, d.ppid, len(d.userData),
		d.beginningFragment, d.endingFragment, d.unordered)
}
