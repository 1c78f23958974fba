// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"fmt"
)

// errorCauseCode enumerates the error causes this core attaches to ABORT,
// RFC 4960 §3.3.10.
type errorCauseCode uint16

const (
	causeInvalidStreamIdentifier    errorCauseCode = 1
	causeProtocolViolation          errorCauseCode = 13
	causeInvalidMandatoryParameter  errorCauseCode = 7
)

const errorCauseHeaderSize = 4

// errorCause is a single cause TLV carried inside an ABORT chunk.
type errorCause struct {
	code errorCauseCode
	info []byte
}

func (e *errorCause) marshal() []byte {
	length := errorCauseHeaderSize + len(e.info)
	raw := make([]byte, length)
	binary.BigEndian.PutUint16(raw[0:], uint16(e.code))
	binary.BigEndian.PutUint16(raw[2:], uint16(length)) //nolint:gosec
	copy(raw[errorCauseHeaderSize:], e.info)

	return raw
}

func (e *errorCause) unmarshal(raw []byte) (int, error) {
	if len(raw) < errorCauseHeaderSize {
		return 0, fmt.Errorf("%w: error cause needs %d bytes", ErrChunkMalformed, errorCauseHeaderSize)
	}
	e.code = errorCauseCode(binary.BigEndian.Uint16(raw[0:]))
	length := int(binary.BigEndian.Uint16(raw[2:]))
	if length < errorCauseHeaderSize || length > len(raw) {
		return 0, fmt.Errorf("%w: error cause length %d out of bounds", ErrChunkMalformed, length)
	}
	e.info = append([]byte(nil), raw[errorCauseHeaderSize:length]...)

	return length, nil
}

func (e *errorCause) valueLength() int {
	return errorCauseHeaderSize + len(e.info)
}

// chunkAbort is the ABORT chunk (type 6), RFC 4960 §3.3.7.
type chunkAbort struct {
	errorCauses []errorCause
}

func (a *chunkAbort) unmarshal(raw []byte) error {
	if len(raw) < chunkHeaderSize {
		return fmt.Errorf("%w: chunk header needs %d bytes", ErrChunkMalformed, chunkHeaderSize)
	}
	length := int(binary.BigEndian.Uint16(raw[2:]))
	if length < chunkHeaderSize || length > len(raw) {
		return fmt.Errorf("%w: ABORT length %d out of bounds (have %d)", ErrChunkMalformed, length, len(raw))
	}

	value := raw[chunkHeaderSize:length]
	offset := 0
	for offset < len(value) {
		var cause errorCause
		n, err := cause.unmarshal(value[offset:])
		if err != nil {
			return err
		}
		a.errorCauses = append(a.errorCauses, cause)
		offset += n + getPadding(n)
	}

	return nil
}

func (a *chunkAbort) marshal() ([]byte, error) {
	var value []byte
	for _, c := range a.errorCauses {
		value = append(value, c.marshal()...)
		if padding := getPadding(len(value)); padding != 0 {
			value = append(value, make([]byte, padding)...)
		}
	}

	raw := make([]byte, chunkHeaderSize+len(value))
	raw[0] = uint8(ctAbort)
	binary.BigEndian.PutUint16(raw[2:], uint16(len(raw))) //nolint:gosec
	copy(raw[chunkHeaderSize:], value)

	return raw, nil
}

func (a *chunkAbort) valueLength() int {
	n := 0
	for _, c := range a.errorCauses {
		n += c.valueLength() + getPadding(c.valueLength())
	}

	return n
}

func (a *chunkAbort) String() string {
	return fmt.Sprintf("ABORT causes=%d\n", len(a.errorCauses))
}

// newAbortChunk builds an ABORT chunk carrying a single cause describing
// why this core is terminating the association.
func newAbortChunk(code errorCauseCode, info string) *chunkAbort {
	return &chunkAbort{errorCauses: []errorCause{{code: code, info: []byte(info)}}}
}
