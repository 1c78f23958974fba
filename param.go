// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"encoding/binary"
	"fmt"
)

// paramType enumerates the INIT/INIT-ACK parameter kinds this core
// understands. See RFC 4960 section 3.3.3 / section 7 (errata).
type paramType uint16

const (
	paramStateCookieType   paramType = 7
	paramHeartbeatInfoType paramType = 1
)

const paramHeaderSize = 4

// paramHeader is the common 4-byte TLV header shared by every parameter.
type paramHeader struct {
	typ paramType
	len uint16
	raw []byte // value bytes, excluding the 4-byte header
}

func (p *paramHeader) unmarshal(raw []byte) (int, error) {
	if len(raw) < paramHeaderSize {
		return 0, fmt.Errorf("%w: param header needs %d bytes, got %d", ErrChunkMalformed, paramHeaderSize, len(raw))
	}

	p.typ = paramType(binary.BigEndian.Uint16(raw[0:]))
	p.len = binary.BigEndian.Uint16(raw[2:])

	if int(p.len) < paramHeaderSize || int(p.len) > len(raw) {
		return 0, fmt.Errorf("%w: param length %d out of bounds (have %d)", ErrChunkMalformed, p.len, len(raw))
	}

	p.raw = append([]byte(nil), raw[paramHeaderSize:p.len]...)

	return int(p.len), nil
}

func (p *paramHeader) marshal() []byte {
	length := paramHeaderSize + len(p.raw)
	raw := make([]byte, length)
	binary.BigEndian.PutUint16(raw[0:], uint16(p.typ))
	binary.BigEndian.PutUint16(raw[2:], uint16(length)) //nolint:gosec
	copy(raw[paramHeaderSize:], p.raw)

	return raw
}

func (p *paramHeader) valueLength() int {
	return paramHeaderSize + len(p.raw)
}

// param is a typed view over a single TLV parameter.
type param interface {
	unmarshal(raw []byte) (int, error)
	marshal() []byte
	valueLength() int
}

// paramStateCookie carries the opaque, HMAC-authenticated state cookie
// minted by the INIT-ACK sender (RFC 4960 §3.3.3, type 7).
type paramStateCookie struct {
	paramHeader
	cookie []byte
}

func newParamStateCookie(cookie []byte) *paramStateCookie {
	return &paramStateCookie{
		paramHeader: paramHeader{typ: paramStateCookieType, raw: cookie},
		cookie:      cookie,
	}
}

func (p *paramStateCookie) unmarshal(raw []byte) (int, error) {
	n, err := p.paramHeader.unmarshal(raw)
	if err != nil {
		return 0, err
	}
	p.cookie = p.paramHeader.raw

	return n, nil
}

func (p *paramStateCookie) marshal() []byte {
	p.paramHeader.raw = p.cookie
	p.paramHeader.typ = paramStateCookieType

	return p.paramHeader.marshal()
}

// paramHeartbeatInfo is the pass-through opaque blob HEARTBEAT and
// HEARTBEAT-ACK exchange verbatim (RFC 4960 §3.3.6, type 1).
type paramHeartbeatInfo struct {
	paramHeader
	heartbeatInformation []byte
}

func newParamHeartbeatInfo(info []byte) *paramHeartbeatInfo {
	return &paramHeartbeatInfo{
		paramHeader:          paramHeader{typ: paramHeartbeatInfoType, raw: info},
		heartbeatInformation: info,
	}
}

func (p *paramHeartbeatInfo) unmarshal(raw []byte) (int, error) {
	n, err := p.paramHeader.unmarshal(raw)
	if err != nil {
		return 0, err
	}
	p.heartbeatInformation = p.paramHeader.raw

	return n, nil
}

func (p *paramHeartbeatInfo) marshal() []byte {
	p.paramHeader.raw = p.heartbeatInformation
	p.paramHeader.typ = paramHeartbeatInfoType

	return p.paramHeader.marshal()
}

// paramUnknown is a pass-through view used for any parameter type this core
// does not interpret. It round-trips verbatim so unfamiliar parameters in an
// INIT/INIT-ACK do not break framing.
type paramUnknown struct {
	paramHeader
}

func (p *paramUnknown) unmarshal(raw []byte) (int, error) {
	return p.paramHeader.unmarshal(raw)
}

func (p *paramUnknown) marshal() []byte {
	return p.paramHeader.marshal()
}

// unmarshalParams walks a 4-byte-aligned TLV parameter sequence occupying
// raw[0:length], dispatching known types and falling back to paramUnknown.
func unmarshalParams(raw []byte, length int) ([]param, error) {
	var params []param
	offset := 0

	for offset < length {
		if offset+paramHeaderSize > length {
			return nil, fmt.Errorf("%w: truncated parameter at offset %d", ErrChunkMalformed, offset)
		}

		typ := paramType(binary.BigEndian.Uint16(raw[offset:]))

		var pm param
		switch typ {
		case paramStateCookieType:
			pm = &paramStateCookie{}
		case paramHeartbeatInfoType:
			pm = &paramHeartbeatInfo{}
		default:
			pm = &paramUnknown{}
		}

		n, err := pm.unmarshal(raw[offset:length])
		if err != nil {
			return nil, err
		}

		params = append(params, pm)
		offset += n + getPadding(n)
	}

	return params, nil
}

func marshalParams(params []param) []byte {
	var raw []byte
	for _, p := range params {
		raw = append(raw, p.marshal()...)
		if padding := getPadding(len(raw)); padding != 0 {
			raw = append(raw, make([]byte, padding)...)
		}
	}

	return raw
}

// firstParamOfType returns the first parameter of the given concrete type,
// or nil. Callers type-assert the result.
func firstParamStateCookie(params []param) *paramStateCookie {
	for _, p := range params {
		if sc, ok := p.(*paramStateCookie); ok {
			return sc
		}
	}

	return nil
}

func firstParamHeartbeatInfo(params []param) *paramHeartbeatInfo {
	for _, p := range params {
		if hi, ok := p.(*paramHeartbeatInfo); ok {
			return hi
		}
	}

	return nil
}
