// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import "encoding/binary"

// MinimalValidation is a quick, checksum-free peek used by a demultiplexer
// to route an inbound datagram to the right Association before paying the
// CRC32C cost: sourcePort != 0, destinationPort != 0, size >= 12, the first
// chunk's declared length is >= 4, and it fits inside the packet. It never
// allocates and is safe to call concurrently.
func MinimalValidation(data []byte) (srcPort, dstPort uint16, ok bool) {
	if len(data) < packetHeaderSize {
		return 0, 0, false
	}

	srcPort = binary.BigEndian.Uint16(data[0:])
	dstPort = binary.BigEndian.Uint16(data[2:])
	if srcPort == 0 || dstPort == 0 {
		return 0, 0, false
	}

	if len(data) < packetHeaderSize+chunkHeaderSize {
		return 0, 0, false
	}

	firstChunkLength := int(binary.BigEndian.Uint16(data[packetHeaderSize+2:]))
	if firstChunkLength < chunkHeaderSize {
		return 0, 0, false
	}
	if packetHeaderSize+firstChunkLength > len(data) {
		return 0, 0, false
	}

	return srcPort, dstPort, true
}
