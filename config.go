// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"time"

	"github.com/pion/logging"
)

// Default tunables, RFC 4960 §5.1.4 / §15 and SPEC_FULL.md §4.7.
const (
	defaultMTU                  uint32 = 1400
	defaultMaxReceiveBufferSize uint32 = 1024 * 1024
	defaultMaxOutboundStreams   uint16 = 65535
	defaultMaxInboundStreams    uint16 = 65535

	defaultInitRTO     = 1 * time.Second
	defaultRTOMax      = 60 * time.Second
	defaultMaxInitRetx = 8 // RFC 4960 §5.1.4 Association.Max.Init.Retransmits / path.max.retrans

	defaultDelayedSackTimeout = 200 * time.Millisecond

	// avgChunkSize sizes the initial allocation when concatenating
	// reassembled fragments; no theory behind the estimate, same as the
	// teacher's own avgChunkSize.
	avgChunkSize = 500
)

// Config parameterizes a new Association. It mirrors the teacher's own
// Config struct, trimmed to the fields this single-homed, socket-less core
// needs: no NetConn, no BlockWrite, no MaxMessageSize stream-fragmentation
// knob.
type Config struct {
	// Name is carried into every log line, e.g. "client" / "server".
	Name string

	// SourcePort and DestinationPort identify the association's port pair.
	// Both must be non-zero.
	SourcePort      uint16
	DestinationPort uint16

	// MTU bounds the size of assembled outbound packets. Default 1400.
	MTU uint32

	// MaxReceiveBufferSize bounds the advertised receiver window credit.
	MaxReceiveBufferSize uint32

	// MaxOutboundStreams / MaxInboundStreams cap stream counts negotiated
	// during the handshake; the lower of local and peer advertisement wins.
	MaxOutboundStreams uint16
	MaxInboundStreams  uint16

	// LoggerFactory builds the per-association logger. Defaults to
	// logging.NewDefaultLoggerFactory().
	LoggerFactory logging.LoggerFactory

	// OnReadyReadOutgoing fires whenever ReadOutgoing has at least one more
	// packet available.
	OnReadyReadOutgoing func()
	// OnEstablished fires each time the association enters
	// StateEstablished; a valid COOKIE-ECHO received while already
	// Established re-enters it and fires it again.
	OnEstablished func()
	// OnErrorOccurred fires when the association becomes terminal.
	OnErrorOccurred func(kind ErrorKind, err error)
	// OnMessage fires once per fully reassembled, in-order-if-applicable
	// message delivered to the host.
	OnMessage func(streamID uint16, ppid uint32, unordered bool, payload []byte)

	// nowFunc overrides time.Now; tests substitute a fake clock so
	// handshake/cookie/RTO scenarios are reproducible.
	nowFunc func() time.Time
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.MTU == 0 {
		cfg.MTU = defaultMTU
	}
	if cfg.MaxReceiveBufferSize == 0 {
		cfg.MaxReceiveBufferSize = defaultMaxReceiveBufferSize
	}
	if cfg.MaxOutboundStreams == 0 {
		cfg.MaxOutboundStreams = defaultMaxOutboundStreams
	}
	if cfg.MaxInboundStreams == 0 {
		cfg.MaxInboundStreams = defaultMaxInboundStreams
	}
	if cfg.LoggerFactory == nil {
		cfg.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	if cfg.nowFunc == nil {
		cfg.nowFunc = time.Now
	}

	return cfg
}
