// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // cookie authenticity only needs collision-resistance against a chosen-prefix forger, not pre-image strength; RFC 4960 does not mandate a digest
	"encoding/binary"
	"fmt"
	"time"
)

// cookieSecretSize is the minimum width of the HMAC key, RFC 4960 §5.1.3
// ("SHOULD be at least 32 characters (256 bits)"); spec.md requires >= 64
// bits, this core is more conservative.
const cookieSecretSize = 32

// defaultCookieLifetime bounds how old a COOKIE-ECHO's embedded timestamp
// may be before verification refuses it, SPEC_FULL.md §4.4.1.
const defaultCookieLifetime = 60 * time.Second

// tcb is the association state embedded in a state cookie, mirroring
// RFC 4960 §13.2's TCB fields that must survive the stateless gap between
// INIT-ACK and COOKIE-ECHO.
type tcb struct {
	myTag              uint32
	peerTag            uint32
	nextTSN            uint32
	lastRcvdTSN        uint32
	remoteWindowCredit uint32
	inStreams          uint16
	outStreams         uint16
	createdAt          int64 // unix millis
	sourcePort         uint16
	destPort           uint16
}

const tcbSize = 4 + 4 + 4 + 4 + 4 + 2 + 2 + 8 + 2 + 2

func (t *tcb) marshal() []byte {
	raw := make([]byte, tcbSize)
	binary.BigEndian.PutUint32(raw[0:], t.myTag)
	binary.BigEndian.PutUint32(raw[4:], t.peerTag)
	binary.BigEndian.PutUint32(raw[8:], t.nextTSN)
	binary.BigEndian.PutUint32(raw[12:], t.lastRcvdTSN)
	binary.BigEndian.PutUint32(raw[16:], t.remoteWindowCredit)
	binary.BigEndian.PutUint16(raw[20:], t.inStreams)
	binary.BigEndian.PutUint16(raw[22:], t.outStreams)
	binary.BigEndian.PutUint64(raw[24:], uint64(t.createdAt)) //nolint:gosec
	binary.BigEndian.PutUint16(raw[32:], t.sourcePort)
	binary.BigEndian.PutUint16(raw[34:], t.destPort)

	return raw
}

func unmarshalTCB(raw []byte) (*tcb, error) {
	if len(raw) != tcbSize {
		return nil, fmt.Errorf("%w: tcb is %d bytes, want %d", ErrChunkMalformed, len(raw), tcbSize)
	}

	return &tcb{
		myTag:              binary.BigEndian.Uint32(raw[0:]),
		peerTag:            binary.BigEndian.Uint32(raw[4:]),
		nextTSN:            binary.BigEndian.Uint32(raw[8:]),
		lastRcvdTSN:        binary.BigEndian.Uint32(raw[12:]),
		remoteWindowCredit: binary.BigEndian.Uint32(raw[16:]),
		inStreams:          binary.BigEndian.Uint16(raw[20:]),
		outStreams:         binary.BigEndian.Uint16(raw[22:]),
		createdAt:          int64(binary.BigEndian.Uint64(raw[24:])), //nolint:gosec
		sourcePort:         binary.BigEndian.Uint16(raw[32:]),
		destPort:           binary.BigEndian.Uint16(raw[34:]),
	}, nil
}

// cookieJar mints and verifies state cookies. It retains the previous HMAC
// secret for one rotation so a cookie minted just before a fresh INIT
// regenerates the secret is still accepted — the window the teacher's
// single-privKey design does not give (DESIGN.md, Open Question decision 5).
type cookieJar struct {
	secret     []byte
	prevSecret []byte
	lifetime   time.Duration
	now        func() time.Time
}

func newCookieJar(now func() time.Time) *cookieJar {
	if now == nil {
		now = time.Now
	}

	return &cookieJar{
		secret:   randomBytes(cookieSecretSize),
		lifetime: defaultCookieLifetime,
		now:      now,
	}
}

// rotate regenerates the HMAC secret, keeping the previous one valid for one
// more rotation.
func (j *cookieJar) rotate() {
	j.prevSecret = j.secret
	j.secret = randomBytes(cookieSecretSize)
}

func (j *cookieJar) mint(t *tcb) []byte {
	t.createdAt = j.now().UnixMilli()
	body := t.marshal()
	mac := hmacSum(j.secret, body)

	return append(body, mac...)
}

// verify splits cookie into its tcb and HMAC tail, checks the HMAC in
// constant time against the current and previous secrets, and rejects
// cookies older than the configured lifetime.
func (j *cookieJar) verify(cookie []byte) (*tcb, error) {
	digestSize := sha1.Size
	if len(cookie) <= digestSize {
		return nil, ErrCookieTooShort
	}

	body := cookie[:len(cookie)-digestSize]
	tail := cookie[len(cookie)-digestSize:]

	ok := hmac.Equal(tail, hmacSum(j.secret, body))
	if !ok && j.prevSecret != nil {
		ok = hmac.Equal(tail, hmacSum(j.prevSecret, body))
	}
	if !ok {
		return nil, ErrCookieHMACMismatch
	}

	parsed, err := unmarshalTCB(body)
	if err != nil {
		return nil, err
	}

	age := j.now().Sub(time.UnixMilli(parsed.createdAt))
	if age < 0 || age > j.lifetime {
		return nil, ErrCookieExpired
	}

	return parsed, nil
}

func hmacSum(key, body []byte) []byte {
	mac := hmac.New(sha1.New, key)
	mac.Write(body)

	return mac.Sum(nil)
}
