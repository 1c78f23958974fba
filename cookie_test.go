// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTCB() *tcb {
	return &tcb{
		myTag:              111,
		peerTag:            222,
		nextTSN:            333,
		lastRcvdTSN:        444,
		remoteWindowCredit: 1024 * 1024,
		inStreams:          10,
		outStreams:         12,
		sourcePort:         5000,
		destPort:           5000,
	}
}

func TestCookieJar_MintVerifyRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 0)
	jar := newCookieJar(func() time.Time { return now })

	cookie := jar.mint(testTCB())
	got, err := jar.verify(cookie)
	require.NoError(t, err)

	assert.Equal(t, uint32(111), got.myTag)
	assert.Equal(t, uint32(222), got.peerTag)
	assert.Equal(t, uint32(333), got.nextTSN)
	assert.Equal(t, uint32(444), got.lastRcvdTSN)
	assert.Equal(t, uint32(1024*1024), got.remoteWindowCredit)
	assert.Equal(t, uint16(10), got.inStreams)
	assert.Equal(t, uint16(12), got.outStreams)
	assert.Equal(t, uint16(5000), got.sourcePort)
	assert.Equal(t, uint16(5000), got.destPort)
}

func TestCookieJar_TamperedCookieRejected(t *testing.T) {
	now := time.Unix(1700000000, 0)
	jar := newCookieJar(func() time.Time { return now })

	cookie := jar.mint(testTCB())
	cookie[0] ^= 0xff

	_, err := jar.verify(cookie)
	assert.ErrorIs(t, err, ErrCookieHMACMismatch)
}

func TestCookieJar_TooShortRejected(t *testing.T) {
	jar := newCookieJar(nil)
	_, err := jar.verify([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrCookieTooShort)
}

func TestCookieJar_ExpiredRejected(t *testing.T) {
	start := time.Unix(1700000000, 0)
	now := start
	jar := newCookieJar(func() time.Time { return now })

	cookie := jar.mint(testTCB())
	now = start.Add(defaultCookieLifetime + time.Second)

	_, err := jar.verify(cookie)
	assert.ErrorIs(t, err, ErrCookieExpired)
}

func TestCookieJar_RotationKeepsPreviousSecretValidOnce(t *testing.T) {
	now := time.Unix(1700000000, 0)
	jar := newCookieJar(func() time.Time { return now })

	cookie := jar.mint(testTCB())
	jar.rotate()

	_, err := jar.verify(cookie)
	assert.NoError(t, err, "cookie minted just before rotation must still verify once")

	jar.rotate()
	_, err = jar.verify(cookie)
	assert.Error(t, err, "cookie must not verify after the secret has rotated twice")
}
