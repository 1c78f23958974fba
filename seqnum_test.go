// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSNA32_Basic(t *testing.T) {
	assert.True(t, sna32LT(1, 2))
	assert.False(t, sna32LT(2, 1))
	assert.True(t, sna32GT(2, 1))
	assert.True(t, sna32EQ(5, 5))
	assert.True(t, sna32LTE(5, 5))
	assert.True(t, sna32GTE(5, 5))
}

func TestSNA32_Wraparound(t *testing.T) {
	var max32 uint32 = 0xffffffff
	// 0 is the successor of max32 under serial-number arithmetic.
	assert.True(t, sna32LT(max32, 0))
	assert.True(t, sna32GT(0, max32))
	assert.False(t, sna32LT(0, max32))
}

func TestSNA32_Monotonic(t *testing.T) {
	tsn := uint32(0xfffffffe)
	for i := 0; i < 5; i++ {
		next := tsn + 1
		assert.True(t, sna32LT(tsn, next), "tsn=%d next=%d", tsn, next)
		tsn = next
	}
}

func TestMinMaxHelpers(t *testing.T) {
	assert.Equal(t, uint16(2), min16(2, 5))
	assert.Equal(t, uint16(2), min16(5, 2))
	assert.Equal(t, uint32(5), max32(2, 5))
	assert.Equal(t, uint32(2), min32(2, 5))
}
