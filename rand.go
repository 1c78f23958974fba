// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctp

import "github.com/pion/randutil"

// uint32Generator is the slice of pion/randutil's generator interface this
// core needs: a single Uint32 method. globalRandomGenerator accepts any
// value of this type; the package's tests do not replace it, so the tags
// and TSNs they see are random.
type uint32Generator interface {
	Uint32() uint32
}

// globalRandomGenerator seeds verification tags, initial TSNs, and cookie
// secrets. It is process-wide and immutable, matching the teacher's
// globalMathRandomGenerator convention.
var globalRandomGenerator uint32Generator = randutil.NewMathRandomGenerator() //nolint:gochecknoglobals

func randomUint32() uint32 {
	return globalRandomGenerator.Uint32()
}

// randomNonZeroUint32 draws a verification tag; RFC 4960 does not strictly
// forbid zero but this core, like the teacher, avoids relying on it to
// distinguish "out-of-the-blue" packets from a rare 0-valued tag.
func randomNonZeroUint32() uint32 {
	for {
		if v := randomUint32(); v != 0 {
			return v
		}
	}
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	for i := 0; i < n; i += 4 {
		v := randomUint32()
		for j := 0; j < 4 && i+j < n; j++ {
			b[i+j] = byte(v >> (8 * j))
		}
	}

	return b
}
