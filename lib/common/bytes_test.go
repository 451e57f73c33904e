// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_HexToBytes(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		in         string
		bytes      []byte
		errMessage string
	}{
		"no_prefix": {
			in:         "aa",
			errMessage: "could not find 0x prefix: aa",
		},
		"odd_length": {
			in:         "0xabc",
			errMessage: "decoding hex string: encoding/hex: odd length hex string",
		},
		"valid": {
			in:    "0x0102ff",
			bytes: []byte{1, 2, 0xff},
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			bytes, err := HexToBytes(testCase.in)

			if testCase.errMessage != "" {
				assert.EqualError(t, err, testCase.errMessage)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, testCase.bytes, bytes)
		})
	}
}

func Test_BytesToHex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0x0102ff", BytesToHex([]byte{1, 2, 0xff}))
	assert.Equal(t, "0x", BytesToHex(nil))
}
