// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package common

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexToBytes turns a 0x prefixed hex string into a byte slice.
func HexToBytes(in string) ([]byte, error) {
	if !strings.HasPrefix(in, "0x") {
		return nil, fmt.Errorf("%w: %s", ErrNoPrefix, in)
	}

	decoded, err := hex.DecodeString(in[2:])
	if err != nil {
		return nil, fmt.Errorf("decoding hex string: %w", err)
	}

	return decoded, nil
}

// BytesToHex turns a byte slice into a 0x prefixed hex string.
func BytesToHex(in []byte) string {
	return "0x" + hex.EncodeToString(in)
}
