// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package common

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// HashLength is the expected length of the common.Hash type
const HashLength = 32

// EmptyHash is the zero value hash.
var EmptyHash = Hash{}

// Hash used to store a blake2b hash
type Hash [HashLength]byte

// NewHash casts a byte slice to a Hash.
// If the input is longer than 32 bytes, it takes the first 32 bytes.
func NewHash(in []byte) (res Hash) {
	copy(res[:], in)
	return res
}

// ToBytes turns a hash to a byte slice
func (h Hash) ToBytes() []byte {
	b := [HashLength]byte(h)
	return b[:]
}

// IsEmpty returns true if the hash is empty, false otherwise.
func (h Hash) IsEmpty() bool {
	return h == EmptyHash
}

// String returns the hex string for the hash
func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

// Short returns the first 4 bytes and the last 4 bytes of the hex string for the hash
func (h Hash) Short() string {
	const nBytes = 4
	return fmt.Sprintf("0x%x...%x", h[:nBytes], h[len(h)-nBytes:])
}

var (
	ErrNoPrefix      = errors.New("could not find 0x prefix")
	ErrInvalidLength = errors.New("invalid hash length")
)

// HexToHash turns a 0x prefixed hex string into a Hash.
func HexToHash(in string) (Hash, error) {
	if !strings.HasPrefix(in, "0x") {
		return Hash{}, fmt.Errorf("%w: %s", ErrNoPrefix, in)
	}

	decoded, err := hex.DecodeString(in[2:])
	if err != nil {
		return Hash{}, fmt.Errorf("decoding hex string: %w", err)
	}

	if len(decoded) != HashLength {
		return Hash{}, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(decoded))
	}

	return NewHash(decoded), nil
}
