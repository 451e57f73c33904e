// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package common

import (
	"golang.org/x/crypto/blake2b"
)

// Blake2bHash returns the 256-bit blake2b hash of the input data
func Blake2bHash(in []byte) (Hash, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return [32]byte{}, err
	}

	_, err = h.Write(in)
	if err != nil {
		return [32]byte{}, err
	}

	hash := h.Sum(nil)
	var buf = [32]byte{}
	copy(buf[:], hash)
	return buf, nil
}

// MustBlake2bHash returns the 256-bit blake2b hash of the input data.
// It panics if the hasher cannot be created, which only happens
// for invalid key sizes.
func MustBlake2bHash(in []byte) Hash {
	h, err := Blake2bHash(in)
	if err != nil {
		panic(err)
	}
	return h
}
