// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package scale

import "errors"

var (
	ErrUnsupportedType   = errors.New("unsupported type")
	ErrUnsupportedDst    = errors.New("unsupported destination")
	ErrUnexpectedEOF     = errors.New("unexpected end of data")
	ErrInvalidBool       = errors.New("invalid bool byte")
	ErrInvalidOption     = errors.New("invalid option byte")
	ErrCompactTooLarge   = errors.New("compact integer does not fit in 64 bits")
	ErrLengthOutOfBounds = errors.New("length exceeds the remaining data")
)
