// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package worker

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize is the maximum payload size accepted by FramedRecv.
const MaxFrameSize = 256 << 20

// ErrFrameTooLarge is returned when a frame exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame too large")

const lengthPrefixSize = 8

// FramedSend writes the buffer prefixed by its length as 8 little endian bytes.
func FramedSend(w io.Writer, buf []byte) error {
	if len(buf) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(buf))
	}

	frame := make([]byte, lengthPrefixSize+len(buf))
	binary.LittleEndian.PutUint64(frame, uint64(len(buf)))
	copy(frame[lengthPrefixSize:], buf)
	_, err := w.Write(frame)
	return err
}

// FramedRecv reads a buffer written by FramedSend.
func FramedRecv(r io.Reader) ([]byte, error) {
	var lengthBuf [lengthPrefixSize]byte
	_, err := io.ReadFull(r, lengthBuf[:])
	if err != nil {
		return nil, err
	}

	length := binary.LittleEndian.Uint64(lengthBuf[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	buf := make([]byte, length)
	_, err = io.ReadFull(r, buf)
	if err != nil {
		return nil, err
	}
	return buf, nil
}
