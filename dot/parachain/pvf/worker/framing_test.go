// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package worker

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_FramedSend(t *testing.T) {
	t.Parallel()

	buffer := bytes.NewBuffer(nil)
	err := FramedSend(buffer, []byte{1, 2, 3})
	require.NoError(t, err)

	expected := []byte{3, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3}
	assert.Equal(t, expected, buffer.Bytes())
}

func Test_FramedRecv(t *testing.T) {
	t.Parallel()

	tooLarge := make([]byte, 8)
	binary.LittleEndian.PutUint64(tooLarge, MaxFrameSize+1)

	testCases := map[string]struct {
		input      []byte
		buf        []byte
		errWrapped error
	}{
		"empty_frame": {
			input: []byte{0, 0, 0, 0, 0, 0, 0, 0},
			buf:   []byte{},
		},
		"frame": {
			input: []byte{2, 0, 0, 0, 0, 0, 0, 0, 9, 8, 7},
			buf:   []byte{9, 8},
		},
		"no_length": {
			errWrapped: io.EOF,
		},
		"short_length": {
			input:      []byte{1, 0},
			errWrapped: io.ErrUnexpectedEOF,
		},
		"short_payload": {
			input:      []byte{2, 0, 0, 0, 0, 0, 0, 0, 9},
			errWrapped: io.ErrUnexpectedEOF,
		},
		"too_large": {
			input:      tooLarge,
			errWrapped: ErrFrameTooLarge,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			buf, err := FramedRecv(bytes.NewReader(testCase.input))

			assert.ErrorIs(t, err, testCase.errWrapped)
			assert.Equal(t, testCase.buf, buf)
		})
	}
}

func Test_Framed_sequence(t *testing.T) {
	t.Parallel()

	buffer := bytes.NewBuffer(nil)
	messages := [][]byte{{1}, {}, bytes.Repeat([]byte{7}, 1000)}
	for _, message := range messages {
		err := FramedSend(buffer, message)
		require.NoError(t, err)
	}

	for _, message := range messages {
		buf, err := FramedRecv(buffer)
		require.NoError(t, err)
		assert.Equal(t, message, buf)
	}

	_, err := FramedRecv(buffer)
	assert.ErrorIs(t, err, io.EOF)
}
