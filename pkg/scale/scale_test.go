// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package scale

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taggedStruct struct {
	Third  uint16 `scale:"3"`
	First  []byte `scale:"1"`
	Second *bool  `scale:"2"`
	Ignore string `scale:"-"`
	Last   string
}

type namedKind uint8

type nested struct {
	Kind   namedKind
	Values []uint32
	Pairs  [][2]byte
}

func Test_Marshal(t *testing.T) {
	t.Parallel()

	yes := true

	testCases := map[string]struct {
		in         interface{}
		encoded    []byte
		errWrapped error
	}{
		"uint8": {
			in:      uint8(7),
			encoded: []byte{7},
		},
		"int32": {
			in:      int32(-1),
			encoded: []byte{0xff, 0xff, 0xff, 0xff},
		},
		"uint": {
			in:      uint(1),
			encoded: []byte{1, 0, 0, 0, 0, 0, 0, 0},
		},
		"bool": {
			in:      true,
			encoded: []byte{1},
		},
		"string": {
			in:      "ab",
			encoded: []byte{8, 'a', 'b'},
		},
		"bytes_one_byte_length": {
			in:      make([]byte, 63),
			encoded: append([]byte{0xfc}, make([]byte, 63)...),
		},
		"bytes_two_bytes_length": {
			in:      make([]byte, 64),
			encoded: append([]byte{0x01, 0x01}, make([]byte, 64)...),
		},
		"nil_pointer": {
			in:      (*uint8)(nil),
			encoded: []byte{0},
		},
		"tagged_struct": {
			in: taggedStruct{
				Third:  0x0201,
				First:  []byte{9},
				Second: &yes,
				Ignore: "ignored",
				Last:   "z",
			},
			encoded: []byte{4, 9, 1, 1, 0x01, 0x02, 4, 'z'},
		},
		"nested": {
			in: nested{
				Kind:   2,
				Values: []uint32{1},
				Pairs:  [][2]byte{{3, 4}},
			},
			encoded: []byte{2, 4, 1, 0, 0, 0, 4, 3, 4},
		},
		"unsupported": {
			in:         map[string]int{},
			errWrapped: ErrUnsupportedType,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			encoded, err := Marshal(testCase.in)

			assert.ErrorIs(t, err, testCase.errWrapped)
			assert.Equal(t, testCase.encoded, encoded)
		})
	}
}

func Test_encodeUint(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		i       uint64
		encoded []byte
	}{
		"zero":        {i: 0, encoded: []byte{0x00}},
		"single_mode": {i: 63, encoded: []byte{0xfc}},
		"two_bytes":   {i: 1 << 6, encoded: []byte{0x01, 0x01}},
		"four_bytes":  {i: 1 << 14, encoded: []byte{0x02, 0x00, 0x01, 0x00}},
		"big_integer": {i: 1 << 30, encoded: []byte{0x03, 0x00, 0x00, 0x00, 0x40}},
		"max_uint64": {
			i:       ^uint64(0),
			encoded: []byte{0x13, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			es := encodeState{fieldScaleIndicesCache: cache}
			err := es.encodeUint(testCase.i)
			require.NoError(t, err)
			assert.Equal(t, testCase.encoded, es.Bytes())

			ds := decodeState{Reader: bytes.NewReader(es.Bytes()), fieldScaleIndicesCache: cache}
			decoded, err := ds.decodeUint()
			require.NoError(t, err)
			assert.Equal(t, testCase.i, decoded)
		})
	}
}

func Test_Unmarshal_roundTrip(t *testing.T) {
	t.Parallel()

	no := false
	original := struct {
		Tagged  taggedStruct
		Nested  []nested
		Option  *nested
		Missing *uint64
	}{
		Tagged: taggedStruct{
			Third:  1000,
			First:  []byte{1, 2, 3},
			Second: &no,
			Last:   "last",
		},
		Nested: []nested{
			{Kind: 1, Values: []uint32{5, 6}, Pairs: [][2]byte{{1, 2}}},
			{Kind: 2, Values: []uint32{}, Pairs: [][2]byte{}},
		},
		Option: &nested{Kind: 3, Values: []uint32{}, Pairs: [][2]byte{}},
	}

	encoded, err := Marshal(original)
	require.NoError(t, err)

	decoded := original
	decoded.Tagged = taggedStruct{}
	decoded.Nested = nil
	decoded.Option = nil
	err = Unmarshal(encoded, &decoded)
	require.NoError(t, err)

	assert.Equal(t, original, decoded)
}

func Test_Unmarshal_errors(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		data       []byte
		dst        interface{}
		errWrapped error
	}{
		"not_a_pointer": {
			dst:        nested{},
			errWrapped: ErrUnsupportedDst,
		},
		"empty_data": {
			dst:        new(uint32),
			errWrapped: ErrUnexpectedEOF,
		},
		"short_integer": {
			data:       []byte{1, 2},
			dst:        new(uint32),
			errWrapped: ErrUnexpectedEOF,
		},
		"invalid_bool": {
			data:       []byte{2},
			dst:        new(bool),
			errWrapped: ErrInvalidBool,
		},
		"invalid_option": {
			data:       []byte{2},
			dst:        new(*uint8),
			errWrapped: ErrInvalidOption,
		},
		"compact_prefix_only": {
			data:       []byte{0xff},
			dst:        new([]byte),
			errWrapped: ErrCompactTooLarge,
		},
		"truncated_compact": {
			data:       []byte{0x01},
			dst:        new([]byte),
			errWrapped: ErrUnexpectedEOF,
		},
		"bytes_length_out_of_bounds": {
			data:       []byte{0x08, 1},
			dst:        new([]byte),
			errWrapped: ErrLengthOutOfBounds,
		},
		"huge_slice_length": {
			data:       []byte{0x13, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
			dst:        new([]uint64),
			errWrapped: ErrLengthOutOfBounds,
		},
		"truncated_struct_field": {
			data:       []byte{1, 8, 1},
			dst:        new(nested),
			errWrapped: ErrLengthOutOfBounds,
		},
		"unsupported_type": {
			data:       []byte{0},
			dst:        new(map[string]int),
			errWrapped: ErrUnsupportedType,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := Unmarshal(testCase.data, testCase.dst)

			assert.ErrorIs(t, err, testCase.errWrapped)
		})
	}
}
