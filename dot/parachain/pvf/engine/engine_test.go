// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package engine

import (
	"bytes"
	"context"
	"testing"
	"time"

	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Engine_Prepare(t *testing.T) {
	t.Parallel()

	compressed, err := Compress(EchoModule())
	require.NoError(t, err)

	withoutEntryPoint := bytes.Replace(EchoModule(), []byte("validate_block"), []byte("validate_blocc"), 1)

	testCases := map[string]struct {
		code       []byte
		artifact   []byte
		errWrapped error
	}{
		"plain_wasm": {
			code:     EchoModule(),
			artifact: EchoModule(),
		},
		"compressed_wasm": {
			code:     compressed,
			artifact: EchoModule(),
		},
		"not_wasm": {
			code:       []byte{1, 2, 3, 4, 5},
			errWrapped: &pvftypes.PrepareError{Kind: pvftypes.Prevalidation},
		},
		"corrupted_compression": {
			code:       append(append([]byte(nil), zstdPrefix...), 1, 2, 3),
			errWrapped: &pvftypes.PrepareError{Kind: pvftypes.Prevalidation},
		},
		"invalid_module": {
			code:       append(EchoModule()[:8], 0xff),
			errWrapped: &pvftypes.PrepareError{Kind: pvftypes.Preparation},
		},
		"missing_entry_point": {
			code:       withoutEntryPoint,
			errWrapped: &pvftypes.PrepareError{Kind: pvftypes.Preparation},
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			artifact, err := New().Prepare(context.Background(), testCase.code)

			assert.ErrorIs(t, err, testCase.errWrapped)
			assert.Equal(t, testCase.artifact, artifact)
		})
	}
}

func Test_Engine_Execute(t *testing.T) {
	t.Parallel()

	params := []byte("parameters")
	output, err := New().Execute(context.Background(), EchoModule(), params)
	require.NoError(t, err)
	assert.Equal(t, params, output)

	large := bytes.Repeat([]byte{1}, 2*pageSize)
	output, err = New().Execute(context.Background(), EchoModule(), large)
	require.NoError(t, err)
	assert.Equal(t, large, output)
}

func Test_Engine_Execute_timeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := New().Execute(ctx, LoopModule(), nil)
	assert.ErrorIs(t, err, ErrTimedOut)
}

// startLoopModule returns a wasm module whose start function never returns.
func startLoopModule() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		// type section: () -> ()
		0x01, 0x04, 0x01, 0x60, 0x00, 0x00,
		// function section
		0x03, 0x02, 0x01, 0x00,
		// start section: function 0
		0x08, 0x01, 0x00,
		// code section: loop; br 0; end; end
		0x0a, 0x09, 0x01, 0x07, 0x00, 0x03, 0x40, 0x0c, 0x00, 0x0b, 0x0b,
	}
}

func Test_Engine_Execute_startFunctionTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := New().Execute(ctx, startLoopModule(), nil)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.NotErrorIs(t, err, ErrExecution)
}

func Test_Engine_Execute_invalidArtifact(t *testing.T) {
	t.Parallel()

	_, err := New().Execute(context.Background(), []byte("garbage"), nil)
	assert.ErrorIs(t, err, ErrExecution)
}

func Test_MaybeDecompress(t *testing.T) {
	t.Parallel()

	blob := bytes.Repeat([]byte{7}, 1000)
	compressed, err := Compress(blob)
	require.NoError(t, err)

	decompressed, err := MaybeDecompress(compressed, CodeBombLimit)
	require.NoError(t, err)
	assert.Equal(t, blob, decompressed)

	_, err = MaybeDecompress(compressed, 10)
	assert.Error(t, err)

	plain, err := MaybeDecompress([]byte{1, 2}, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, plain)
}
