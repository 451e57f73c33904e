// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package engine

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// CodeBombLimit is the maximum size of decompressed validation code.
const CodeBombLimit = 3 * 1024 * 1024 * 4

// zstdPrefix indicates a blob should be decompressed with zstd.
// It differs from the wasm magic bytes, so wasm blobs never carry it.
var zstdPrefix = []byte{82, 188, 83, 118, 70, 219, 142, 5}

// ErrBombLimit is returned when the decompressed blob exceeds the bomb limit.
var ErrBombLimit = errors.New("decompressed size exceeds limit")

// MaybeDecompress decompresses the blob if it carries the zstd prefix,
// and returns it unchanged otherwise.
func MaybeDecompress(blob []byte, bombLimit uint64) ([]byte, error) {
	if !bytes.HasPrefix(blob, zstdPrefix) {
		return blob, nil
	}

	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(bombLimit),
		zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	decompressed, err := decoder.DecodeAll(blob[len(zstdPrefix):], nil)
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrBombLimit, err)
		}
		return nil, fmt.Errorf("decompressing: %w", err)
	}

	if uint64(len(decompressed)) > bombLimit {
		return nil, fmt.Errorf("%w: %d bytes", ErrBombLimit, len(decompressed))
	}
	return decompressed, nil
}

// Compress compresses the blob with zstd and prefixes it so that
// MaybeDecompress recognises it.
func Compress(blob []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	defer encoder.Close()

	compressed := append([]byte(nil), zstdPrefix...)
	return encoder.EncodeAll(blob, compressed), nil
}
