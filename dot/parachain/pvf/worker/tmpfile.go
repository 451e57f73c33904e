// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package worker

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrTmpFileRetries is returned when no free temporary path was found.
var ErrTmpFileRetries = errors.New("failed to create a temporary file")

const (
	discriminatorLength = 10
	tmpFileRetries      = 50
)

// TmpFileIn returns a path that does not exist yet under the given directory.
// The file name starts with the given prefix followed by a random
// alphanumeric discriminator.
func TmpFileIn(prefix, dir string) (path string, err error) {
	for i := 0; i < tmpFileRetries; i++ {
		discriminator := strings.ReplaceAll(uuid.NewString(), "-", "")[:discriminatorLength]
		candidate := filepath.Join(dir, prefix+discriminator)

		_, err = os.Lstat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
	}
	return "", ErrTmpFileRetries
}

// TmpFile is the same as TmpFileIn using the default temporary directory.
func TmpFile(prefix string) (path string, err error) {
	return TmpFileIn(prefix, os.TempDir())
}
