// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package worker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_TmpFileIn(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path, err := TmpFileIn("prefix-", dir)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	name := filepath.Base(path)
	require.True(t, strings.HasPrefix(name, "prefix-"))
	assert.Len(t, strings.TrimPrefix(name, "prefix-"), discriminatorLength)
	assert.NoFileExists(t, path)

	err = os.WriteFile(path, nil, 0o600)
	require.NoError(t, err)

	other, err := TmpFileIn("prefix-", dir)
	require.NoError(t, err)
	assert.NotEqual(t, path, other)
}

func Test_TmpFileIn_missingDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "missing")

	path, err := TmpFileIn("x", dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
}
