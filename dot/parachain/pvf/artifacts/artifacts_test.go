// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package artifacts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func artifactID(discriminator uint32) pvftypes.ArtifactID {
	return pvftypes.PvfFromDiscriminator(discriminator).ArtifactID()
}

func Test_New(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()

	prepared := artifactID(1)
	preparedPath := prepared.Path(cacheDir)
	err := os.WriteFile(preparedPath, []byte("artifact"), 0o600)
	require.NoError(t, err)
	modTime := time.Now().Add(-time.Hour).Truncate(time.Second)
	err = os.Chtimes(preparedPath, modTime, modTime)
	require.NoError(t, err)

	stalePath := filepath.Join(cacheDir, "prepare-artifact-abcdefghij")
	err = os.WriteFile(stalePath, nil, 0o600)
	require.NoError(t, err)

	staleDir := filepath.Join(cacheDir, artifactID(2).FileName())
	err = os.Mkdir(staleDir, 0o700)
	require.NoError(t, err)

	staleName := filepath.Join(cacheDir, "wazero_0xnothex")
	err = os.WriteFile(staleName, nil, 0o600)
	require.NoError(t, err)

	unrelatedFile := filepath.Join(cacheDir, "notes.txt")
	err = os.WriteFile(unrelatedFile, []byte("keep"), 0o600)
	require.NoError(t, err)

	unrelatedDir := filepath.Join(cacheDir, "data")
	err = os.Mkdir(unrelatedDir, 0o700)
	require.NoError(t, err)

	artifacts, err := New(cacheDir)
	require.NoError(t, err)

	assert.Equal(t, 1, artifacts.Len())
	state := artifacts.Get(prepared)
	require.NotNil(t, state)
	assert.Equal(t, Prepared, state.Kind)
	assert.True(t, modTime.Equal(state.LastTimeNeeded))

	assert.NoFileExists(t, stalePath)
	assert.NoDirExists(t, staleDir)
	assert.NoFileExists(t, staleName)
	assert.FileExists(t, preparedPath)
	assert.FileExists(t, unrelatedFile)
	assert.DirExists(t, unrelatedDir)
}

func Test_New_createsDirectory(t *testing.T) {
	t.Parallel()

	cacheDir := filepath.Join(t.TempDir(), "a", "b")

	artifacts, err := New(cacheDir)
	require.NoError(t, err)

	assert.Equal(t, 0, artifacts.Len())
	assert.DirExists(t, cacheDir)
}

func Test_Artifacts_Prune(t *testing.T) {
	t.Parallel()

	now := time.Now()
	const ttl = time.Hour

	artifacts := Empty()
	artifacts.InsertPrepared(artifactID(1), now.Add(-2*ttl))
	artifacts.InsertPrepared(artifactID(2), now)
	artifacts.InsertPreparing(artifactID(3), nil)
	artifacts.artifacts[artifactID(4)] = &State{
		Kind: FailedToProcess,
		Err:  pvftypes.NewPrepareError(pvftypes.Preparation, "test"),
	}

	pruned := artifacts.Prune(ttl)

	assert.Equal(t, []pvftypes.ArtifactID{artifactID(1)}, pruned)
	assert.Nil(t, artifacts.Get(artifactID(1)))
	assert.Equal(t, 3, artifacts.Len())

	assert.Empty(t, artifacts.Prune(ttl))
}

func Test_Artifacts_Remove(t *testing.T) {
	t.Parallel()

	artifacts := Empty()
	sender, _ := pvftypes.NewOneshot[error]()
	artifacts.InsertPreparing(artifactID(1), []pvftypes.PrecheckResultSender{sender})

	state := artifacts.Remove(artifactID(1))
	require.NotNil(t, state)
	assert.Equal(t, Preparing, state.Kind)
	assert.Len(t, state.WaitingForResponse, 1)

	assert.Nil(t, artifacts.Remove(artifactID(1)))
	assert.Equal(t, 0, artifacts.Len())
}

func Test_Artifacts_String(t *testing.T) {
	t.Parallel()

	artifacts := Empty()
	artifacts.InsertPreparing(artifactID(1), nil)

	s := artifacts.String()
	assert.Contains(t, s, "Artifacts")
	assert.Contains(t, s, artifactID(1).String()+": preparing")
	assert.Contains(t, s, "waiting for response: 0")
}
