// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pvftypes

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ChainSafe/gossamer-pvf/lib/common"
)

// Pvf is a parachain validation function: a code blob together with
// the hash identifying it.
type Pvf struct {
	Code     []byte
	CodeHash common.Hash
}

// NewPvf returns a Pvf for the given code, hashing it with blake2b-256.
func NewPvf(code []byte) Pvf {
	return Pvf{
		Code:     code,
		CodeHash: common.MustBlake2bHash(code),
	}
}

// PvfFromDiscriminator returns a Pvf whose code is the little endian
// encoding of the discriminator. It is meant for tests only, where
// distinct code hashes are needed but the code is never compiled.
func PvfFromDiscriminator(discriminator uint32) Pvf {
	code := make([]byte, 4)
	binary.LittleEndian.PutUint32(code, discriminator)
	return NewPvf(code)
}

// ArtifactID returns the identifier of the artifact produced for this Pvf.
func (p Pvf) ArtifactID() ArtifactID {
	return ArtifactID{CodeHash: p.CodeHash}
}

func (p Pvf) String() string {
	return fmt.Sprintf("Pvf{code_hash: %s}", p.CodeHash.Short())
}

const artifactPrefix = "wazero_"

// TmpArtifactPrefix prefixes the temporary files prepare workers write
// artifacts to, inside the cache directory.
const TmpArtifactPrefix = "prepare-artifact-"

// IsCacheEntryName returns true if the file name is one the host creates
// in the cache directory, either an artifact or a temporary artifact.
func IsCacheEntryName(fileName string) bool {
	return strings.HasPrefix(fileName, artifactPrefix) ||
		strings.HasPrefix(fileName, TmpArtifactPrefix)
}

// ErrArtifactFileName is returned when a file name cannot be
// parsed as an artifact identifier.
var ErrArtifactFileName = errors.New("not an artifact file name")

// ArtifactID identifies a prepared artifact. Two Pvfs with the same
// code hash share the same artifact.
type ArtifactID struct {
	CodeHash common.Hash
}

// ArtifactIDFromFileName parses the file name produced by FileName.
func ArtifactIDFromFileName(fileName string) (id ArtifactID, err error) {
	encodedHash, ok := strings.CutPrefix(fileName, artifactPrefix)
	if !ok {
		return id, fmt.Errorf("%w: %s", ErrArtifactFileName, fileName)
	}

	hash, err := common.HexToHash(encodedHash)
	if err != nil {
		return id, fmt.Errorf("%w: %s: %w", ErrArtifactFileName, fileName, err)
	}
	return ArtifactID{CodeHash: hash}, nil
}

// FileName returns the file name of the artifact inside the cache directory.
func (a ArtifactID) FileName() string {
	return artifactPrefix + a.CodeHash.String()
}

// Path returns the full path of the artifact inside the given cache directory.
func (a ArtifactID) Path(cacheDir string) string {
	return filepath.Join(cacheDir, a.FileName())
}

func (a ArtifactID) String() string {
	return a.CodeHash.Short()
}

// ArtifactPathID is an artifact identifier together with the path
// of the file holding it.
type ArtifactPathID struct {
	ID   ArtifactID
	Path string
}

// NewArtifactPathID returns the artifact id and path of the artifact
// for the given id in the cache directory.
func NewArtifactPathID(id ArtifactID, cacheDir string) ArtifactPathID {
	return ArtifactPathID{ID: id, Path: id.Path(cacheDir)}
}

// Priority is the priority of a preparation job.
type Priority uint8

const (
	// Normal is the default priority, used for prechecks and for
	// executions related to approvals or disputes.
	Normal Priority = iota
	// Critical is the priority of executions required to back a candidate.
	// Preparation jobs with this priority may exceed the soft
	// limit of prepare workers.
	Critical
)

// IsCritical returns true if the priority is Critical.
func (p Priority) IsCritical() bool {
	return p == Critical
}

func (p Priority) String() string {
	switch p {
	case Normal:
		return "normal"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("unknown priority %d", uint8(p))
	}
}
