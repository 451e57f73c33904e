// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/ChainSafe/gossamer-pvf/internal/log"
	"github.com/qdm12/gotree"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "pvf-artifacts"))

// Kind is the kind of state an artifact is in.
type Kind uint8

const (
	// Preparing means the artifact is being prepared by a prepare worker.
	Preparing Kind = iota
	// Prepared means the artifact is ready to be executed.
	Prepared
	// FailedToProcess means the preparation failed and will not be retried.
	FailedToProcess
)

func (k Kind) String() string {
	switch k {
	case Preparing:
		return "preparing"
	case Prepared:
		return "prepared"
	case FailedToProcess:
		return "failed to process"
	default:
		return fmt.Sprintf("unknown kind %d", uint8(k))
	}
}

// State is the state of an artifact. Which fields are set depends on the kind.
type State struct {
	Kind Kind

	// WaitingForResponse holds the precheck requesters waiting for
	// the preparation to conclude, for the Preparing kind only.
	WaitingForResponse []pvftypes.PrecheckResultSender

	// LastTimeNeeded is the last time the artifact was requested,
	// for the Prepared kind only.
	LastTimeNeeded time.Time

	// Err is the cached preparation error, for the FailedToProcess kind only.
	Err *pvftypes.PrepareError
}

// Artifacts is the table of known artifacts. It is not safe for
// concurrent use and must be owned by a single goroutine.
type Artifacts struct {
	artifacts map[pvftypes.ArtifactID]*State
}

// Empty returns an artifacts table without any artifact.
func Empty() *Artifacts {
	return &Artifacts{
		artifacts: make(map[pvftypes.ArtifactID]*State),
	}
}

// New creates the cache directory if needed and scans it. Every file named
// after an artifact is registered as prepared, last needed at its modification
// time. Other entries named like the ones the host creates are left over from
// an earlier run and are removed. Unrelated entries are left untouched.
func New(cachePath string) (*Artifacts, error) {
	const perm = 0o700
	err := os.MkdirAll(cachePath, perm)
	if err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	entries, err := os.ReadDir(cachePath)
	if err != nil {
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}

	a := Empty()
	for _, entry := range entries {
		path := filepath.Join(cachePath, entry.Name())

		if !pvftypes.IsCacheEntryName(entry.Name()) {
			logger.Warnf("ignoring unknown entry %s in the cache directory", path)
			continue
		}

		id, err := pvftypes.ArtifactIDFromFileName(entry.Name())
		if err != nil || !entry.Type().IsRegular() {
			removeStale(path)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			removeStale(path)
			continue
		}

		a.InsertPrepared(id, info.ModTime())
	}

	logger.Debugf("found %d artifacts in cache directory %s", a.Len(), cachePath)
	return a, nil
}

func removeStale(path string) {
	err := os.RemoveAll(path)
	if err != nil {
		logger.Warnf("removing stale cache entry %s: %s", path, err)
		return
	}
	logger.Debugf("removed stale cache entry %s", path)
}

// Get returns the state of the artifact, or nil if the artifact is unknown.
// The returned state can be modified in place.
func (a *Artifacts) Get(id pvftypes.ArtifactID) *State {
	return a.artifacts[id]
}

// InsertPreparing registers a new artifact as being prepared, with the given
// precheck requesters waiting for the outcome. The artifact must be unknown.
func (a *Artifacts) InsertPreparing(id pvftypes.ArtifactID, waitingForResponse []pvftypes.PrecheckResultSender) {
	a.artifacts[id] = &State{
		Kind:               Preparing,
		WaitingForResponse: waitingForResponse,
	}
}

// InsertPrepared registers an artifact as prepared.
func (a *Artifacts) InsertPrepared(id pvftypes.ArtifactID, lastTimeNeeded time.Time) {
	a.artifacts[id] = &State{
		Kind:           Prepared,
		LastTimeNeeded: lastTimeNeeded,
	}
}

// Remove forgets the artifact and returns its last state, or nil if
// the artifact was unknown.
func (a *Artifacts) Remove(id pvftypes.ArtifactID) *State {
	state, ok := a.artifacts[id]
	if !ok {
		return nil
	}
	delete(a.artifacts, id)
	return state
}

// Prune removes the prepared artifacts not needed for longer than the
// given time to live, and returns their identifiers. Artifacts in other
// states are never pruned.
func (a *Artifacts) Prune(ttl time.Duration) (pruned []pvftypes.ArtifactID) {
	now := time.Now()
	for id, state := range a.artifacts {
		if state.Kind != Prepared {
			continue
		}

		if now.Sub(state.LastTimeNeeded) > ttl {
			delete(a.artifacts, id)
			pruned = append(pruned, id)
		}
	}
	return pruned
}

// Len returns the number of known artifacts.
func (a *Artifacts) Len() int {
	return len(a.artifacts)
}

// IDs returns the identifiers of all the known artifacts, sorted by code hash.
func (a *Artifacts) IDs() (ids []pvftypes.ArtifactID) {
	ids = make([]pvftypes.ArtifactID, 0, len(a.artifacts))
	for id := range a.artifacts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].CodeHash.String() < ids[j].CodeHash.String()
	})
	return ids
}

func (a *Artifacts) String() string {
	tree := gotree.New("Artifacts")
	for _, id := range a.IDs() {
		state := a.artifacts[id]
		node := tree.Appendf("%s: %s", id, state.Kind)
		switch state.Kind {
		case Preparing:
			node.Appendf("waiting for response: %d", len(state.WaitingForResponse))
		case Prepared:
			node.Appendf("last time needed: %s", state.LastTimeNeeded.Format(time.RFC3339))
		case FailedToProcess:
			node.Appendf("error: %s", state.Err)
		}
	}
	return tree.String()
}
