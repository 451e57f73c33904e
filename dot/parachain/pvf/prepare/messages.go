// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package prepare

import (
	"time"

	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
)

// ToQueue is a message sent by the host to the prepare queue.
type ToQueue struct {
	// Priority of the preparation. The code must not be
	// enqueued while an earlier enqueue of it is not concluded.
	Priority pvftypes.Priority
	Pvf      pvftypes.Pvf
}

// FromQueue is a message sent by the prepare queue to the host,
// once the preparation of an artifact concluded.
type FromQueue struct {
	ArtifactID pvftypes.ArtifactID
	// Result is nil if the artifact was prepared, a *pvftypes.PrepareError otherwise.
	Result error
}

// Worker identifies a prepare worker in the pool.
type Worker uint64

// ToPool is a message sent by the prepare queue to the pool.
type ToPool interface {
	isToPool()
}

// Spawn requests the pool to spawn a new worker.
// The pool replies with Spawned once the worker is up.
type Spawn struct{}

// Kill requests the pool to kill an idle worker.
type Kill struct {
	Worker Worker
}

// StartWork requests the pool to prepare the code with an idle worker.
// The pool replies with Concluded, or Rip if the worker died before it
// received the work.
type StartWork struct {
	Worker             Worker
	Code               []byte
	ArtifactPath       string
	PreparationTimeout time.Duration
}

func (Spawn) isToPool()     {}
func (Kill) isToPool()      {}
func (StartWork) isToPool() {}

// FromPool is a message sent by the pool to the prepare queue.
type FromPool interface {
	isFromPool()
}

// Spawned reports a new idle worker.
type Spawned struct {
	Worker Worker
}

// Concluded reports the worker concluded its work. If Rip is true
// the worker was killed or died and it is no longer in the pool.
type Concluded struct {
	Worker Worker
	Rip    bool
	Result error
}

// Rip reports an idle worker died and was removed from the pool.
type Rip struct {
	Worker Worker
}

func (Spawned) isFromPool()   {}
func (Concluded) isFromPool() {}
func (Rip) isFromPool()       {}
