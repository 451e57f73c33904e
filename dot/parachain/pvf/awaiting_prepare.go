// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pvf

import (
	"time"

	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
)

// pendingExecutionRequest is an execution request waiting for its artifact to be prepared.
type pendingExecutionRequest struct {
	executionTimeout time.Duration
	params           []byte
	resultTx         pvftypes.ExecuteResultSender
}

// awaitingPrepare maps artifacts being prepared to the execution requests
// to dispatch once their preparation concludes.
type awaitingPrepare map[pvftypes.ArtifactID][]pendingExecutionRequest

func (a awaitingPrepare) add(id pvftypes.ArtifactID, executionTimeout time.Duration,
	params []byte, resultTx pvftypes.ExecuteResultSender) {
	a[id] = append(a[id], pendingExecutionRequest{
		executionTimeout: executionTimeout,
		params:           params,
		resultTx:         resultTx,
	})
}

func (a awaitingPrepare) take(id pvftypes.ArtifactID) []pendingExecutionRequest {
	requests := a[id]
	delete(a, id)
	return requests
}
