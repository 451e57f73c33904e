// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package execute

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/engine"
	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/worker"
)

// Executor runs an artifact with the given parameters.
type Executor interface {
	Execute(ctx context.Context, artifact, params []byte) (output []byte, err error)
}

// WorkerEntrypoint is the entrypoint of the execute worker process.
// It serves execution requests from the host on the socket until the
// connection breaks.
func WorkerEntrypoint(socketPath string, executor Executor) {
	worker.EventLoop("execute", socketPath, func(conn net.Conn) error {
		for {
			var req request
			err := recvMessage(conn, &req)
			if err != nil {
				return fmt.Errorf("receiving request: %w", err)
			}

			resp := validateUsingArtifact(executor, req.ArtifactPath,
				req.Params, time.Duration(req.ExecutionTimeoutNanos))

			err = sendMessage(conn, resp)
			if err != nil {
				return fmt.Errorf("sending response: %w", err)
			}
		}
	})
}

func validateUsingArtifact(executor Executor, artifactPath string,
	params []byte, executionTimeout time.Duration) response {
	artifact, err := os.ReadFile(artifactPath)
	if err != nil {
		return response{
			Kind: responseInternalError,
			Msg:  fmt.Sprintf("reading artifact: %s", err),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), executionTimeout)
	defer cancel()

	start := time.Now()
	output, err := executor.Execute(ctx, artifact, params)
	duration := time.Since(start)

	switch {
	case errors.Is(err, engine.ErrTimedOut):
		return response{Kind: responseTimedOut}
	case err != nil:
		return response{
			Kind: responseInvalidCandidate,
			Msg:  err.Error(),
		}
	}

	// the output is decoded here so malformed bytes returned by the PVF
	// never reach the host.
	result, err := pvftypes.DecodeValidationResult(output)
	if err != nil {
		return response{
			Kind: responseInvalidCandidate,
			Msg:  "validation result decoding failed: " + err.Error(),
		}
	}

	return response{
		Kind:           responseOk,
		Result:         &result,
		DurationMillis: uint64(duration.Milliseconds()),
	}
}
