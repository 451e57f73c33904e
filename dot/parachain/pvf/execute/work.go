// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package execute

import (
	"errors"
	"os"
	"time"

	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/worker"
)

// JobTimeoutWallClockFactor multiplies the execution timeout to obtain the
// wall clock time after which the host kills the worker. The worker enforces
// the execution timeout itself, this is the backstop for a stuck worker.
const JobTimeoutWallClockFactor = 4

type outcome struct {
	// idle is set when the worker survived the job.
	idle     *worker.IdleWorker
	result   pvftypes.ValidationResult
	err      error
	duration time.Duration
}

// startWork sends the job to the idle worker and waits for its response.
func startWork(idle *worker.IdleWorker, artifactPath string,
	executionTimeout time.Duration, params []byte) outcome {
	err := sendMessage(idle.Conn, request{
		ArtifactPath:          artifactPath,
		Params:                params,
		ExecutionTimeoutNanos: uint64(executionTimeout),
	})
	if err != nil {
		logger.Warnf("failed to send an execute request to worker %d: %s", idle.PID, err)
		return ambiguousWorkerDeath(err)
	}

	err = idle.Conn.SetReadDeadline(time.Now().Add(executionTimeout * JobTimeoutWallClockFactor))
	if err != nil {
		return ambiguousWorkerDeath(err)
	}

	var resp response
	err = recvMessage(idle.Conn, &resp)
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		logger.Warnf("execute worker %d exceeded the wall clock timeout", idle.PID)
		return hardTimeout()
	case err != nil:
		logger.Warnf("failed to receive an execute response from worker %d: %s", idle.PID, err)
		return ambiguousWorkerDeath(err)
	}

	err = idle.Conn.SetReadDeadline(time.Time{})
	if err != nil {
		return ambiguousWorkerDeath(err)
	}

	duration := time.Duration(resp.DurationMillis) * time.Millisecond
	switch resp.Kind {
	case responseOk:
		if resp.Result == nil {
			return outcome{
				idle: idle,
				err:  &pvftypes.InternalError{Msg: "execute worker sent no validation result"},
			}
		}
		return outcome{idle: idle, result: *resp.Result, duration: duration}
	case responseInvalidCandidate:
		return outcome{
			idle: idle,
			err: &pvftypes.InvalidCandidateError{
				Kind: pvftypes.WorkerReportedError,
				Msg:  resp.Msg,
			},
		}
	case responseInternalError:
		return outcome{
			idle: idle,
			err:  &pvftypes.InternalError{Msg: resp.Msg},
		}
	case responseTimedOut:
		return hardTimeout()
	default:
		return ambiguousWorkerDeath(errors.New("unknown response kind"))
	}
}

func hardTimeout() outcome {
	return outcome{
		err: &pvftypes.InvalidCandidateError{Kind: pvftypes.HardTimeout},
	}
}

func ambiguousWorkerDeath(err error) outcome {
	return outcome{
		err: &pvftypes.InvalidCandidateError{
			Kind: pvftypes.AmbiguousWorkerDeath,
			Msg:  err.Error(),
		},
	}
}
