// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package prepare

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/worker"
)

type outcomeKind uint8

const (
	// outcomeConcluded means the worker replied, successfully or not.
	outcomeConcluded outcomeKind = iota
	// outcomeCreateTmpFileErr means the work was not even started.
	outcomeCreateTmpFileErr
	// outcomeRenameTmpFileErr means the artifact was prepared but could not be moved in place.
	outcomeRenameTmpFileErr
	// outcomeDidNotMakeIt means the worker died or the connection broke.
	outcomeDidNotMakeIt
	// outcomeTimedOut means the worker did not reply in time.
	outcomeTimedOut
)

type outcome struct {
	kind outcomeKind
	// idle is set when the worker survived the work.
	idle   *worker.IdleWorker
	result error
}

// startWork sends the code to the idle worker and waits for the preparation
// to conclude. On success the artifact is moved to the artifact path.
func startWork(idle *worker.IdleWorker, code []byte, artifactPath string,
	preparationTimeout time.Duration) outcome {
	tmpPath, err := worker.TmpFileIn(pvftypes.TmpArtifactPrefix, filepath.Dir(artifactPath))
	if err != nil {
		logger.Warnf("failed to create a temporary file for artifact %s: %s", artifactPath, err)
		return outcome{
			kind:   outcomeCreateTmpFileErr,
			idle:   idle,
			result: pvftypes.NewPrepareError(pvftypes.CreateTmpFile, "%s", err),
		}
	}

	// the worker only writes the temporary file, remove it if it was not moved.
	defer os.Remove(tmpPath)

	err = sendMessage(idle.Conn, request{Code: code, TmpPath: tmpPath})
	if err != nil {
		logger.Warnf("failed to send a prepare request to worker %d: %s", idle.PID, err)
		return outcome{
			kind:   outcomeDidNotMakeIt,
			result: pvftypes.NewPrepareError(pvftypes.DidNotMakeIt, "sending request: %s", err),
		}
	}

	err = idle.Conn.SetReadDeadline(time.Now().Add(preparationTimeout))
	if err != nil {
		return outcome{
			kind:   outcomeDidNotMakeIt,
			result: pvftypes.NewPrepareError(pvftypes.DidNotMakeIt, "setting read deadline: %s", err),
		}
	}

	var resp response
	err = recvMessage(idle.Conn, &resp)
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		logger.Warnf("prepare worker %d timed out after %s", idle.PID, preparationTimeout)
		return outcome{
			kind:   outcomeTimedOut,
			result: pvftypes.NewPrepareError(pvftypes.TimedOut, "after %s", preparationTimeout),
		}
	case err != nil:
		logger.Warnf("failed to receive a prepare response from worker %d: %s", idle.PID, err)
		return outcome{
			kind:   outcomeDidNotMakeIt,
			result: pvftypes.NewPrepareError(pvftypes.DidNotMakeIt, "receiving response: %s", err),
		}
	}

	err = idle.Conn.SetReadDeadline(time.Time{})
	if err != nil {
		return outcome{
			kind:   outcomeDidNotMakeIt,
			result: pvftypes.NewPrepareError(pvftypes.DidNotMakeIt, "clearing read deadline: %s", err),
		}
	}

	result := resp.err()
	if result != nil {
		return outcome{kind: outcomeConcluded, idle: idle, result: result}
	}

	err = os.Rename(tmpPath, artifactPath)
	if err != nil {
		logger.Warnf("failed to rename the artifact from %s to %s: %s", tmpPath, artifactPath, err)
		return outcome{
			kind:   outcomeRenameTmpFileErr,
			idle:   idle,
			result: pvftypes.NewPrepareError(pvftypes.RenameTmpFile, "%s", err),
		}
	}

	return outcome{kind: outcomeConcluded, idle: idle}
}
