// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package prepare

import (
	"context"
	"fmt"
	"net"
	"os"

	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/worker"
)

// Preparer turns validation code into an artifact.
type Preparer interface {
	Prepare(ctx context.Context, code []byte) (artifact []byte, err error)
}

// WorkerEntrypoint is the entrypoint of the prepare worker process.
// It serves preparation requests from the host on the socket until the
// connection breaks.
func WorkerEntrypoint(socketPath string, preparer Preparer) {
	worker.EventLoop("prepare", socketPath, func(conn net.Conn) error {
		for {
			var req request
			err := recvMessage(conn, &req)
			if err != nil {
				return fmt.Errorf("receiving request: %w", err)
			}

			artifact, err := prepareArtifact(preparer, req.Code)
			if err == nil {
				const perm = 0o600
				err = os.WriteFile(req.TmpPath, artifact, perm)
				if err != nil {
					// the host observes the worker death and reports it.
					return fmt.Errorf("writing artifact: %w", err)
				}
			}

			err = sendMessage(conn, newResponse(err))
			if err != nil {
				return fmt.Errorf("sending response: %w", err)
			}
		}
	})
}

func prepareArtifact(preparer Preparer, code []byte) (artifact []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			artifact = nil
			err = pvftypes.NewPrepareError(pvftypes.Panic, "%v", r)
		}
	}()

	return preparer.Prepare(context.Background(), code)
}
