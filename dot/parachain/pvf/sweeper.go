// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pvf

import (
	"context"
	"errors"
	"io/fs"
	"os"
)

const toSweeperCapacity = 100

// runSweeper deletes the files thrown at it until the context is canceled.
// Deletion errors only waste disk space and are logged.
func runSweeper(ctx context.Context, condemned <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path := <-condemned:
			err := os.Remove(path)
			switch {
			case err == nil:
				logger.Tracef("swept the artifact file %s", path)
			case errors.Is(err, fs.ErrNotExist):
				logger.Debugf("the artifact file %s to sweep does not exist", path)
			default:
				logger.Warnf("failed to sweep the artifact file %s: %s", path, err)
			}
		}
	}
}
