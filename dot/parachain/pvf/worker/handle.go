// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package worker

import (
	"fmt"
	"io"
	"os/exec"
)

// Handle represents a potentially running worker process.
// The process termination is detected by its standard output being closed.
type Handle struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func newHandle(cmd *exec.Cmd, stdout io.Reader) *Handle {
	h := &Handle{
		cmd:  cmd,
		done: make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		// anything written by the worker is discarded, we only wait for EOF.
		_, _ = io.Copy(io.Discard, stdout)
		_ = cmd.Wait()
	}()

	return h
}

// Done returns a channel closed once the worker process has terminated.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Kill kills the worker process. It is safe to call it on a terminated worker.
func (h *Handle) Kill() {
	select {
	case <-h.done:
		return
	default:
	}
	_ = h.cmd.Process.Kill()
}

// PID returns the process identifier of the worker.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

func (h *Handle) String() string {
	return fmt.Sprintf("WorkerHandle(pid=%d)", h.PID())
}
