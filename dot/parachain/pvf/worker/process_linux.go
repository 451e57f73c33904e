// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

//go:build linux

package worker

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureWorker makes the kernel kill the worker if the host dies.
func configureWorker(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: unix.SIGKILL}
}
