// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

//go:build !linux

package worker

import "os/exec"

func configureWorker(_ *exec.Cmd) {}
