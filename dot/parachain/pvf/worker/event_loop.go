// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package worker

import (
	"net"
	"os"
	"strconv"

	"github.com/ChainSafe/gossamer-pvf/internal/log"
)

// EventLoop is run by the worker process. It connects to the host socket,
// removes the socket file and runs the loop until it returns an error.
func EventLoop(debugID, socketPath string, loop func(conn net.Conn) error) {
	conn, err := net.Dial("unix", socketPath)
	if err == nil {
		_ = os.Remove(socketPath)
		err = loop(conn)
		_ = conn.Close()
	}

	workerLogger := logger.New(log.AddContext("worker", debugID, "pid "+strconv.Itoa(os.Getpid())))
	workerLogger.Debugf("event loop stopped: %s", err)
}
