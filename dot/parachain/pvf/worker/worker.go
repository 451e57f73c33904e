// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package worker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/ChainSafe/gossamer-pvf/internal/log"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "pvf-worker"))

var (
	// ErrTmpFile is returned when no temporary socket path could be obtained.
	ErrTmpFile = errors.New("cannot obtain a temporary file location")
	// ErrBind is returned when the socket cannot be bound to its path.
	ErrBind = errors.New("cannot bind the socket")
	// ErrAccept is returned when accepting the worker connection failed.
	ErrAccept = errors.New("cannot accept the worker connection")
	// ErrProcessSpawn is returned when the worker process cannot be started.
	ErrProcessSpawn = errors.New("cannot spawn the worker process")
	// ErrAcceptTimeout is returned when the worker did not connect in time.
	ErrAcceptTimeout = errors.New("worker did not connect in time")
)

// IdleWorker is a worker connected to the host and not doing any job.
// It is passed by value to the routine starting a job, and is not
// given back if the worker dies on duty.
type IdleWorker struct {
	// Conn is the connection to the worker process.
	Conn net.Conn
	// PID is the process identifier of the worker.
	PID int
}

// SpawnWithProgramPath starts the worker program with the given extra arguments
// followed by the path of a transient unix socket, and waits for the worker to
// connect to that socket within the spawn timeout.
func SpawnWithProgramPath(ctx context.Context, debugID, programPath string,
	extraArgs []string, spawnTimeout time.Duration) (idle *IdleWorker, handle *Handle, err error) {
	socketPath, err := TmpFile("pvf-host-" + debugID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTmpFile, err)
	}
	// the worker removes the socket file once connected, this covers a failed rendezvous.
	defer os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		logger.Warnf("%s: cannot bind unix socket: %s", debugID, err)
		return nil, nil, fmt.Errorf("%w: %w", ErrBind, err)
	}
	defer listener.Close()

	args := make([]string, 0, len(extraArgs)+1)
	args = append(args, extraArgs...)
	args = append(args, socketPath)
	handle, err = spawn(programPath, args)
	if err != nil {
		logger.Warnf("%s: cannot spawn a worker: %s", debugID, err)
		return nil, nil, fmt.Errorf("%w: %w", ErrProcessSpawn, err)
	}

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	accepted := make(chan acceptResult, 1)
	go func() {
		conn, err := listener.Accept()
		accepted <- acceptResult{conn: conn, err: err}
	}()

	timer := time.NewTimer(spawnTimeout)
	defer timer.Stop()

	select {
	case result := <-accepted:
		if result.err != nil {
			logger.Warnf("%s: cannot accept a worker: %s", debugID, result.err)
			handle.Kill()
			return nil, nil, fmt.Errorf("%w: %w", ErrAccept, result.err)
		}
		return &IdleWorker{Conn: result.conn, PID: handle.PID()}, handle, nil
	case <-timer.C:
		err = ErrAcceptTimeout
	case <-handle.Done():
		err = fmt.Errorf("%w: worker exited before connecting", ErrAccept)
	case <-ctx.Done():
		err = ctx.Err()
	}

	handle.Kill()
	_ = listener.Close()
	if result := <-accepted; result.conn != nil {
		_ = result.conn.Close()
	}
	return nil, nil, err
}

func spawn(programPath string, args []string) (*Handle, error) {
	cmd := exec.Command(programPath, args...)
	cmd.Stdin = nil
	cmd.Stderr = os.Stderr
	configureWorker(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("piping stdout: %w", err)
	}

	err = cmd.Start()
	if err != nil {
		return nil, err
	}

	return newHandle(cmd, stdout), nil
}
