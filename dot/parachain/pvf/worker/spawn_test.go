// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package worker

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helperArgs returns the extra arguments making the test binary
// run TestHelperWorker in the given mode.
func helperArgs(mode string) []string {
	return []string{"-test.run=^TestHelperWorker$", "--", mode}
}

// TestHelperWorker is not a real test, it is run as a worker
// process by the spawning tests.
func TestHelperWorker(t *testing.T) {
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) != 3 {
		return
	}
	mode, socketPath := args[1], args[2]

	switch mode {
	case "echo":
		EventLoop("echo", socketPath, func(conn net.Conn) error {
			for {
				buf, err := FramedRecv(conn)
				if err != nil {
					return err
				}
				err = FramedSend(conn, buf)
				if err != nil {
					return err
				}
			}
		})
	case "exit":
	case "hang":
		time.Sleep(time.Minute)
	}
	os.Exit(0)
}

func Test_SpawnWithProgramPath(t *testing.T) {
	t.Parallel()

	idle, handle, err := SpawnWithProgramPath(context.Background(), "echo",
		os.Args[0], helperArgs("echo"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(handle.Kill)

	assert.Equal(t, handle.PID(), idle.PID)

	err = FramedSend(idle.Conn, []byte("hello"))
	require.NoError(t, err)
	buf, err := FramedRecv(idle.Conn)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), buf)

	// closing the connection ends the worker event loop and the process.
	err = idle.Conn.Close()
	require.NoError(t, err)

	select {
	case <-handle.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit")
	}
}

func Test_SpawnWithProgramPath_kill(t *testing.T) {
	t.Parallel()

	idle, handle, err := SpawnWithProgramPath(context.Background(), "echo",
		os.Args[0], helperArgs("echo"), 5*time.Second)
	require.NoError(t, err)
	defer idle.Conn.Close()

	handle.Kill()

	select {
	case <-handle.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker was not killed")
	}

	_, err = FramedRecv(idle.Conn)
	assert.Error(t, err)

	handle.Kill()
}

func Test_SpawnWithProgramPath_errors(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		programPath string
		extraArgs   []string
		timeout     time.Duration
		errWrapped  error
	}{
		"program_not_found": {
			programPath: "/does/not/exist",
			timeout:     time.Second,
			errWrapped:  ErrProcessSpawn,
		},
		"worker_exits": {
			programPath: os.Args[0],
			extraArgs:   helperArgs("exit"),
			timeout:     10 * time.Second,
			errWrapped:  ErrAccept,
		},
		"worker_never_connects": {
			programPath: os.Args[0],
			extraArgs:   helperArgs("hang"),
			timeout:     200 * time.Millisecond,
			errWrapped:  ErrAcceptTimeout,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			idle, handle, err := SpawnWithProgramPath(context.Background(), "test",
				testCase.programPath, testCase.extraArgs, testCase.timeout)

			assert.ErrorIs(t, err, testCase.errWrapped)
			assert.Nil(t, idle)
			assert.Nil(t, handle)
		})
	}
}

func Test_SpawnWithProgramPath_contextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := SpawnWithProgramPath(ctx, "test", os.Args[0], helperArgs("hang"), time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
