// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pvf

import (
	"context"
	"errors"
	"testing"
	"time"

	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ValidationHost_backpressure(t *testing.T) {
	t.Parallel()

	toHost := make(chan toHost)
	handle := ValidationHost{
		toHost: toHost,
		state:  &hostState{done: make(chan struct{})},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := handle.HeadsUp(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func Test_ValidationHost_hostStopped(t *testing.T) {
	t.Parallel()

	// an invalid configuration makes the runner return right away.
	handle, runner := Start(Config{}, nil)

	precheckTx, precheckRx := pvftypes.NewOneshot[error]()
	err := handle.PrecheckPvf(context.Background(), pvftypes.PvfFromDiscriminator(1), precheckTx)
	require.NoError(t, err)

	err = runner(context.Background())
	assert.ErrorContains(t, err, "validating configuration")

	// the command sent before the host stopped is dropped.
	_, err = recv(t, precheckRx)
	assert.ErrorIs(t, err, pvftypes.ErrCanceled)

	executeTx, executeRx := pvftypes.NewOneshot[pvftypes.ExecuteResult]()
	err = handle.ExecutePvf(context.Background(), pvftypes.PvfFromDiscriminator(1),
		time.Second, nil, pvftypes.Normal, executeTx)
	assert.ErrorIs(t, err, ErrHostHungUp)
	executeRx.Cancel()

	err = handle.HeadsUp(context.Background(), nil)
	assert.ErrorIs(t, err, ErrHostHungUp)
	err = handle.EvictArtifacts(context.Background(), nil)
	assert.ErrorIs(t, err, ErrHostHungUp)
}

func Test_runComponents(t *testing.T) {
	t.Parallel()

	errTest := errors.New("test error")
	blocking := component{name: "blocking", run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	failing := component{name: "failing", run: func(context.Context) error {
		return errTest
	}}
	exiting := component{name: "exiting", run: func(context.Context) error {
		return nil
	}}

	testCases := map[string]struct {
		components []component
		cancel     bool
		errWrapped error
		errMessage string
	}{
		"context_canceled": {
			components: []component{blocking, blocking},
			cancel:     true,
		},
		"component_failed": {
			components: []component{blocking, failing},
			errWrapped: errTest,
			errMessage: "failing: test error",
		},
		"component_exited": {
			components: []component{blocking, exiting},
			errWrapped: errComponentExited,
			errMessage: "exiting: component exited",
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if testCase.cancel {
				cancel()
			}

			err := runComponents(ctx, testCase.components)

			assert.ErrorIs(t, err, testCase.errWrapped)
			if testCase.errMessage != "" {
				assert.EqualError(t, err, testCase.errMessage)
			}
		})
	}
}

func Test_awaitingPrepare(t *testing.T) {
	t.Parallel()

	awaiting := make(awaitingPrepare)
	resultTx, _ := pvftypes.NewOneshot[pvftypes.ExecuteResult]()

	awaiting.add(artifactID(1), time.Second, []byte{1}, resultTx)
	awaiting.add(artifactID(1), 2*time.Second, []byte{2}, resultTx)
	awaiting.add(artifactID(2), time.Second, []byte{3}, resultTx)

	requests := awaiting.take(artifactID(1))
	require.Len(t, requests, 2)
	assert.Equal(t, []byte{1}, requests[0].params)
	assert.Equal(t, 2*time.Second, requests[1].executionTimeout)

	assert.Empty(t, awaiting.take(artifactID(1)))
	assert.Len(t, awaiting, 1)
}
