// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pvf

import (
	"context"
	"errors"
	"fmt"

	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/artifacts"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/execute"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/metrics"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/prepare"
	"golang.org/x/sync/errgroup"
)

// Runner runs the validation host until the context is canceled or one
// of its components fails. It returns nil if the context was canceled.
type Runner func(ctx context.Context) error

// Start returns a handle to a new validation host and the runner which
// must be run for the host to make progress. Once the runner returned,
// the result senders of all pending requests are dropped and the handle
// returns ErrHostHungUp.
func Start(config Config, metrics *metrics.Metrics) (ValidationHost, Runner) {
	toHost := make(chan toHost, toHostCapacity)
	state := &hostState{done: make(chan struct{})}
	handle := ValidationHost{toHost: toHost, state: state}

	runner := func(ctx context.Context) error {
		defer state.close(toHost)
		return run(ctx, config, metrics, toHost)
	}

	return handle, runner
}

type component struct {
	name string
	run  func(ctx context.Context) error
}

func run(ctx context.Context, config Config, metrics *metrics.Metrics, toHost <-chan toHost) error {
	err := config.Validate()
	if err != nil {
		return err
	}

	artifactsTable, err := artifacts.New(config.CachePath)
	if err != nil {
		return fmt.Errorf("loading artifacts: %w", err)
	}
	logger.Infof("starting validation host with %s and %d cached artifacts",
		config, artifactsTable.Len())
	logger.Tracef("loaded %s", artifactsTable)

	toPrepareQueue := make(chan prepare.ToQueue, toPrepareQueueCapacity)
	fromPrepareQueue := make(chan prepare.FromQueue)
	toPool := make(chan prepare.ToPool)
	fromPool := make(chan prepare.FromPool)
	toExecuteQueue := make(chan execute.ToQueue, toExecuteQueueCapacity)
	toSweeper := make(chan string, toSweeperCapacity)

	pool := prepare.NewPool(metrics, config.PrepareWorkerProgramPath,
		config.PrepareWorkerSpawnTimeout, toPool, fromPool)
	prepareQueue := prepare.NewQueue(metrics, config.PrepareWorkersSoftMaxNum,
		config.PrepareWorkersHardMaxNum, config.CachePath, config.PreparationTimeout,
		toPrepareQueue, fromPrepareQueue, toPool, fromPool)
	executeQueue := execute.NewQueue(metrics, config.ExecuteWorkerProgramPath,
		config.ExecuteWorkerSpawnTimeout, config.ExecuteWorkersMaxNum, toExecuteQueue)

	h := &host{
		cachePath:            config.CachePath,
		cleanupPulseInterval: config.CleanupPulseInterval,
		artifactTTL:          config.ArtifactTTL,
		artifacts:            artifactsTable,
		toHost:               toHost,
		toPrepareQueue:       toPrepareQueue,
		fromPrepareQueue:     fromPrepareQueue,
		toExecuteQueue:       toExecuteQueue,
		toSweeper:            toSweeper,
		awaitingPrepare:      make(awaitingPrepare),
	}

	components := []component{
		{name: "host", run: h.run},
		{name: "prepare queue", run: prepareQueue.Run},
		{name: "prepare pool", run: pool.Run},
		{name: "execute queue", run: executeQueue.Run},
		{name: "sweeper", run: func(ctx context.Context) error {
			return runSweeper(ctx, toSweeper)
		}},
	}

	err = runComponents(ctx, components)

	// nothing reads the execute queue channel anymore.
	for {
		select {
		case msg := <-toExecuteQueue:
			msg.ResultTx.Drop()
		default:
			return err
		}
	}
}

var errComponentExited = errors.New("component exited")

// runComponents runs the components until the first of them exits,
// then stops the others. It returns the first error not caused by
// the cancellation of the context.
func runComponents(ctx context.Context, components []component) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var group errgroup.Group
	for _, c := range components {
		c := c
		group.Go(func() error {
			err := c.run(ctx)
			if err == nil {
				err = errComponentExited
			}
			cancel(fmt.Errorf("%s: %w", c.name, err))

			if errors.Is(err, context.Canceled) || errors.Is(err, errComponentExited) {
				return nil
			}
			logger.Errorf("%s stopped: %s", c.name, err)
			return fmt.Errorf("%s: %w", c.name, err)
		})
	}

	err := group.Wait()
	if err != nil {
		return err
	}

	// a component may have exited on its own without error.
	cause := context.Cause(ctx)
	if errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}
