// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pvf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/artifacts"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/execute"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/prepare"
	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/ChainSafe/gossamer-pvf/internal/log"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "pvf"))

var errDownstreamGone = errors.New("downstream component is gone")

const (
	toPrepareQueueCapacity = 10
	toExecuteQueueCapacity = 10
)

// host is the event loop of the validation host. It is the only owner of
// the artifacts table.
type host struct {
	cachePath            string
	cleanupPulseInterval time.Duration
	artifactTTL          time.Duration
	artifacts            *artifacts.Artifacts

	toHost           <-chan toHost
	toPrepareQueue   chan<- prepare.ToQueue
	fromPrepareQueue <-chan prepare.FromQueue
	toExecuteQueue   chan<- execute.ToQueue
	toSweeper        chan<- string

	awaitingPrepare awaitingPrepare
}

// run runs the host loop until the context is canceled or a downstream
// component is gone. Cleanup pulses are handled first, then commands,
// then prepare completions. All the pending result senders are dropped
// when it returns.
func (h *host) run(ctx context.Context) error {
	defer h.dropPending()

	pulse := time.NewTicker(h.cleanupPulseInterval)
	defer pulse.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		var err error
		select {
		case <-pulse.C:
			err = h.handleCleanupPulse(ctx)
			if err = h.checkFatal(ctx, err); err != nil {
				return err
			}
			continue
		default:
		}

		select {
		case msg := <-h.toHost:
			err = h.handleToHost(ctx, msg)
			if err = h.checkFatal(ctx, err); err != nil {
				return err
			}
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return nil
		case <-pulse.C:
			err = h.handleCleanupPulse(ctx)
		case msg := <-h.toHost:
			err = h.handleToHost(ctx, msg)
		case fromQueue, ok := <-h.fromPrepareQueue:
			if !ok {
				err = fmt.Errorf("%w: prepare queue", errDownstreamGone)
				break
			}
			err = h.handlePrepareDone(ctx, fromQueue)
		}
		if err = h.checkFatal(ctx, err); err != nil {
			return err
		}
	}
}

// checkFatal logs a fatal error once. An error caused by the host
// shutting down is not fatal and nil is returned.
func (h *host) checkFatal(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(context.Cause(ctx), context.Canceled) {
		return nil
	}
	logger.Errorf("fatal error occurred, terminating the host: %s", err)
	return err
}

// dropPending drops every result sender the host still holds.
func (h *host) dropPending() {
	for id, requests := range h.awaitingPrepare {
		for _, request := range requests {
			request.resultTx.Drop()
		}
		delete(h.awaitingPrepare, id)
	}

	for _, id := range h.artifacts.IDs() {
		state := h.artifacts.Get(id)
		if state.Kind != artifacts.Preparing {
			continue
		}
		for _, resultTx := range state.WaitingForResponse {
			resultTx.Drop()
		}
		state.WaitingForResponse = nil
	}
}

func (h *host) handleToHost(ctx context.Context, msg toHost) error {
	switch msg := msg.(type) {
	case precheckPvf:
		return h.handlePrecheckPvf(ctx, msg.pvf, msg.resultTx)
	case executePvf:
		return h.handleExecutePvf(ctx, msg)
	case headsUp:
		return h.handleHeadsUp(ctx, msg.activePvfs)
	case evictArtifacts:
		return h.handleEvictArtifacts(ctx, msg.ids)
	default:
		panic(fmt.Sprintf("unknown message to the host: %T", msg))
	}
}

func (h *host) handlePrecheckPvf(ctx context.Context, pvf pvftypes.Pvf,
	resultTx pvftypes.PrecheckResultSender) error {
	id := pvf.ArtifactID()

	state := h.artifacts.Get(id)
	if state == nil {
		h.artifacts.InsertPreparing(id, []pvftypes.PrecheckResultSender{resultTx})
		return h.sendPrepare(ctx, prepare.ToQueue{Priority: pvftypes.Normal, Pvf: pvf})
	}

	switch state.Kind {
	case artifacts.Prepared:
		state.LastTimeNeeded = time.Now()
		resultTx.Send(nil)
	case artifacts.Preparing:
		state.WaitingForResponse = append(state.WaitingForResponse, resultTx)
	case artifacts.FailedToProcess:
		resultTx.Send(state.Err)
	}
	return nil
}

func (h *host) handleExecutePvf(ctx context.Context, msg executePvf) error {
	id := msg.pvf.ArtifactID()

	state := h.artifacts.Get(id)
	if state == nil {
		h.artifacts.InsertPreparing(id, nil)
		err := h.sendPrepare(ctx, prepare.ToQueue{Priority: msg.priority, Pvf: msg.pvf})
		if err != nil {
			msg.resultTx.Drop()
			return err
		}
		h.awaitingPrepare.add(id, msg.executionTimeout, msg.params, msg.resultTx)
		return nil
	}

	switch state.Kind {
	case artifacts.Prepared:
		state.LastTimeNeeded = time.Now()
		return h.sendExecute(ctx, id, msg.executionTimeout, msg.params, msg.resultTx)
	case artifacts.Preparing:
		h.awaitingPrepare.add(id, msg.executionTimeout, msg.params, msg.resultTx)
	case artifacts.FailedToProcess:
		msg.resultTx.Send(pvftypes.ExecuteResult{Err: pvftypes.ValidationErrorFromPrepare(state.Err)})
	}
	return nil
}

func (h *host) handleHeadsUp(ctx context.Context, activePvfs []pvftypes.Pvf) error {
	now := time.Now()

	for _, pvf := range activePvfs {
		id := pvf.ArtifactID()

		state := h.artifacts.Get(id)
		if state == nil {
			h.artifacts.InsertPreparing(id, nil)
			err := h.sendPrepare(ctx, prepare.ToQueue{Priority: pvftypes.Normal, Pvf: pvf})
			if err != nil {
				return err
			}
			continue
		}

		// preparing artifacts are already in motion and failures are not retried.
		if state.Kind == artifacts.Prepared {
			state.LastTimeNeeded = now
		}
	}

	return nil
}

func (h *host) handleEvictArtifacts(ctx context.Context, ids []pvftypes.ArtifactID) error {
	for _, id := range ids {
		state := h.artifacts.Remove(id)
		if state == nil {
			continue
		}

		logger.Debugf("evicting artifact %s in state %s", id, state.Kind)

		switch state.Kind {
		case artifacts.Prepared:
			err := h.sendSweeper(ctx, id.Path(h.cachePath))
			if err != nil {
				return err
			}
		case artifacts.Preparing:
			for _, resultTx := range state.WaitingForResponse {
				resultTx.Drop()
			}
			for _, request := range h.awaitingPrepare.take(id) {
				request.resultTx.Drop()
			}
		case artifacts.FailedToProcess:
		}
	}
	return nil
}

func (h *host) handlePrepareDone(ctx context.Context, fromQueue prepare.FromQueue) error {
	id := fromQueue.ArtifactID

	state := h.artifacts.Get(id)
	switch {
	case state == nil:
		// the artifact was evicted while it was being prepared.
		logger.Debugf("preparation of the evicted artifact %s concluded: %v", id, fromQueue.Result)
		if fromQueue.Result != nil {
			return nil
		}
		return h.sendSweeper(ctx, id.Path(h.cachePath))
	case state.Kind == artifacts.Prepared:
		logger.Errorf("the artifact is already prepared: %s", id)
		return nil
	case state.Kind == artifacts.FailedToProcess:
		logger.Errorf("the artifact is already processed unsuccessfully: %s", id)
		return nil
	}

	var prepareErr *pvftypes.PrepareError
	if fromQueue.Result != nil && !errors.As(fromQueue.Result, &prepareErr) {
		prepareErr = pvftypes.NewPrepareError(pvftypes.DidNotMakeIt, "%s", fromQueue.Result)
	}

	for _, resultTx := range state.WaitingForResponse {
		if prepareErr != nil {
			resultTx.Send(prepareErr)
			continue
		}
		resultTx.Send(nil)
	}
	state.WaitingForResponse = nil

	if prepareErr != nil {
		*state = artifacts.State{Kind: artifacts.FailedToProcess, Err: prepareErr}
	} else {
		*state = artifacts.State{Kind: artifacts.Prepared, LastTimeNeeded: time.Now()}
	}

	requests := h.awaitingPrepare.take(id)
	for i, request := range requests {
		if request.resultTx.IsCanceled() {
			// the requester lost interest during the preparation.
			request.resultTx.Drop()
			continue
		}

		if prepareErr != nil {
			request.resultTx.Send(pvftypes.ExecuteResult{Err: pvftypes.ValidationErrorFromPrepare(prepareErr)})
			continue
		}

		err := h.sendExecute(ctx, id, request.executionTimeout, request.params, request.resultTx)
		if err != nil {
			for _, remaining := range requests[i+1:] {
				remaining.resultTx.Drop()
			}
			return err
		}
	}

	return nil
}

func (h *host) handleCleanupPulse(ctx context.Context) error {
	toRemove := h.artifacts.Prune(h.artifactTTL)
	logger.Debugf("PVF pruning: %d artifacts reached their end of life", len(toRemove))
	logger.Tracef("after pruning: %s", h.artifacts)

	for _, id := range toRemove {
		logger.Debugf("pruning artifact %s", id)
		err := h.sendSweeper(ctx, id.Path(h.cachePath))
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *host) sendPrepare(ctx context.Context, msg prepare.ToQueue) error {
	select {
	case h.toPrepareQueue <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: prepare queue", errDownstreamGone)
	}
}

// sendExecute forwards the execution to the execute queue, unless its
// requester is no longer interested.
func (h *host) sendExecute(ctx context.Context, id pvftypes.ArtifactID, executionTimeout time.Duration,
	params []byte, resultTx pvftypes.ExecuteResultSender) error {
	if resultTx.IsCanceled() {
		resultTx.Drop()
		return nil
	}

	msg := execute.ToQueue{
		Artifact:         pvftypes.NewArtifactPathID(id, h.cachePath),
		ExecutionTimeout: executionTimeout,
		Params:           params,
		ResultTx:         resultTx,
	}

	select {
	case h.toExecuteQueue <- msg:
		return nil
	case <-ctx.Done():
		resultTx.Drop()
		return fmt.Errorf("%w: execute queue", errDownstreamGone)
	}
}

func (h *host) sendSweeper(ctx context.Context, path string) error {
	select {
	case h.toSweeper <- path:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: sweeper", errDownstreamGone)
	}
}
