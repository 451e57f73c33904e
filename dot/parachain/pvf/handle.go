// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pvf

import (
	"context"
	"errors"
	"sync"
	"time"

	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
)

// ErrHostHungUp is returned by the validation host handle once the host stopped.
var ErrHostHungUp = errors.New("the inner loop hung up")

const toHostCapacity = 10

// toHost is a command sent by the handle to the host loop.
type toHost interface {
	isToHost()
}

type precheckPvf struct {
	pvf      pvftypes.Pvf
	resultTx pvftypes.PrecheckResultSender
}

type executePvf struct {
	pvf              pvftypes.Pvf
	executionTimeout time.Duration
	params           []byte
	priority         pvftypes.Priority
	resultTx         pvftypes.ExecuteResultSender
}

type headsUp struct {
	activePvfs []pvftypes.Pvf
}

type evictArtifacts struct {
	ids []pvftypes.ArtifactID
}

func (precheckPvf) isToHost()    {}
func (executePvf) isToHost()     {}
func (headsUp) isToHost()        {}
func (evictArtifacts) isToHost() {}

// dropSenders drops the result sender carried by the command, if any.
func dropSenders(msg toHost) {
	switch msg := msg.(type) {
	case precheckPvf:
		msg.resultTx.Drop()
	case executePvf:
		msg.resultTx.Drop()
	}
}

// hostState is shared by all the copies of a handle and the runner.
type hostState struct {
	mutex  sync.RWMutex
	closed bool
	// done is closed as soon as the host stopped.
	done chan struct{}
}

// ValidationHost is a handle to the validation host. It is cheap to copy
// and safe for concurrent use. Its methods only block if the host is
// under pressure.
type ValidationHost struct {
	toHost chan<- toHost
	state  *hostState
}

// PrecheckPvf requests the host to prepare the PVF. The sender receives nil
// once the artifact is prepared, or the preparation error.
func (h ValidationHost) PrecheckPvf(ctx context.Context, pvf pvftypes.Pvf,
	resultTx pvftypes.PrecheckResultSender) error {
	return h.send(ctx, precheckPvf{pvf: pvf, resultTx: resultTx})
}

// ExecutePvf requests the host to execute the PVF with the given parameters,
// preparing it first if needed. The execution result is delivered to the sender.
func (h ValidationHost) ExecutePvf(ctx context.Context, pvf pvftypes.Pvf, executionTimeout time.Duration,
	params []byte, priority pvftypes.Priority, resultTx pvftypes.ExecuteResultSender) error {
	return h.send(ctx, executePvf{
		pvf:              pvf,
		executionTimeout: executionTimeout,
		params:           params,
		priority:         priority,
		resultTx:         resultTx,
	})
}

// HeadsUp signals the host the PVFs are likely to be executed soon.
// Unknown PVFs are prepared ahead of time and known ones are kept from pruning.
func (h ValidationHost) HeadsUp(ctx context.Context, activePvfs []pvftypes.Pvf) error {
	return h.send(ctx, headsUp{activePvfs: activePvfs})
}

// EvictArtifacts forgets the given artifacts, whatever their state, and
// removes their files. Requests waiting on an evicted preparation are dropped.
func (h ValidationHost) EvictArtifacts(ctx context.Context, ids []pvftypes.ArtifactID) error {
	return h.send(ctx, evictArtifacts{ids: ids})
}

func (h ValidationHost) send(ctx context.Context, msg toHost) error {
	h.state.mutex.RLock()
	defer h.state.mutex.RUnlock()

	if h.state.closed {
		return ErrHostHungUp
	}

	select {
	case h.toHost <- msg:
		return nil
	case <-h.state.done:
		return ErrHostHungUp
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close rejects all further commands and drops the result senders of
// the commands the host loop never read. It must be called once the host
// loop stopped reading the channel.
func (s *hostState) close(toHost <-chan toHost) {
	close(s.done)

	// wait for the senders in flight, which return since done is closed.
	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()

	for {
		select {
		case msg := <-toHost:
			dropSenders(msg)
		default:
			return
		}
	}
}
