// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package execute

import (
	"context"
	"time"

	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/metrics"
	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/worker"
	"github.com/ChainSafe/gossamer-pvf/internal/log"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "pvf-execute"))

// WorkerArg is the first argument given to the worker program,
// selecting the execute worker mode.
const WorkerArg = "execute-worker"

const spawnRetryDelay = 3 * time.Second

// ToQueue is an execution job sent by the host to the execute queue.
type ToQueue struct {
	Artifact         pvftypes.ArtifactPathID
	ExecutionTimeout time.Duration
	Params           []byte
	ResultTx         pvftypes.ExecuteResultSender
}

type workerID uint64

type workerData struct {
	// idle is nil while the worker is busy.
	idle   *worker.IdleWorker
	handle *worker.Handle
}

// events sent to the queue by its own goroutines.
type (
	spawnedEvent struct {
		idle   *worker.IdleWorker
		handle *worker.Handle
	}
	deathEvent struct {
		worker workerID
		handle *worker.Handle
	}
	concludedEvent struct {
		worker   workerID
		resultTx pvftypes.ExecuteResultSender
		outcome  outcome
	}
)

// Queue runs execution jobs in first come first served order on up to
// capacity execute workers, which it spawns as needed.
type Queue struct {
	metrics      *metrics.Metrics
	programPath  string
	extraArgs    []string
	spawnTimeout time.Duration
	capacity     int

	toQueue <-chan ToQueue
	events  chan interface{}

	jobs          []ToQueue
	nextWorker    workerID
	running       map[workerID]*workerData
	spawnInflight int
}

// NewQueue creates an execute queue spawning up to capacity workers from the program path.
func NewQueue(metrics *metrics.Metrics, programPath string, spawnTimeout time.Duration,
	capacity int, toQueue <-chan ToQueue) *Queue {
	return &Queue{
		metrics:      metrics,
		programPath:  programPath,
		extraArgs:    []string{WorkerArg},
		spawnTimeout: spawnTimeout,
		capacity:     capacity,
		toQueue:      toQueue,
		events:       make(chan interface{}),
		running:      make(map[workerID]*workerData),
	}
}

// Run runs the queue until the context is canceled or the host closes
// the toQueue channel. When it returns, all the workers are killed and
// the result senders of pending jobs are dropped.
func (q *Queue) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer q.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-q.toQueue:
			if !ok {
				return nil
			}
			q.handleToQueue(ctx, job)
		case event := <-q.events:
			q.handleEvent(ctx, event)
		}
	}
}

func (q *Queue) shutdown() {
	for _, job := range q.jobs {
		job.ResultTx.Drop()
	}
	q.jobs = nil

	for id := range q.running {
		q.retire(id)
	}
}

func (q *Queue) handleToQueue(ctx context.Context, job ToQueue) {
	logger.Debugf("enqueueing execution of artifact %s", job.Artifact.ID)
	q.metrics.ExecuteEnqueued()
	q.jobs = append(q.jobs, job)
	q.tryAssignNextJob(ctx)
}

func (q *Queue) handleEvent(ctx context.Context, event interface{}) {
	switch event := event.(type) {
	case spawnedEvent:
		q.metrics.WorkerSpawned(metrics.FlavorExecute)
		q.spawnInflight--
		id := q.nextWorker
		q.nextWorker++
		q.running[id] = &workerData{idle: event.idle, handle: event.handle}
		go q.watchDeath(ctx, id, event.handle)
		q.tryAssignNextJob(ctx)
	case deathEvent:
		data, ok := q.running[event.worker]
		if !ok || data.handle != event.handle || data.idle == nil {
			// a busy worker death is reported by its job.
			return
		}
		q.retire(event.worker)
		q.tryAssignNextJob(ctx)
	case concludedEvent:
		q.handleJobFinish(ctx, event.worker, event.resultTx, event.outcome)
	}
}

func (q *Queue) handleJobFinish(ctx context.Context, id workerID,
	resultTx pvftypes.ExecuteResultSender, outcome outcome) {
	q.metrics.ExecuteFinished()
	if outcome.err == nil {
		q.metrics.ObserveExecution(outcome.duration)
	}

	// the requester may have lost interest, which is fine.
	_ = resultTx.Send(pvftypes.ExecuteResult{Result: outcome.result, Err: outcome.err})

	data, ok := q.running[id]
	switch {
	case !ok:
		if outcome.idle != nil {
			_ = outcome.idle.Conn.Close()
		}
	case outcome.idle == nil || exited(data.handle):
		if outcome.idle != nil {
			data.idle = outcome.idle
		}
		q.retire(id)
	default:
		data.idle = outcome.idle
	}
	q.tryAssignNextJob(ctx)
}

// popJob returns the oldest job whose requester is still interested.
func (q *Queue) popJob() (job ToQueue, ok bool) {
	for len(q.jobs) > 0 {
		job = q.jobs[0]
		q.jobs = q.jobs[1:]
		if !job.ResultTx.IsCanceled() {
			return job, true
		}
		logger.Debugf("dropping execution of artifact %s, the requester lost interest", job.Artifact.ID)
		job.ResultTx.Drop()
	}
	return job, false
}

func (q *Queue) tryAssignNextJob(ctx context.Context) {
	if len(q.jobs) == 0 {
		return
	}

	id, ok := q.findAvailable()
	if !ok {
		if q.canAffordOneMore() {
			q.spawnExtraWorker(ctx)
		}
		return
	}

	job, ok := q.popJob()
	if !ok {
		return
	}
	q.assign(ctx, id, job)
}

func (q *Queue) findAvailable() (id workerID, ok bool) {
	for id, data := range q.running {
		if data.idle != nil {
			return id, true
		}
	}
	return 0, false
}

func (q *Queue) canAffordOneMore() bool {
	return len(q.running)+q.spawnInflight < q.capacity
}

func (q *Queue) assign(ctx context.Context, id workerID, job ToQueue) {
	data := q.running[id]
	idle := data.idle
	data.idle = nil

	go func() {
		outcome := startWork(idle, job.Artifact.Path, job.ExecutionTimeout, job.Params)
		select {
		case q.events <- concludedEvent{worker: id, resultTx: job.ResultTx, outcome: outcome}:
		case <-ctx.Done():
			job.ResultTx.Drop()
		}
	}()
}

// retire kills the worker and removes it from the running workers.
func (q *Queue) retire(id workerID) {
	data, ok := q.running[id]
	if !ok {
		return
	}
	delete(q.running, id)

	q.metrics.WorkerRetired(metrics.FlavorExecute)
	data.handle.Kill()
	if data.idle != nil {
		_ = data.idle.Conn.Close()
	}
}

func (q *Queue) spawnExtraWorker(ctx context.Context) {
	q.metrics.WorkerSpawning(metrics.FlavorExecute)
	q.spawnInflight++
	go q.spawnWorker(ctx)
}

// spawnWorker spawns a worker, retrying until it succeeds or the context is canceled.
func (q *Queue) spawnWorker(ctx context.Context) {
	for {
		idle, handle, err := worker.SpawnWithProgramPath(ctx, "execute",
			q.programPath, q.extraArgs, q.spawnTimeout)
		if err == nil {
			select {
			case q.events <- spawnedEvent{idle: idle, handle: handle}:
			case <-ctx.Done():
				handle.Kill()
				_ = idle.Conn.Close()
			}
			return
		}

		logger.Warnf("failed to spawn an execute worker: %s", err)

		select {
		case <-time.After(spawnRetryDelay):
		case <-ctx.Done():
			return
		}
	}
}

func exited(handle *worker.Handle) bool {
	select {
	case <-handle.Done():
		return true
	default:
		return false
	}
}

func (q *Queue) watchDeath(ctx context.Context, id workerID, handle *worker.Handle) {
	select {
	case <-handle.Done():
		select {
		case q.events <- deathEvent{worker: id, handle: handle}:
		case <-ctx.Done():
		}
	case <-ctx.Done():
	}
}
