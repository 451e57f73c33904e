// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package prepare

import (
	"context"
	"errors"
	"time"

	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/metrics"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/worker"
)

// WorkerArg is the first argument given to the worker program,
// selecting the prepare worker mode.
const WorkerArg = "prepare-worker"

// ErrQueueHungUp is returned by the pool when the queue stopped.
var ErrQueueHungUp = errors.New("prepare queue hung up")

const spawnRetryDelay = 3 * time.Second

type poolWorkerData struct {
	// idle is nil while the worker is busy.
	idle   *worker.IdleWorker
	handle *worker.Handle
}

// events sent to the pool by its own goroutines.
type (
	spawnedEvent struct {
		idle   *worker.IdleWorker
		handle *worker.Handle
	}
	deathEvent struct {
		worker Worker
		handle *worker.Handle
	}
	workDoneEvent struct {
		worker  Worker
		outcome outcome
	}
)

// Pool owns the prepare worker processes. It spawns, kills and hands
// work to workers as requested by the queue.
type Pool struct {
	metrics      *metrics.Metrics
	programPath  string
	extraArgs    []string
	spawnTimeout time.Duration

	toPool   <-chan ToPool
	fromPool chan<- FromPool
	events   chan interface{}

	nextWorker Worker
	spawned    map[Worker]*poolWorkerData
	// pending holds the messages not yet delivered to the queue,
	// so the pool never blocks on the queue.
	pending []FromPool
}

// NewPool creates a prepare pool spawning workers from the program path.
func NewPool(metrics *metrics.Metrics, programPath string, spawnTimeout time.Duration,
	toPool <-chan ToPool, fromPool chan<- FromPool) *Pool {
	return &Pool{
		metrics:      metrics,
		programPath:  programPath,
		extraArgs:    []string{WorkerArg},
		spawnTimeout: spawnTimeout,
		toPool:       toPool,
		fromPool:     fromPool,
		events:       make(chan interface{}),
		spawned:      make(map[Worker]*poolWorkerData),
	}
}

// Run runs the pool until the context is canceled or the queue closes
// the toPool channel. All the workers are killed when it returns.
func (p *Pool) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer p.killAll()

	for {
		var fromPool chan<- FromPool
		var next FromPool
		if len(p.pending) > 0 {
			fromPool = p.fromPool
			next = p.pending[0]
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-p.toPool:
			if !ok {
				return ErrQueueHungUp
			}
			p.handleToPool(ctx, msg)
		case event := <-p.events:
			p.handleEvent(ctx, event)
		case fromPool <- next:
			p.pending = p.pending[1:]
		}
	}
}

func (p *Pool) reply(msg FromPool) {
	p.pending = append(p.pending, msg)
}

// sendEvent is used by the pool goroutines to report to the pool loop.
func (p *Pool) sendEvent(ctx context.Context, event interface{}) {
	select {
	case p.events <- event:
	case <-ctx.Done():
	}
}

func (p *Pool) handleToPool(ctx context.Context, msg ToPool) {
	switch msg := msg.(type) {
	case Spawn:
		p.metrics.WorkerSpawning(metrics.FlavorPrepare)
		go p.spawnWorker(ctx)
	case StartWork:
		p.handleStartWork(ctx, msg)
	case Kill:
		p.retire(msg.Worker)
	default:
		panic("unknown message to the prepare pool")
	}
}

func (p *Pool) handleStartWork(ctx context.Context, msg StartWork) {
	data, ok := p.spawned[msg.Worker]
	if !ok {
		// the worker died and its rip was sent before the queue could know.
		// The queue puts the job back in line when it receives the rip.
		return
	}

	if data.idle == nil {
		logger.Errorf("work was started on the busy prepare worker %d", msg.Worker)
		return
	}

	idle := data.idle
	data.idle = nil
	go func() {
		start := time.Now()
		outcome := startWork(idle, msg.Code, msg.ArtifactPath, msg.PreparationTimeout)
		p.metrics.ObservePreparation(time.Since(start))
		p.sendEvent(ctx, workDoneEvent{worker: msg.Worker, outcome: outcome})
	}()
}

func (p *Pool) handleEvent(ctx context.Context, event interface{}) {
	switch event := event.(type) {
	case spawnedEvent:
		p.metrics.WorkerSpawned(metrics.FlavorPrepare)
		w := p.nextWorker
		p.nextWorker++
		p.spawned[w] = &poolWorkerData{idle: event.idle, handle: event.handle}
		go p.watchDeath(ctx, w, event.handle)
		p.reply(Spawned{Worker: w})
	case deathEvent:
		data, ok := p.spawned[event.worker]
		if !ok || data.handle != event.handle {
			return
		}
		if data.idle == nil {
			// the work in progress concludes with an error on its own.
			return
		}
		p.retire(event.worker)
		p.reply(Rip{Worker: event.worker})
	case workDoneEvent:
		p.handleWorkDone(event.worker, event.outcome)
	}
}

func (p *Pool) handleWorkDone(w Worker, outcome outcome) {
	switch outcome.kind {
	case outcomeConcluded, outcomeCreateTmpFileErr, outcomeRenameTmpFileErr:
		data, ok := p.spawned[w]
		if !ok {
			// the worker was killed meanwhile and the result is no longer relevant.
			_ = outcome.idle.Conn.Close()
			return
		}
		data.idle = outcome.idle

		select {
		case <-data.handle.Done():
			// the worker exited after replying, its death event was dropped while busy.
			p.retire(w)
			p.reply(Concluded{Worker: w, Rip: true, Result: outcome.result})
			return
		default:
		}

		p.reply(Concluded{Worker: w, Rip: false, Result: outcome.result})
	case outcomeDidNotMakeIt, outcomeTimedOut:
		if p.retire(w) {
			p.reply(Concluded{Worker: w, Rip: true, Result: outcome.result})
		}
	}
}

// retire kills the worker and removes it from the pool.
// It returns false if the worker was not in the pool.
func (p *Pool) retire(w Worker) bool {
	data, ok := p.spawned[w]
	if !ok {
		return false
	}
	delete(p.spawned, w)

	p.metrics.WorkerRetired(metrics.FlavorPrepare)
	data.handle.Kill()
	if data.idle != nil {
		_ = data.idle.Conn.Close()
	}
	return true
}

func (p *Pool) killAll() {
	for w := range p.spawned {
		p.retire(w)
	}
}

// spawnWorker spawns a worker, retrying until it succeeds or the context is canceled.
func (p *Pool) spawnWorker(ctx context.Context) {
	for {
		idle, handle, err := worker.SpawnWithProgramPath(ctx, "prepare",
			p.programPath, p.extraArgs, p.spawnTimeout)
		if err == nil {
			select {
			case p.events <- spawnedEvent{idle: idle, handle: handle}:
			case <-ctx.Done():
				handle.Kill()
				_ = idle.Conn.Close()
			}
			return
		}

		logger.Warnf("failed to spawn a prepare worker: %s", err)

		select {
		case <-time.After(spawnRetryDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pool) watchDeath(ctx context.Context, w Worker, handle *worker.Handle) {
	select {
	case <-handle.Done():
		p.sendEvent(ctx, deathEvent{worker: w, handle: handle})
	case <-ctx.Done():
	}
}
