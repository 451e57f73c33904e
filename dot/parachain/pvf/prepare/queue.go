// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package prepare

import (
	"context"
	"errors"
	"time"

	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/metrics"
	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/ChainSafe/gossamer-pvf/internal/log"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "pvf-prepare"))

// ErrPoolHungUp is returned by the queue when the pool stopped.
var ErrPoolHungUp = errors.New("prepare pool hung up")

type job uint64

type jobData struct {
	priority pvftypes.Priority
	pvf      pvftypes.Pvf
	// worker is set once the job is assigned to a worker.
	worker *Worker
}

type queueWorkerData struct {
	// job is set while the worker is busy.
	job *job
}

// unscheduled holds the jobs waiting for a worker, by priority.
type unscheduled struct {
	normal   []job
	critical []job
}

func (u *unscheduled) queue(priority pvftypes.Priority) *[]job {
	if priority.IsCritical() {
		return &u.critical
	}
	return &u.normal
}

func (u *unscheduled) add(priority pvftypes.Priority, j job) {
	queue := u.queue(priority)
	*queue = append(*queue, j)
}

// readd puts the job back at the front of its priority.
func (u *unscheduled) readd(priority pvftypes.Priority, j job) {
	queue := u.queue(priority)
	*queue = append([]job{j}, *queue...)
}

func (u *unscheduled) isEmpty() bool {
	return len(u.normal) == 0 && len(u.critical) == 0
}

// next pops the oldest job with the highest priority.
func (u *unscheduled) next() (j job, ok bool) {
	for _, queue := range []*[]job{&u.critical, &u.normal} {
		if len(*queue) > 0 {
			j = (*queue)[0]
			*queue = (*queue)[1:]
			return j, true
		}
	}
	return 0, false
}

// Queue schedules preparation jobs on the workers of the pool.
// It spawns workers up to the soft capacity, and up to the hard
// capacity for critical jobs.
type Queue struct {
	metrics            *metrics.Metrics
	softCapacity       int
	hardCapacity       int
	cacheDir           string
	preparationTimeout time.Duration

	toQueue   <-chan ToQueue
	fromQueue chan<- FromQueue
	toPool    chan<- ToPool
	fromPool  <-chan FromPool

	nextJob         job
	jobs            map[job]*jobData
	artifactIDToJob map[pvftypes.ArtifactID]job
	workers         map[Worker]*queueWorkerData
	spawnInflight   int
	unscheduled     unscheduled

	// pending holds the messages not yet delivered to the host,
	// so the queue never blocks on the host.
	pending []FromQueue
}

// NewQueue creates a prepare queue. The toQueue and fromPool channels
// are only read, the fromQueue and toPool channels are only written.
func NewQueue(metrics *metrics.Metrics, softCapacity, hardCapacity int,
	cacheDir string, preparationTimeout time.Duration,
	toQueue <-chan ToQueue, fromQueue chan<- FromQueue,
	toPool chan<- ToPool, fromPool <-chan FromPool) *Queue {
	return &Queue{
		metrics:            metrics,
		softCapacity:       softCapacity,
		hardCapacity:       hardCapacity,
		cacheDir:           cacheDir,
		preparationTimeout: preparationTimeout,
		toQueue:            toQueue,
		fromQueue:          fromQueue,
		toPool:             toPool,
		fromPool:           fromPool,
		jobs:               make(map[job]*jobData),
		artifactIDToJob:    make(map[pvftypes.ArtifactID]job),
		workers:            make(map[Worker]*queueWorkerData),
	}
}

// Run runs the queue until the context is canceled, the host closes
// the toQueue channel or the pool closes the fromPool channel.
func (q *Queue) Run(ctx context.Context) error {
	toQueue := q.toQueue
	for {
		var fromQueue chan<- FromQueue
		var next FromQueue
		if len(q.pending) > 0 {
			fromQueue = q.fromQueue
			next = q.pending[0]
		} else if toQueue == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-toQueue:
			if !ok {
				// the host is gone, flush what it will never read.
				toQueue = nil
				q.pending = nil
				continue
			}
			err := q.handleEnqueue(ctx, msg.Priority, msg.Pvf)
			if err != nil {
				return err
			}
		case msg, ok := <-q.fromPool:
			if !ok {
				return ErrPoolHungUp
			}
			err := q.handleFromPool(ctx, msg)
			if err != nil {
				return err
			}
		case fromQueue <- next:
			q.pending = q.pending[1:]
		}
	}
}

func (q *Queue) handleEnqueue(ctx context.Context, priority pvftypes.Priority, pvf pvftypes.Pvf) error {
	artifactID := pvf.ArtifactID()
	logger.Debugf("enqueueing preparation of artifact %s with %s priority", artifactID, priority)
	q.metrics.PrepareEnqueued()

	if _, ok := q.artifactIDToJob[artifactID]; ok {
		logger.Errorf("second enqueue sent for the known artifact %s", artifactID)
		return nil
	}

	j := q.nextJob
	q.nextJob++
	q.jobs[j] = &jobData{priority: priority, pvf: pvf}
	q.artifactIDToJob[artifactID] = j

	if worker, ok := q.findIdleWorker(); ok {
		return q.assign(ctx, worker, j)
	}

	if q.canAffordOneMore(priority.IsCritical()) {
		err := q.spawnExtraWorker(ctx)
		if err != nil {
			return err
		}
	}
	q.unscheduled.add(priority, j)
	return nil
}

func (q *Queue) handleFromPool(ctx context.Context, msg FromPool) error {
	switch msg := msg.(type) {
	case Spawned:
		return q.handleWorkerSpawned(ctx, msg.Worker)
	case Concluded:
		return q.handleWorkerConcluded(ctx, msg.Worker, msg.Rip, msg.Result)
	case Rip:
		return q.handleWorkerRip(ctx, msg.Worker)
	default:
		panic("unknown message from the prepare pool")
	}
}

func (q *Queue) handleWorkerSpawned(ctx context.Context, worker Worker) error {
	q.workers[worker] = &queueWorkerData{}
	q.spawnInflight--

	j, ok := q.unscheduled.next()
	if !ok {
		return nil
	}
	return q.assign(ctx, worker, j)
}

func (q *Queue) handleWorkerConcluded(ctx context.Context, worker Worker, rip bool, result error) error {
	q.metrics.PrepareConcluded()

	workerData, ok := q.workers[worker]
	if !ok {
		logger.Errorf("the pool reported a conclusion for the unknown worker %d", worker)
		return nil
	}

	if workerData.job == nil {
		logger.Errorf("the pool reported a conclusion for the worker %d without any job assigned", worker)
		return nil
	}
	j := *workerData.job
	workerData.job = nil

	jobData, ok := q.jobs[j]
	if !ok {
		logger.Errorf("the worker %d was assigned the unknown job %d", worker, j)
		return nil
	}
	delete(q.jobs, j)

	artifactID := jobData.pvf.ArtifactID()
	delete(q.artifactIDToJob, artifactID)

	logger.Debugf("preparation of artifact %s concluded by worker %d (rip: %t): %v",
		artifactID, worker, rip, result)

	if rip {
		delete(q.workers, worker)
		if !q.unscheduled.isEmpty() {
			// the ripped worker freed its slot.
			err := q.spawnExtraWorker(ctx)
			if err != nil {
				return err
			}
		}
	} else {
		next, ok := q.unscheduled.next()
		switch {
		case ok:
			err := q.assign(ctx, worker, next)
			if err != nil {
				return err
			}
		case q.shouldCull():
			err := q.cull(ctx, worker)
			if err != nil {
				return err
			}
		}
	}

	q.pending = append(q.pending, FromQueue{ArtifactID: artifactID, Result: result})
	return nil
}

func (q *Queue) handleWorkerRip(ctx context.Context, worker Worker) error {
	logger.Debugf("prepare worker %d ripped", worker)

	workerData, ok := q.workers[worker]
	if !ok {
		return nil
	}
	delete(q.workers, worker)

	if workerData.job != nil {
		// the worker died after the job was sent to the pool but before the pool handed it out.
		priority := pvftypes.Normal
		jobData, ok := q.jobs[*workerData.job]
		if ok {
			jobData.worker = nil
			priority = jobData.priority
		} else {
			logger.Errorf("the ripped worker %d was assigned the unknown job %d", worker, *workerData.job)
		}
		q.unscheduled.readd(priority, *workerData.job)
	}

	if q.unscheduled.isEmpty() {
		return nil
	}
	return q.spawnExtraWorker(ctx)
}

func (q *Queue) findIdleWorker() (worker Worker, ok bool) {
	for worker, data := range q.workers {
		if data.job == nil {
			return worker, true
		}
	}
	return 0, false
}

func (q *Queue) canAffordOneMore(critical bool) bool {
	capacity := q.softCapacity
	if critical {
		capacity = q.hardCapacity
	}
	return len(q.workers)+q.spawnInflight < capacity
}

func (q *Queue) shouldCull() bool {
	return len(q.workers) > q.softCapacity
}

func (q *Queue) spawnExtraWorker(ctx context.Context) error {
	q.spawnInflight++
	return q.sendPool(ctx, Spawn{})
}

func (q *Queue) assign(ctx context.Context, worker Worker, j job) error {
	jobData := q.jobs[j]
	jobData.worker = &worker
	q.workers[worker].job = &j

	artifactPath := jobData.pvf.ArtifactID().Path(q.cacheDir)
	return q.sendPool(ctx, StartWork{
		Worker:             worker,
		Code:               jobData.pvf.Code,
		ArtifactPath:       artifactPath,
		PreparationTimeout: q.preparationTimeout,
	})
}

func (q *Queue) cull(ctx context.Context, worker Worker) error {
	delete(q.workers, worker)
	return q.sendPool(ctx, Kill{Worker: worker})
}

// sendPool blocks until the pool receives the message.
// The pool never blocks on the queue so this cannot deadlock.
func (q *Queue) sendPool(ctx context.Context, msg ToPool) error {
	select {
	case q.toPool <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
