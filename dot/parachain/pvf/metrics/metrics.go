// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gossamer_pvf"

// Worker flavors used as label values.
const (
	FlavorPrepare = "prepare"
	FlavorExecute = "execute"
)

// Metrics holds the prometheus collectors of the validation host.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	workerSpawning   *prometheus.CounterVec
	workerSpawned    *prometheus.CounterVec
	workerRetired    *prometheus.CounterVec
	prepareEnqueued  prometheus.Counter
	prepareConcluded prometheus.Counter
	executeEnqueued  prometheus.Counter
	executeFinished  prometheus.Counter
	preparationTime  prometheus.Histogram
	executionTime    prometheus.Histogram
}

// New creates the metrics and registers them with the registerer.
// Collectors already registered are reused.
func New(registerer prometheus.Registerer) (metrics *Metrics, err error) {
	metrics = &Metrics{
		workerSpawning: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_spawning_total",
			Help:      "The total number of workers began to spawn",
		}, []string{"flavor"}),
		workerSpawned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_spawned_total",
			Help:      "The total number of workers spawned successfully",
		}, []string{"flavor"}),
		workerRetired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_retired_total",
			Help:      "The total number of workers retired, either killed by the host or died on duty",
		}, []string{"flavor"}),
		prepareEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prepare_enqueued_total",
			Help:      "The total number of jobs enqueued into the preparation pipeline",
		}),
		prepareConcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prepare_concluded_total",
			Help:      "The total number of jobs concluded in the preparation pipeline",
		}),
		executeEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "execute_enqueued_total",
			Help:      "The total number of jobs enqueued into the execution pipeline",
		}),
		executeFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "execute_finished_total",
			Help:      "The total number of jobs done in the execution pipeline",
		}),
		preparationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "preparation_time",
			Help:      "Time spent in preparing PVF artifacts in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 3, 10, 20, 30, 60, 120, 240, 360, 480},
		}),
		executionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_time",
			Help:      "Time spent in executing PVFs in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10, 12},
		}),
	}

	metrics.workerSpawning, err = register(registerer, "worker spawning", metrics.workerSpawning)
	if err != nil {
		return nil, err
	}
	metrics.workerSpawned, err = register(registerer, "worker spawned", metrics.workerSpawned)
	if err != nil {
		return nil, err
	}
	metrics.workerRetired, err = register(registerer, "worker retired", metrics.workerRetired)
	if err != nil {
		return nil, err
	}
	metrics.prepareEnqueued, err = register(registerer, "prepare enqueued", metrics.prepareEnqueued)
	if err != nil {
		return nil, err
	}
	metrics.prepareConcluded, err = register(registerer, "prepare concluded", metrics.prepareConcluded)
	if err != nil {
		return nil, err
	}
	metrics.executeEnqueued, err = register(registerer, "execute enqueued", metrics.executeEnqueued)
	if err != nil {
		return nil, err
	}
	metrics.executeFinished, err = register(registerer, "execute finished", metrics.executeFinished)
	if err != nil {
		return nil, err
	}
	metrics.preparationTime, err = register(registerer, "preparation time", metrics.preparationTime)
	if err != nil {
		return nil, err
	}
	metrics.executionTime, err = register(registerer, "execution time", metrics.executionTime)
	if err != nil {
		return nil, err
	}

	return metrics, nil
}

func register[T prometheus.Collector](registerer prometheus.Registerer, name string, collector T) (T, error) {
	err := registerer.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		existing, ok := alreadyRegistered.ExistingCollector.(T)
		if ok {
			return existing, nil
		}
	}
	return collector, fmt.Errorf("cannot register %s: %w", name, err)
}

// WorkerSpawning records a worker of the given flavor began to spawn.
func (m *Metrics) WorkerSpawning(flavor string) {
	if m == nil {
		return
	}
	m.workerSpawning.WithLabelValues(flavor).Inc()
}

// WorkerSpawned records a worker of the given flavor spawned successfully.
func (m *Metrics) WorkerSpawned(flavor string) {
	if m == nil {
		return
	}
	m.workerSpawned.WithLabelValues(flavor).Inc()
}

// WorkerRetired records a worker of the given flavor was killed or died.
func (m *Metrics) WorkerRetired(flavor string) {
	if m == nil {
		return
	}
	m.workerRetired.WithLabelValues(flavor).Inc()
}

// PrepareEnqueued records a preparation job was enqueued.
func (m *Metrics) PrepareEnqueued() {
	if m == nil {
		return
	}
	m.prepareEnqueued.Inc()
}

// PrepareConcluded records a preparation job concluded.
func (m *Metrics) PrepareConcluded() {
	if m == nil {
		return
	}
	m.prepareConcluded.Inc()
}

// ExecuteEnqueued records an execution job was enqueued.
func (m *Metrics) ExecuteEnqueued() {
	if m == nil {
		return
	}
	m.executeEnqueued.Inc()
}

// ExecuteFinished records an execution job finished.
func (m *Metrics) ExecuteFinished() {
	if m == nil {
		return
	}
	m.executeFinished.Inc()
}

// ObservePreparation records the duration of a preparation.
func (m *Metrics) ObservePreparation(duration time.Duration) {
	if m == nil {
		return
	}
	m.preparationTime.Observe(duration.Seconds())
}

// ObserveExecution records the duration of an execution.
func (m *Metrics) ObserveExecution(duration time.Duration) {
	if m == nil {
		return
	}
	m.executionTime.Observe(duration.Seconds())
}
