// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf"
	pvfmetrics "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/metrics"
	"github.com/ChainSafe/gossamer-pvf/internal/metrics"
	"github.com/ChainSafe/gossamer-pvf/internal/pprof"
	"github.com/prometheus/client_golang/prometheus"
)

// runningHost is a validation host running in the background,
// with its metrics and pprof servers if enabled.
type runningHost struct {
	handle        pvf.ValidationHost
	cancel        context.CancelFunc
	runnerDone    <-chan error
	metricsServer *metrics.Server
	pprofService  *pprof.Service
}

func startHost(s settings) (h *runningHost, err error) {
	h = &runningHost{}

	var hostMetrics *pvfmetrics.Metrics
	if s.metricsEnabled {
		registry := prometheus.NewRegistry()
		hostMetrics, err = pvfmetrics.New(registry)
		if err != nil {
			return nil, fmt.Errorf("creating metrics: %w", err)
		}

		metricsServer := metrics.NewServer(s.metricsAddress, registry)
		err = metricsServer.Start()
		if err != nil {
			return nil, err
		}
		h.metricsServer = metricsServer
	}

	if s.pprofEnabled {
		pprofService := pprof.NewService(s.pprof, logger)
		err = pprofService.Start()
		if err != nil {
			_ = h.stopServers()
			return nil, fmt.Errorf("starting pprof service: %w", err)
		}
		h.pprofService = pprofService
	}

	handle, runner := pvf.Start(s.pvf, hostMetrics)
	ctx, cancel := context.WithCancel(context.Background())
	runnerDone := make(chan error, 1)
	go func() {
		runnerDone <- runner(ctx)
	}()

	h.handle = handle
	h.cancel = cancel
	h.runnerDone = runnerDone
	return h, nil
}

// stop stops the host and waits for it to exit.
func (h *runningHost) stop() (err error) {
	h.cancel()
	err = <-h.runnerDone
	if err != nil {
		err = fmt.Errorf("validation host: %w", err)
	}

	return errors.Join(err, h.stopServers())
}

func (h *runningHost) stopServers() (err error) {
	if h.metricsServer != nil {
		metricsErr := h.metricsServer.Stop()
		if metricsErr != nil {
			err = fmt.Errorf("metrics server: %w", metricsErr)
		}
	}

	if h.pprofService != nil {
		pprofErr := h.pprofService.Stop()
		if pprofErr != nil {
			err = errors.Join(err, fmt.Errorf("pprof service: %w", pprofErr))
		}
	}

	return err
}
