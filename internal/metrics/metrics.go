// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ChainSafe/gossamer-pvf/internal/httpserver"
	"github.com/ChainSafe/gossamer-pvf/internal/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const stopTimeout = 30 * time.Second

var logger log.LeveledLogger = log.NewFromGlobal(log.AddContext("pkg", "metrics"))

var (
	errServerExited = errors.New("metrics server exited unexpectedly")
	errStopTimeout  = errors.New("metrics server exit timeout")
)

// Server is a metrics http server
type Server struct {
	cancel context.CancelFunc
	server *httpserver.Server
	done   chan error
}

// NewServer is a constructor for a metrics server exposing the
// metrics of the gatherer on /metrics.
func NewServer(address string, gatherer prometheus.Gatherer) (s *Server) {
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{
		server: httpserver.New("metrics", address, m, logger),
	}
}

// Start will start the metrics server and returns once it listens.
func (s *Server) Start() (err error) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	ready := make(chan struct{})
	s.done = make(chan error, 1)

	go s.server.Run(ctx, ready, s.done)

	select {
	case <-ready:
		logger.Infof("metrics server listening at http://%s/metrics", s.server.GetAddress())
		return nil
	case err := <-s.done:
		cancel()
		if err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		return errServerExited
	}
}

// Address returns the address the server listens on.
func (s *Server) Address() string {
	return s.server.GetAddress()
}

// Stop will stop the metrics server
func (s *Server) Stop() (err error) {
	s.cancel()
	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()
	select {
	case err := <-s.done:
		return err
	case <-timer.C:
		return errStopTimeout
	}
}
