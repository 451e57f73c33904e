// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package httpserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_New(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	const name = "name"
	const address = "test"
	handler := http.NewServeMux()
	logger := NewMockLogger(ctrl)

	expectedServer := &Server{
		name:    name,
		address: address,
		handler: handler,
		logger:  logger,
		optional: optionalSettings{
			readHeaderTimeout: time.Second,
			shutdownTimeout:   time.Second,
		},
	}

	server := New(name, address, handler, logger,
		ShutdownTimeout(time.Second))

	assert.NotNil(t, server.addressSet)
	server.addressSet = nil

	assert.Equal(t, expectedServer, server)
}

func Test_Server_Run_success(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	logger := NewMockLogger(ctrl)
	logger.EXPECT().Info(newRegexMatcher("^test http server listening on 127.0.0.1:[1-9][0-9]{0,4}$"))
	logger.EXPECT().Warn("test http server shutting down: context canceled")

	server := New("test", "127.0.0.1:0", handler, logger)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error)

	go server.Run(ctx, ready, done)

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("server exited before being ready: %s", err)
	}

	response, err := http.Get("http://" + server.GetAddress()) //nolint:noctx
	require.NoError(t, err)
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	require.NoError(t, response.Body.Close())
	assert.Equal(t, "pong", string(body))

	cancel()
	err = <-done
	assert.NoError(t, err)
}

func Test_Server_Run_failure(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	logger := NewMockLogger(ctrl)

	// occupy an address so the server cannot listen on it.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = listener.Close()
	})

	server := New("test", listener.Addr().String(), http.NewServeMux(), logger)

	ready := make(chan struct{})
	done := make(chan error)

	go server.Run(context.Background(), ready, done)

	select {
	case <-ready:
		t.Fatal("server should not be ready")
	case err := <-done:
		assert.ErrorContains(t, err, "address already in use")
	}
}

var _ gomock.Matcher = (*regexMatcher)(nil)

type regexMatcher struct {
	regex *regexp.Regexp
}

func (r *regexMatcher) Matches(x interface{}) bool {
	s, ok := x.(string)
	if !ok {
		return false
	}
	return r.regex.MatchString(s)
}

func (r *regexMatcher) String() string {
	return "regular expression " + r.regex.String()
}

func newRegexMatcher(regex string) *regexMatcher {
	return &regexMatcher{
		regex: regexp.MustCompile(regex),
	}
}
