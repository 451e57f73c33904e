// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pprof

import (
	"net/http"
	"testing"

	"github.com/ChainSafe/gossamer-pvf/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewService(t *testing.T) {
	t.Parallel()

	service := NewService(Settings{}, log.New())

	assert.Equal(t, Settings{ListeningAddress: "localhost:6060"}, service.settings)
	assert.NotNil(t, service.server)
}

func Test_Service_StartStop(t *testing.T) {
	t.Parallel()

	service := NewService(Settings{ListeningAddress: "127.0.0.1:0"}, log.New())

	err := service.Start()
	require.NoError(t, err)

	response, err := http.Get("http://" + service.Address() + "/debug/pprof/") //nolint:noctx
	require.NoError(t, err)
	require.NoError(t, response.Body.Close())
	assert.Equal(t, http.StatusOK, response.StatusCode)

	err = service.Stop()
	require.NoError(t, err)
}
