// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package execute

import (
	"bytes"
	"net"
	"testing"
	"time"

	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/worker"
	"github.com/ChainSafe/gossamer-pvf/pkg/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_recvMessage(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		payload    []byte
		resp       response
		errWrapped error
		errMessage string
	}{
		"ok": {
			payload: []byte{
				0,    // kind
				1,    // result is set
				4, 7, // head data
				0, 0, 0, // no code upgrade, no messages
				0, 0, 0, 0, // processed downward messages
				0, 0, 0, 0, // hrmp watermark
				0,                      // message
				2, 0, 0, 0, 0, 0, 0, 0, // duration
			},
			resp: response{
				Result: &pvftypes.ValidationResult{
					HeadData:           []byte{7},
					UpwardMessages:     [][]byte{},
					HorizontalMessages: []pvftypes.OutboundHrmpMessage{},
				},
				DurationMillis: 2,
			},
		},
		"invalid_option": {
			payload:    []byte{0x00, 0xff},
			errWrapped: scale.ErrInvalidOption,
			errMessage: "decoding: decoding field Result: invalid option byte: 0xff",
		},
		"oversized_message_length": {
			payload:    []byte{0x01, 0x00, 0xff},
			resp:       response{Kind: responseInvalidCandidate},
			errWrapped: scale.ErrCompactTooLarge,
			errMessage: "decoding: decoding field Msg: compact integer does not fit in 64 bits: 67 bytes",
		},
		"truncated": {
			payload:    []byte{0x00, 0x01, 0xfc},
			errWrapped: scale.ErrLengthOutOfBounds,
			errMessage: "decoding: decoding field Result: decoding field HeadData: " +
				"length exceeds the remaining data: length 63, 0 bytes left",
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			buffer := bytes.NewBuffer(nil)
			err := worker.FramedSend(buffer, testCase.payload)
			require.NoError(t, err)

			var resp response
			err = recvMessage(buffer, &resp)

			assert.ErrorIs(t, err, testCase.errWrapped)
			if testCase.errMessage != "" {
				assert.EqualError(t, err, testCase.errMessage)
			}
			assert.Equal(t, testCase.resp, resp)
		})
	}
}

func Test_startWork_malformedResponse(t *testing.T) {
	t.Parallel()

	hostConn, workerConn := net.Pipe()
	t.Cleanup(func() {
		_ = hostConn.Close()
		_ = workerConn.Close()
	})

	go func() {
		_, err := worker.FramedRecv(workerConn)
		if err != nil {
			return
		}
		_ = worker.FramedSend(workerConn, []byte{0x00, 0xff})
	}()

	idle := &worker.IdleWorker{Conn: hostConn, PID: 1}
	outcome := startWork(idle, "artifact", time.Second, nil)

	// the worker speaking garbage is treated as dead and not reused.
	assert.Nil(t, outcome.idle)
	assert.ErrorIs(t, outcome.err, &pvftypes.InvalidCandidateError{Kind: pvftypes.AmbiguousWorkerDeath})
}
