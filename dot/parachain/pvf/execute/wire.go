// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package execute

import (
	"fmt"
	"io"

	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/worker"
	"github.com/ChainSafe/gossamer-pvf/pkg/scale"
)

// request is sent by the host to the execute worker.
type request struct {
	ArtifactPath          string `scale:"1"`
	Params                []byte `scale:"2"`
	ExecutionTimeoutNanos uint64 `scale:"3"`
}

type responseKind uint8

const (
	responseOk responseKind = iota
	responseInvalidCandidate
	responseTimedOut
	responseInternalError
)

// response is sent by the execute worker once the execution concluded.
type response struct {
	Kind responseKind `scale:"1"`
	// Result is the decoded output of the validation function, for the ok kind only.
	Result *pvftypes.ValidationResult `scale:"2"`
	// Msg describes the error for the invalid candidate and internal error kinds.
	Msg            string `scale:"3"`
	DurationMillis uint64 `scale:"4"`
}

func sendMessage(w io.Writer, message interface{}) error {
	encoded, err := scale.Marshal(message)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	return worker.FramedSend(w, encoded)
}

func recvMessage(r io.Reader, message interface{}) error {
	frame, err := worker.FramedRecv(r)
	if err != nil {
		return err
	}

	err = scale.Unmarshal(frame, message)
	if err != nil {
		return fmt.Errorf("decoding: %w", err)
	}
	return nil
}
