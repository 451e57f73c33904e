// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package prepare

import (
	"fmt"
	"io"

	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/worker"
	"github.com/ChainSafe/gossamer-pvf/pkg/scale"
)

// request is sent by the host to the prepare worker.
type request struct {
	Code []byte `scale:"1"`
	// TmpPath is where the worker writes the artifact.
	TmpPath string `scale:"2"`
}

// response is sent by the prepare worker once the preparation concluded.
type response struct {
	Ok bool `scale:"1"`
	// ErrKind and ErrMsg describe the preparation error when Ok is false.
	ErrKind pvftypes.PrepareErrorKind `scale:"2"`
	ErrMsg  string                    `scale:"3"`
}

func newResponse(err error) response {
	if err == nil {
		return response{Ok: true}
	}

	prepareErr, ok := err.(*pvftypes.PrepareError)
	if !ok {
		prepareErr = pvftypes.NewPrepareError(pvftypes.Preparation, "%s", err)
	}
	return response{
		ErrKind: prepareErr.Kind,
		ErrMsg:  prepareErr.Msg,
	}
}

func (r response) err() error {
	if r.Ok {
		return nil
	}
	return &pvftypes.PrepareError{
		Kind: r.ErrKind,
		Msg:  r.ErrMsg,
	}
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
