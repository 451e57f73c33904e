// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pvftypes

import (
	"fmt"

	"github.com/ChainSafe/gossamer-pvf/pkg/scale"
)

// OutboundHrmpMessage is a horizontal message sent by a parachain to another one.
type OutboundHrmpMessage struct {
	Recipient uint32 `scale:"1"`
	Data      []byte `scale:"2"`
}

// ValidationResult is the result returned by the validate_block entry point of a PVF.
type ValidationResult struct {
	// HeadData is the new head data of the parachain.
	HeadData []byte `scale:"1"`
	// NewValidationCode is an update to the validation code, nil if there is none.
	NewValidationCode  *[]byte               `scale:"2"`
	UpwardMessages     [][]byte              `scale:"3"`
	HorizontalMessages []OutboundHrmpMessage `scale:"4"`
	// ProcessedDownwardMessages is the number of messages processed from the DMQ.
	ProcessedDownwardMessages uint32 `scale:"5"`
	// HrmpWatermark is the block number up to which all inbound HRMP messages are processed.
	HrmpWatermark uint32 `scale:"6"`
}

// DecodeValidationResult decodes the SCALE encoded output of validate_block.
func DecodeValidationResult(encoded []byte) (result ValidationResult, err error) {
	err = scale.Unmarshal(encoded, &result)
	if err != nil {
		return result, fmt.Errorf("decoding validation result: %w", err)
	}
	return result, nil
}

// EncodeValidationResult returns the SCALE encoding of the validation result.
func EncodeValidationResult(result ValidationResult) ([]byte, error) {
	encoded, err := scale.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding validation result: %w", err)
	}
	return encoded, nil
}
