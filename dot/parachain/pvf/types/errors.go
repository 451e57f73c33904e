// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pvftypes

import (
	"errors"
	"fmt"
)

// PrepareErrorKind is the kind of a preparation failure.
type PrepareErrorKind uint8

const (
	// Prevalidation means the code failed checks done before compilation.
	Prevalidation PrepareErrorKind = iota
	// Preparation means the code could not be compiled.
	Preparation
	// Panic means the prepare worker panicked while handling the code.
	Panic
	// TimedOut means the preparation did not conclude in time.
	TimedOut
	// CreateTmpFile means the host could not create the temporary
	// file the worker writes the artifact to.
	CreateTmpFile
	// RenameTmpFile means the host could not move the artifact
	// to its final location.
	RenameTmpFile
	// DidNotMakeIt means the worker died or the connection to it
	// broke before the preparation concluded.
	DidNotMakeIt
)

func (k PrepareErrorKind) String() string {
	switch k {
	case Prevalidation:
		return "prevalidation"
	case Preparation:
		return "preparation"
	case Panic:
		return "panic"
	case TimedOut:
		return "timed out"
	case CreateTmpFile:
		return "create tmp file"
	case RenameTmpFile:
		return "rename tmp file"
	case DidNotMakeIt:
		return "did not make it"
	default:
		return fmt.Sprintf("unknown kind %d", uint8(k))
	}
}

// PrepareError is the error of a preparation job. It is cached
// by the host and replayed to every later requester.
type PrepareError struct {
	Kind PrepareErrorKind
	Msg  string
}

// NewPrepareError creates a prepare error of the given kind with a formatted message.
func NewPrepareError(kind PrepareErrorKind, format string, args ...interface{}) *PrepareError {
	return &PrepareError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *PrepareError) Error() string {
	if e.Msg == "" {
		return "prepare: " + e.Kind.String()
	}
	return "prepare: " + e.Kind.String() + ": " + e.Msg
}

// Is returns true if the target is a prepare error of the same kind.
func (e *PrepareError) Is(target error) bool {
	t, ok := target.(*PrepareError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsDeterministic returns true if the same code would always fail
// the same way, regardless of the machine preparing it.
func (e *PrepareError) IsDeterministic() bool {
	switch e.Kind {
	case Prevalidation, Preparation, Panic:
		return true
	default:
		return false
	}
}

// InvalidCandidateKind is the reason a candidate is deemed invalid.
type InvalidCandidateKind uint8

const (
	// PrepareFailed means the code of the candidate failed to prepare deterministically.
	PrepareFailed InvalidCandidateKind = iota
	// HardTimeout means the execution exceeded its time budget and the worker was killed.
	HardTimeout
	// WorkerReportedError means the execute worker reported the candidate as invalid.
	WorkerReportedError
	// AmbiguousWorkerDeath means the worker died during the execution.
	// It may or may not be due to the candidate.
	AmbiguousWorkerDeath
)

func (k InvalidCandidateKind) String() string {
	switch k {
	case PrepareFailed:
		return "prepare failed"
	case HardTimeout:
		return "hard timeout"
	case WorkerReportedError:
		return "worker reported error"
	case AmbiguousWorkerDeath:
		return "ambiguous worker death"
	default:
		return fmt.Sprintf("unknown kind %d", uint8(k))
	}
}

// InvalidCandidateError is returned when the candidate is invalid.
type InvalidCandidateError struct {
	Kind InvalidCandidateKind
	Msg  string
}

func (e *InvalidCandidateError) Error() string {
	if e.Msg == "" {
		return "invalid candidate: " + e.Kind.String()
	}
	return "invalid candidate: " + e.Kind.String() + ": " + e.Msg
}

// Is returns true if the target is an invalid candidate error of the same kind.
func (e *InvalidCandidateError) Is(target error) bool {
	t, ok := target.(*InvalidCandidateError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// InternalError is returned when the validation could not be carried
// out for reasons unrelated to the candidate.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "internal validation error: " + e.Msg
}

// Is returns true if the target is an internal error.
func (e *InternalError) Is(target error) bool {
	_, ok := target.(*InternalError)
	return ok
}

// ValidationErrorFromPrepare converts a preparation error into the error
// delivered to execution requesters. Deterministic failures make the
// candidate invalid, other failures are internal errors.
func ValidationErrorFromPrepare(err error) error {
	var prepareErr *PrepareError
	if !errors.As(err, &prepareErr) {
		return &InternalError{Msg: err.Error()}
	}

	if prepareErr.IsDeterministic() {
		return &InvalidCandidateError{Kind: PrepareFailed, Msg: prepareErr.Error()}
	}
	return &InternalError{Msg: prepareErr.Error()}
}
