// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pvftypes

import (
	"context"
	"errors"
	"sync"
)

// ErrCanceled is returned by Receiver.Recv when the sender was dropped
// without sending a value.
var ErrCanceled = errors.New("result channel canceled")

type oneshot[T any] struct {
	value      chan T
	dropped    chan struct{}
	canceled   chan struct{}
	concluded  sync.Once
	cancelOnce sync.Once
}

// Sender is the sending half of a single use result channel.
// A sender concludes exactly once, either by sending a value or by
// being dropped.
type Sender[T any] struct {
	o *oneshot[T]
}

// Receiver is the receiving half of a single use result channel.
type Receiver[T any] struct {
	o *oneshot[T]
}

// NewOneshot returns the sender and receiver of a new single use result channel.
func NewOneshot[T any]() (Sender[T], Receiver[T]) {
	o := &oneshot[T]{
		value:    make(chan T, 1),
		dropped:  make(chan struct{}),
		canceled: make(chan struct{}),
	}
	return Sender[T]{o: o}, Receiver[T]{o: o}
}

// Send delivers the value to the receiver. It returns false if the sender
// already concluded or if the receiver canceled, in which case the value
// is discarded.
func (s Sender[T]) Send(value T) (sent bool) {
	s.o.concluded.Do(func() {
		if s.IsCanceled() {
			close(s.o.dropped)
			return
		}
		s.o.value <- value
		sent = true
	})
	return sent
}

// Drop concludes the sender without a value. The receiver observes ErrCanceled.
// It is a no-op if the sender already concluded.
func (s Sender[T]) Drop() {
	s.o.concluded.Do(func() {
		close(s.o.dropped)
	})
}

// IsCanceled returns true if the receiver is no longer interested in the value.
func (s Sender[T]) IsCanceled() bool {
	select {
	case <-s.o.canceled:
		return true
	default:
		return false
	}
}

// Recv blocks until a value is sent, the sender is dropped or the context is done.
func (r Receiver[T]) Recv(ctx context.Context) (value T, err error) {
	select {
	case value = <-r.o.value:
		return value, nil
	case <-r.o.dropped:
		return value, ErrCanceled
	case <-ctx.Done():
		return value, ctx.Err()
	}
}

// Cancel signals the sender the value is no longer wanted.
func (r Receiver[T]) Cancel() {
	r.o.cancelOnce.Do(func() {
		close(r.o.canceled)
	})
}

// PrecheckResultSender delivers the outcome of a precheck: nil if the
// code was prepared, the preparation error otherwise.
type PrecheckResultSender = Sender[error]

// PrecheckResultReceiver receives the outcome of a precheck.
type PrecheckResultReceiver = Receiver[error]

// ExecuteResult is the outcome of an execution.
type ExecuteResult struct {
	Result ValidationResult
	Err    error
}

// ExecuteResultSender delivers the outcome of an execution.
type ExecuteResultSender = Sender[ExecuteResult]

// ExecuteResultReceiver receives the outcome of an execution.
type ExecuteResultReceiver = Receiver[ExecuteResult]
