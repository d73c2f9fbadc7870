// Copyright 2021 The channel library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package channel provides typed channels for communication between
// goroutines, together with a multi-way selection primitive that waits on
// several channel operations and commits to exactly one.
//
// Channels come in two kinds. A synchronous channel has no buffer: a send
// and a receive rendezvous, and at most one value is ever in flight. An
// asynchronous channel has a fixed positive capacity and delivers values in
// FIFO order.
//
// Unlike built-in channels, sending on a closed channel or closing a closed
// channel does not panic: blocking operations report ErrClosedChannel, the
// try variants report the negative result, and Close is safe to repeat.
// A closed channel still yields buffered (or in-flight) values until it is
// drained.
package channel

import (
	"context"
	"errors"
	"time"
)

const debugChan = false

// Sentinel failures surfaced to callers. Everything else (a false TrySend,
// an empty TryRecv, a selector timeout) is an ordinary negative result, not
// an error.
var (
	// ErrClosedChannel is reported by Send on a closed channel and by
	// Recv on a closed channel with nothing left to drain.
	ErrClosedChannel = errors.New("channel: operation on closed channel")

	// ErrInvalidCapacity is the panic value for constructing an
	// asynchronous channel with a non-positive capacity.
	ErrInvalidCapacity = errors.New("channel: capacity out of range")
)

// Channel is the operation set common to both channel kinds. It is
// implemented by *SyncChannel and *AsyncChannel; the unexported methods tie
// implementations to this package, where the selector protocol lives.
type Channel[T any] interface {
	// Send delivers v, blocking until a receiver takes it (sync) or
	// buffer space admits it (async). Fails with ErrClosedChannel once
	// the channel is closed.
	Send(v T) error

	// SendContext is Send, abandoned with ctx.Err() when ctx is done.
	SendContext(ctx context.Context, v T) error

	// TrySend delivers v only if that can happen immediately.
	TrySend(v T) bool

	// TrySendTimeout is TrySend with a bounded wait. A zero timeout is
	// the non-blocking form; a negative timeout waits indefinitely but,
	// unlike Send, reports false instead of an error on closure.
	TrySendTimeout(v T, timeout time.Duration) bool

	// Recv takes the next value, blocking until one is available. Fails
	// with ErrClosedChannel once the channel is closed and drained.
	Recv() (T, error)

	// RecvContext is Recv, abandoned with ctx.Err() when ctx is done.
	RecvContext(ctx context.Context) (T, error)

	// TryRecv takes a value only if one is immediately available.
	TryRecv() (T, bool)

	// TryRecvTimeout is TryRecv with a bounded wait; time semantics as
	// in TrySendTimeout.
	TryRecvTimeout(timeout time.Duration) (T, bool)

	// Close marks the channel closed and wakes everything parked on it.
	// Closing an already-closed channel is a no-op. On a synchronous
	// channel Close blocks until an in-flight value has been drained.
	Close()

	// IsClosed reports whether the channel is closed AND nothing more
	// can be received from it.
	IsClosed() bool

	// Len is the number of values currently held: queued values for an
	// asynchronous channel, 0 or 1 in-flight for a synchronous one.
	Len() int

	// Cap is the buffer capacity; 0 for a synchronous channel.
	Cap() int

	// ForEach receives values and passes them to fn until the channel
	// is closed and drained.
	ForEach(fn func(T))

	selectable
}

var (
	_ Channel[int] = (*SyncChannel[int])(nil)
	_ Channel[int] = (*AsyncChannel[int])(nil)
)

// Make builds a channel the way the make builtin does: capacity 0 yields a
// synchronous (rendezvous) channel, a positive capacity yields a bounded
// asynchronous channel. A negative capacity panics with ErrInvalidCapacity.
func Make[T any](capacity int) Channel[T] {
	switch {
	case capacity < 0:
		panic(ErrInvalidCapacity)
	case capacity == 0:
		return NewSync[T]()
	default:
		return NewAsync[T](capacity)
	}
}
