// Copyright 2021 The channel library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"context"
	"time"

	"v.io/x/lib/nsync"
)

// AsyncChannel is a bounded-buffer channel: a FIFO queue of values with a
// fixed positive capacity. The queue is a circular buffer indexed by sendx
// and recvx, with qcount tracking occupancy.
//
// Closing makes the channel closed-and-draining: Recv keeps returning
// queued values until the buffer empties, then fails; Send fails
// immediately.
type AsyncChannel[T any] struct {
	baseChan

	buf    []T // fixed circular buffer, len(buf) == capacity
	sendx  int // next slot to fill
	recvx  int // next slot to drain
	qcount int // values currently queued
}

// NewAsync creates an asynchronous channel with the given capacity. A
// capacity below 1 panics with ErrInvalidCapacity; use Make or NewSync for
// an unbuffered channel.
func NewAsync[T any](capacity int) *AsyncChannel[T] {
	if capacity < 1 {
		panic(ErrInvalidCapacity)
	}
	if debugChan {
		println("channel: make async, cap=", capacity)
	}
	return &AsyncChannel[T]{buf: make([]T, capacity)}
}

func (c *AsyncChannel[T]) enqueueLocked(v T) {
	c.buf[c.sendx] = v
	c.sendx++
	if c.sendx == len(c.buf) {
		c.sendx = 0
	}
	c.qcount++
	c.signalReadersLocked()
}

func (c *AsyncChannel[T]) dequeueLocked() T {
	var zero T
	v := c.buf[c.recvx]
	c.buf[c.recvx] = zero
	c.recvx++
	if c.recvx == len(c.buf) {
		c.recvx = 0
	}
	c.qcount--
	c.signalWritersLocked()
	return v
}

// Send enqueues v, blocking while the buffer is full. Fails with
// ErrClosedChannel once the channel is closed.
func (c *AsyncChannel[T]) Send(v T) error {
	return c.send(context.Background(), v)
}

// SendContext is Send, abandoned with ctx.Err() when ctx is done first.
func (c *AsyncChannel[T]) SendContext(ctx context.Context, v T) error {
	return c.send(ctx, v)
}

func (c *AsyncChannel[T]) send(ctx context.Context, v T) error {
	done := ctx.Done()

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return ErrClosedChannel
	}

	c.writers++
	for c.qcount == len(c.buf) && !c.closed {
		if c.cwr.WaitWithDeadline(&c.lock, nsync.NoDeadline, done) == nsync.Cancelled {
			c.writers--
			return ctx.Err()
		}
	}
	c.writers--

	if c.closed {
		return ErrClosedChannel
	}
	c.enqueueLocked(v)
	return nil
}

// TrySend enqueues v only if buffer space is immediately available.
func (c *AsyncChannel[T]) TrySend(v T) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed || c.qcount == len(c.buf) {
		return false
	}
	c.enqueueLocked(v)
	return true
}

// TrySendTimeout waits up to timeout for buffer space. A zero timeout is
// the non-blocking form; a negative one waits indefinitely but reports
// false instead of an error on closure.
func (c *AsyncChannel[T]) TrySendTimeout(v T, timeout time.Duration) bool {
	if timeout == 0 {
		return c.TrySend(v)
	}
	deadline := deadlineFor(timeout)

	c.lock.Lock()
	defer c.lock.Unlock()

	c.writers++
	for c.qcount == len(c.buf) && !c.closed {
		if c.cwr.WaitWithDeadline(&c.lock, deadline, nil) != nsync.OK {
			break
		}
	}
	c.writers--

	if c.closed || c.qcount == len(c.buf) {
		return false
	}
	c.enqueueLocked(v)
	return true
}

// Recv dequeues the next value, blocking while the buffer is empty. After
// closure it keeps draining queued values; once empty it fails with
// ErrClosedChannel.
func (c *AsyncChannel[T]) Recv() (T, error) {
	return c.recv(context.Background())
}

// RecvContext is Recv, abandoned with ctx.Err() when ctx is done first.
func (c *AsyncChannel[T]) RecvContext(ctx context.Context) (T, error) {
	return c.recv(ctx)
}

func (c *AsyncChannel[T]) recv(ctx context.Context) (T, error) {
	var zero T
	done := ctx.Done()

	c.lock.Lock()
	defer c.lock.Unlock()

	c.readers++
	for c.qcount == 0 && !c.closed {
		if c.crd.WaitWithDeadline(&c.lock, nsync.NoDeadline, done) == nsync.Cancelled {
			c.readers--
			return zero, ctx.Err()
		}
	}
	c.readers--

	if c.qcount == 0 {
		return zero, ErrClosedChannel
	}
	return c.dequeueLocked(), nil
}

// TryRecv dequeues a value only if one is immediately available.
func (c *AsyncChannel[T]) TryRecv() (T, bool) {
	var zero T
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.qcount == 0 {
		return zero, false
	}
	return c.dequeueLocked(), true
}

// TryRecvTimeout waits up to timeout for a value; time semantics as in
// TrySendTimeout.
func (c *AsyncChannel[T]) TryRecvTimeout(timeout time.Duration) (T, bool) {
	if timeout == 0 {
		return c.TryRecv()
	}
	var zero T
	deadline := deadlineFor(timeout)

	c.lock.Lock()
	defer c.lock.Unlock()

	c.readers++
	for c.qcount == 0 && !c.closed {
		if c.crd.WaitWithDeadline(&c.lock, deadline, nil) != nsync.OK {
			break
		}
	}
	c.readers--

	if c.qcount == 0 {
		return zero, false
	}
	return c.dequeueLocked(), true
}

// Close closes the channel and wakes everything parked on it. Queued values
// remain receivable until drained. Closing a closed channel is a no-op.
func (c *AsyncChannel[T]) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.signalReadersLocked()
	c.signalWritersLocked()
}

// IsClosed reports whether the channel is closed and drained.
func (c *AsyncChannel[T]) IsClosed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.closed && c.qcount == 0
}

// Len is the number of values queued in the buffer.
func (c *AsyncChannel[T]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.qcount
}

// Cap is the buffer capacity.
func (c *AsyncChannel[T]) Cap() int {
	return len(c.buf)
}

// ForEach receives values and passes them to fn until the channel is closed
// and drained.
func (c *AsyncChannel[T]) ForEach(fn func(T)) {
	for {
		v, err := c.Recv()
		if err != nil {
			return
		}
		fn(v)
	}
}

// Selector hooks. See the selectable contract in basechan.go.

func (c *AsyncChannel[T]) hasMessagesStatus() status {
	c.lock.Lock()
	defer c.lock.Unlock()
	switch {
	case c.qcount > 0:
		return statusReady
	case c.closed:
		return statusClosed
	default:
		return statusNotReady
	}
}

func (c *AsyncChannel[T]) hasFreeCapacityStatus() status {
	c.lock.Lock()
	defer c.lock.Unlock()
	switch {
	case c.closed:
		return statusClosed
	case c.qcount < len(c.buf):
		return statusReady
	default:
		return statusNotReady
	}
}

func (c *AsyncChannel[T]) ifEmptyAddReaderWaiter(w *waiter) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.qcount > 0 || c.closed {
		return true
	}
	c.readWaiters = append(c.readWaiters, w)
	return false
}

func (c *AsyncChannel[T]) ifFullAddWriterWaiter(w *waiter) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed || c.qcount < len(c.buf) {
		return true
	}
	c.writeWaiters = append(c.writeWaiters, w)
	return false
}
