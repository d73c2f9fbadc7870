// Copyright 2021 The channel library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"context"
	"time"

	"v.io/x/lib/nsync"
)

// SyncChannel is a rendezvous channel: it has no buffer, and a value exists
// only in flight between one sender and one receiver.
//
// A blocking sender deposits its value into the slot and parks until a
// receiver consumes it. Several senders may share cwr, so a sender cannot
// tell from the slot alone whether its own value was taken; takes counts
// consumed values, and a sender compares it against the count recorded at
// deposit time.
//
// The try-send forms are stricter: they deposit only when a consumer is
// already committed (a parked receiver or a registered read waiter), so a
// successful TrySend never leaves a value behind with nobody coming for it.
type SyncChannel[T any] struct {
	baseChan

	val    T
	hasVal bool
	takes  uint64
}

// NewSync creates a synchronous (rendezvous) channel.
func NewSync[T any]() *SyncChannel[T] {
	if debugChan {
		println("channel: make sync")
	}
	return &SyncChannel[T]{}
}

// sendReadyLocked reports whether a try-send can hand a value over right
// now: the slot is free and a consumer is committed to taking it.
func (c *SyncChannel[T]) sendReadyLocked() bool {
	return !c.hasVal && (c.readers > 0 || len(c.readWaiters) > 0)
}

// Send delivers v to a receiver, blocking until the value has been taken.
// Fails with ErrClosedChannel if the channel is closed before delivery; in
// that case the value was not delivered and never will be.
func (c *SyncChannel[T]) Send(v T) error {
	return c.send(context.Background(), v)
}

// SendContext is Send, abandoned with ctx.Err() when ctx is done first.
func (c *SyncChannel[T]) SendContext(ctx context.Context, v T) error {
	return c.send(ctx, v)
}

func (c *SyncChannel[T]) send(ctx context.Context, v T) error {
	done := ctx.Done()

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return ErrClosedChannel
	}

	c.writers++

	// Wait for the slot.
	for c.hasVal && !c.closed {
		if c.cwr.WaitWithDeadline(&c.lock, nsync.NoDeadline, done) == nsync.Cancelled {
			c.writers--
			return ctx.Err()
		}
	}
	if c.closed {
		c.writers--
		return ErrClosedChannel
	}

	// Deposit and wait until a receiver takes it.
	c.val = v
	c.hasVal = true
	taken := c.takes
	c.signalReadersLocked()

	cancelled := false
	for c.takes == taken && !c.closed && !cancelled {
		cancelled = c.cwr.WaitWithDeadline(&c.lock, nsync.NoDeadline, done) == nsync.Cancelled
	}
	c.writers--

	if c.takes != taken {
		// Delivered. A late cancellation or closure changes nothing.
		c.signalWritersLocked()
		return nil
	}

	// Closed or cancelled with our value still in the slot: retract it so
	// it cannot be observed later, and wake anyone waiting on the slot
	// (in particular Close draining the channel).
	var zero T
	c.val = zero
	c.hasVal = false
	c.signalWritersLocked()
	if cancelled {
		return ctx.Err()
	}
	return ErrClosedChannel
}

// TrySend hands v over only if a consumer is ready for it right now.
func (c *SyncChannel[T]) TrySend(v T) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed || !c.sendReadyLocked() {
		return false
	}
	c.val = v
	c.hasVal = true
	c.signalReadersLocked()
	return true
}

// TrySendTimeout waits up to timeout for a ready consumer. A zero timeout
// is the non-blocking form; a negative one waits indefinitely but reports
// false instead of an error on closure.
func (c *SyncChannel[T]) TrySendTimeout(v T, timeout time.Duration) bool {
	if timeout == 0 {
		return c.TrySend(v)
	}
	deadline := deadlineFor(timeout)

	c.lock.Lock()
	defer c.lock.Unlock()

	c.writers++
	for !c.closed && !c.sendReadyLocked() {
		if c.cwr.WaitWithDeadline(&c.lock, deadline, nil) != nsync.OK {
			break
		}
	}
	c.writers--

	if c.closed || !c.sendReadyLocked() {
		return false
	}
	c.val = v
	c.hasVal = true
	c.signalReadersLocked()
	return true
}

// Recv takes the next value, blocking until a sender provides one. Fails
// with ErrClosedChannel once the channel is closed and no value is in
// flight.
func (c *SyncChannel[T]) Recv() (T, error) {
	return c.recv(context.Background())
}

// RecvContext is Recv, abandoned with ctx.Err() when ctx is done first.
func (c *SyncChannel[T]) RecvContext(ctx context.Context) (T, error) {
	return c.recv(ctx)
}

func (c *SyncChannel[T]) recv(ctx context.Context) (T, error) {
	var zero T
	done := ctx.Done()

	c.lock.Lock()
	defer c.lock.Unlock()

	c.readers++
	if !c.closed && !c.hasVal {
		// The channel just became send-ready: wake pending try-senders
		// and send-selectors.
		c.signalWritersLocked()
	}

	for !c.closed && !c.hasVal {
		if c.crd.WaitWithDeadline(&c.lock, nsync.NoDeadline, done) == nsync.Cancelled {
			c.readers--
			return zero, ctx.Err()
		}
	}
	if !c.hasVal {
		c.readers--
		return zero, ErrClosedChannel
	}
	return c.takeLocked(), nil
}

// takeLocked consumes the in-flight value and retires the caller's readers
// slot. Requires hasVal and an incremented readers count.
func (c *SyncChannel[T]) takeLocked() T {
	var zero T
	v := c.val
	c.val = zero
	c.hasVal = false
	c.takes++
	c.signalWritersLocked()
	c.readers--
	return v
}

// TryRecv takes the in-flight value if there is one. It drains a closed
// channel before failing.
func (c *SyncChannel[T]) TryRecv() (T, bool) {
	var zero T
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.hasVal {
		return zero, false
	}
	c.readers++ // retired by takeLocked
	return c.takeLocked(), true
}

// TryRecvTimeout waits up to timeout for a value; time semantics as in
// TrySendTimeout.
func (c *SyncChannel[T]) TryRecvTimeout(timeout time.Duration) (T, bool) {
	if timeout == 0 {
		return c.TryRecv()
	}
	var zero T
	deadline := deadlineFor(timeout)

	c.lock.Lock()
	defer c.lock.Unlock()

	c.readers++
	if !c.closed && !c.hasVal {
		c.signalWritersLocked()
	}

	for !c.closed && !c.hasVal {
		if c.crd.WaitWithDeadline(&c.lock, deadline, nil) != nsync.OK {
			break
		}
	}
	if !c.hasVal {
		c.readers--
		return zero, false
	}
	return c.takeLocked(), true
}

// Close closes the channel, wakes everything parked on it, and blocks until
// any in-flight value has been drained. Closing a closed channel is a
// no-op.
func (c *SyncChannel[T]) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.signalReadersLocked()
	c.signalWritersLocked()

	// Drain: an in-flight value is either taken by a receiver or
	// retracted by its sender; wait for the slot to clear.
	c.writers++
	for c.hasVal {
		c.cwr.Wait(&c.lock)
	}
	c.writers--
}

// IsClosed reports whether the channel is closed and no in-flight value
// remains retrievable.
func (c *SyncChannel[T]) IsClosed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.closed && !c.hasVal
}

// Len is 1 while a value is in flight, else 0.
func (c *SyncChannel[T]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.hasVal {
		return 1
	}
	return 0
}

// Cap is always 0 for a rendezvous channel.
func (c *SyncChannel[T]) Cap() int {
	return 0
}

// ForEach receives values and passes them to fn until the channel is closed
// and drained.
func (c *SyncChannel[T]) ForEach(fn func(T)) {
	for {
		v, err := c.Recv()
		if err != nil {
			return
		}
		fn(v)
	}
}

// Selector hooks. See the selectable contract in basechan.go.

func (c *SyncChannel[T]) hasMessagesStatus() status {
	c.lock.Lock()
	defer c.lock.Unlock()
	switch {
	case c.hasVal:
		return statusReady
	case c.closed:
		return statusClosed
	default:
		return statusNotReady
	}
}

func (c *SyncChannel[T]) hasFreeCapacityStatus() status {
	c.lock.Lock()
	defer c.lock.Unlock()
	switch {
	case c.closed:
		return statusClosed
	case c.sendReadyLocked():
		return statusReady
	default:
		return statusNotReady
	}
}

func (c *SyncChannel[T]) ifEmptyAddReaderWaiter(w *waiter) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.hasVal || c.closed {
		return true
	}
	c.readWaiters = append(c.readWaiters, w)
	// A registered read waiter is a committed consumer, which makes the
	// channel send-ready.
	c.signalWritersLocked()
	return false
}

func (c *SyncChannel[T]) ifFullAddWriterWaiter(w *waiter) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed || c.sendReadyLocked() {
		return true
	}
	c.writeWaiters = append(c.writeWaiters, w)
	return false
}
