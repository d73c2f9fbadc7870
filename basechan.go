// Copyright 2021 The channel library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"sync"
	"time"

	"v.io/x/lib/nsync"
)

// Readiness of one side of a channel, as observed by the selector under the
// channel's lock. statusClosed means the side can never become ready again:
// for sends, the channel is closed; for receives, it is closed and drained.
type status int

const (
	statusNotReady status = iota
	statusReady
	statusClosed
)

// selectable is the contract a channel offers the selector: readiness
// snapshots and waiter registration. All methods take the channel's own
// lock; the selector never holds two channel locks at once.
type selectable interface {
	// ifEmptyAddReaderWaiter registers w to be released when a message
	// becomes available. If one is already available (or the channel is
	// closed, so waiting is pointless), it registers nothing and returns
	// true: the caller should rescan and commit now.
	ifEmptyAddReaderWaiter(w *waiter) bool

	// ifFullAddWriterWaiter is the symmetric form for send readiness.
	ifFullAddWriterWaiter(w *waiter) bool

	delReaderWaiter(w *waiter)
	delWriterWaiter(w *waiter)

	hasMessagesStatus() status
	hasFreeCapacityStatus() status
}

// baseChan is the state shared by both channel kinds.
//
// Invariants:
//	All fields are protected by lock, including both waiter lists.
//	closed is monotonic: once true it never reverts.
//	Any transition that can enable a blocked reader broadcasts crd AND
//	releases every semaphore in readWaiters; symmetrically for writers.
//	Closure does both.
//
// The condition variables come from nsync rather than sync.Cond because the
// timed operation variants need a wait with a deadline.
type baseChan struct {
	lock sync.Mutex

	crd nsync.CV // readers re-examine state: new value or closure
	cwr nsync.CV // writers re-examine state: free capacity or closure

	closed  bool
	readers int // callers parked inside a blocking recv
	writers int // callers parked inside a blocking send

	readWaiters  []*waiter // selectors waiting for a message
	writeWaiters []*waiter // selectors waiting for capacity
}

// signalReadersLocked wakes everything waiting for a message.
func (c *baseChan) signalReadersLocked() {
	c.crd.Broadcast()
	for _, w := range c.readWaiters {
		w.release()
	}
}

// signalWritersLocked wakes everything waiting for capacity.
func (c *baseChan) signalWritersLocked() {
	c.cwr.Broadcast()
	for _, w := range c.writeWaiters {
		w.release()
	}
}

func (c *baseChan) delReaderWaiter(w *waiter) {
	c.lock.Lock()
	c.readWaiters = removeWaiter(c.readWaiters, w)
	c.lock.Unlock()
}

func (c *baseChan) delWriterWaiter(w *waiter) {
	c.lock.Lock()
	c.writeWaiters = removeWaiter(c.writeWaiters, w)
	c.lock.Unlock()
}

func removeWaiter(list []*waiter, w *waiter) []*waiter {
	for i, x := range list {
		if x == w {
			last := len(list) - 1
			list[i] = list[last]
			list[last] = nil
			return list[:last]
		}
	}
	return list
}

// deadlineFor converts the relative timeout of the timed operation variants
// into the absolute deadline nsync expects. Negative means no deadline.
func deadlineFor(timeout time.Duration) time.Time {
	if timeout < 0 {
		return nsync.NoDeadline
	}
	return time.Now().Add(timeout)
}
