// Copyright 2021 The channel library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import "time"

// A waiter is the notification object a selector registers with every
// candidate channel. It is a binary semaphore: release stores at most one
// permit, so a channel may release the same waiter any number of times
// without blocking or accumulating wakeups.
//
// The permit slot is a 1-slot buffered channel, the same construction
// golang.org/x/sync uses for its per-waiter ready channels.
type waiter struct {
	ready chan struct{}
}

func newWaiter() *waiter {
	return &waiter{ready: make(chan struct{}, 1)}
}

// release makes a permit available if none is pending. Safe to call from
// any goroutine, with or without channel locks held.
func (w *waiter) release() {
	select {
	case w.ready <- struct{}{}:
	default:
	}
}

// drain discards a pending permit, if any. The selector calls it before
// re-registering so a stale permit from a previous round does not cause an
// immediate spurious wakeup.
func (w *waiter) drain() {
	select {
	case <-w.ready:
	default:
	}
}

// await blocks until a permit arrives or cancel is closed. A nil cancel
// never fires. Reports whether a permit was consumed.
func (w *waiter) await(cancel <-chan struct{}) bool {
	select {
	case <-w.ready:
		return true
	case <-cancel:
		return false
	}
}

// awaitTimeout is await with a relative deadline. A negative timeout means
// no deadline.
func (w *waiter) awaitTimeout(timeout time.Duration, cancel <-chan struct{}) bool {
	if timeout < 0 {
		return w.await(cancel)
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-w.ready:
		return true
	case <-t.C:
		return false
	case <-cancel:
		return false
	}
}
