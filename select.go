// Copyright 2021 The channel library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

// This file contains the multi-way selection primitive.
//
// The protocol never holds two channel locks at once. Each round scans the
// candidates one channel at a time, committing to the first that is ready;
// if none is, it registers a single caller-owned waiter semaphore with
// every candidate, parks on it, unregisters, and retries. Any candidate
// whose readiness changes while the selector is parked releases the waiter.
//
// Fairness: the scan starts at a different candidate on every round and on
// every call (rotating seed), so continuously-ready candidates are all
// picked over time rather than the list head winning every race.

import (
	"context"
	"sync/atomic"
	"time"
)

// selectSeq rotates the scan starting point across Select calls.
var selectSeq atomic.Uint64

// SelectCase is one candidate operation for Select: a channel, a role, and
// the handler to run if the operation commits. Build values with RecvCase
// and SendCase.
type SelectCase struct {
	ch     selectable
	send   bool
	commit func() bool
}

// RecvCase is a candidate that receives from c and passes the value to fn.
// A nil fn discards the value.
func RecvCase[T any](c Channel[T], fn func(T)) SelectCase {
	return SelectCase{
		ch: c,
		commit: func() bool {
			v, ok := c.TryRecv()
			if ok && fn != nil {
				fn(v)
			}
			return ok
		},
	}
}

// SendCase is a candidate that sends v on c and runs fn once the value has
// been accepted. A nil fn is allowed.
func SendCase[T any](c Channel[T], v T, fn func()) SelectCase {
	return SelectCase{
		ch:   c,
		send: true,
		commit: func() bool {
			if !c.TrySend(v) {
				return false
			}
			if fn != nil {
				fn()
			}
			return true
		},
	}
}

// Select blocks until exactly one of the candidate operations commits and
// returns its index. Candidates on closed channels (closed-and-drained, for
// receives) are dropped; when every candidate has been dropped Select fails
// with ErrClosedChannel. Select panics if called with no cases.
func Select(cases ...SelectCase) (int, error) {
	idx, _, err := doSelect(nil, -1, cases)
	return idx, err
}

// SelectContext is Select, abandoned with ctx.Err() when ctx is done first.
func SelectContext(ctx context.Context, cases ...SelectCase) (int, error) {
	idx, _, err := doSelect(ctx, -1, cases)
	return idx, err
}

// TrySelect commits to a ready candidate if there is one, without blocking.
// It reports the committed index, or (-1, false) if nothing was ready.
func TrySelect(cases ...SelectCase) (int, bool) {
	idx, ok, _ := doSelect(nil, 0, cases)
	return idx, ok
}

// TrySelectTimeout is TrySelect with a bounded wait. A zero timeout is the
// non-blocking form; a negative timeout waits indefinitely. Closure of all
// candidates yields the negative result, never an error.
func TrySelectTimeout(timeout time.Duration, cases ...SelectCase) (int, bool) {
	idx, ok, _ := doSelect(nil, timeout, cases)
	return idx, ok
}

// doSelect implements all Select forms. timeout < 0 blocks, 0 polls once,
// > 0 bounds the wait. The error return is ErrClosedChannel when every
// candidate is closed (the try forms discard it), or ctx.Err().
func doSelect(ctx context.Context, timeout time.Duration, cases []SelectCase) (int, bool, error) {
	n := len(cases)
	if n == 0 {
		panic("channel: select on no cases")
	}

	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}

	var deadline time.Time
	timed := timeout > 0
	if timed {
		deadline = time.Now().Add(timeout)
	}

	start := int(selectSeq.Add(1) % uint64(n))
	dropped := make([]bool, n)
	registered := make([]int, 0, n)
	var w *waiter

	for {
		// Pass 1: scan for a ready candidate and commit to it. The
		// status check and the commit each take the candidate's lock
		// on their own; a commit can lose the race to another caller,
		// in which case the candidate is treated as not ready.
		alive := 0
		for i := 0; i < n; i++ {
			idx := (start + i) % n
			cas := &cases[idx]
			if dropped[idx] {
				continue
			}
			var st status
			if cas.send {
				st = cas.ch.hasFreeCapacityStatus()
			} else {
				st = cas.ch.hasMessagesStatus()
			}
			if st == statusClosed {
				dropped[idx] = true
				continue
			}
			alive++
			if st == statusReady && cas.commit() {
				return idx, true, nil
			}
		}

		if alive == 0 {
			return -1, false, ErrClosedChannel
		}
		if timeout == 0 {
			return -1, false, nil
		}
		if ctx != nil && ctx.Err() != nil {
			return -1, false, ctx.Err()
		}
		if timed && !time.Now().Before(deadline) {
			return -1, false, nil
		}

		// Pass 2: register the waiter with every live candidate. A
		// registration that observes readiness aborts the pass; the
		// rescan will find the ready candidate.
		if w == nil {
			w = newWaiter()
		}
		w.drain()
		registered = registered[:0]
		ready := false
		for i := 0; i < n && !ready; i++ {
			idx := (start + i) % n
			cas := &cases[idx]
			if dropped[idx] {
				continue
			}
			if cas.send {
				ready = cas.ch.ifFullAddWriterWaiter(w)
			} else {
				ready = cas.ch.ifEmptyAddReaderWaiter(w)
			}
			if !ready {
				registered = append(registered, idx)
			}
		}

		// Pass 3: park until some candidate changes state, then
		// unregister everywhere and retry from a rotated start.
		if !ready {
			if timed {
				if left := time.Until(deadline); left > 0 {
					w.awaitTimeout(left, done)
				}
			} else {
				w.await(done)
			}
		}
		for _, idx := range registered {
			if cases[idx].send {
				cases[idx].ch.delWriterWaiter(w)
			} else {
				cases[idx].ch.delReaderWaiter(w)
			}
		}
		start = (start + 1) % n
	}
}
