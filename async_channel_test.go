// Copyright 2021 The channel library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncBufferedBurst(t *testing.T) {
	ch := Make[int](4)

	for i := 0; i < 4; i++ {
		require.True(t, ch.TrySend(i))
	}
	assert.False(t, ch.TrySend(4), "buffer is full")
	assert.Equal(t, 4, ch.Len())

	for want := 0; want < 2; want++ {
		v, err := ch.Recv()
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}

	assert.True(t, ch.TrySend(4))
	assert.True(t, ch.TrySend(5))
	assert.False(t, ch.TrySend(6))

	// FIFO preserved across the wrap-around.
	for want := 2; want <= 5; want++ {
		v, err := ch.Recv()
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
}

func TestAsyncCloseDrains(t *testing.T) {
	ch := Make[string](8)
	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, ch.Send(s))
	}
	ch.Close()

	for _, want := range []string{"a", "b", "c"} {
		v, err := ch.Recv()
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}

	_, err := ch.Recv()
	assert.ErrorIs(t, err, ErrClosedChannel)
	assert.True(t, ch.IsClosed())
}

func TestAsyncFIFO(t *testing.T) {
	const n = 1000
	ch := Make[int](7)

	errc := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			if err := ch.Send(i); err != nil {
				errc <- err
				return
			}
		}
		errc <- nil
	}()

	for i := 0; i < n; i++ {
		v, err := ch.Recv()
		require.NoError(t, err)
		require.Equal(t, i, v, "receive order must equal send order")
	}
	require.NoError(t, <-errc)
}

func TestAsyncTimedVariants(t *testing.T) {
	t.Run("send on a full channel times out", func(t *testing.T) {
		ch := Make[int](1)
		require.True(t, ch.TrySend(1))

		start := time.Now()
		ok := ch.TrySendTimeout(2, 50*time.Millisecond)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
		assert.Equal(t, 1, ch.Len())
	})

	t.Run("recv on an empty channel times out", func(t *testing.T) {
		ch := Make[int](1)
		start := time.Now()
		_, ok := ch.TryRecvTimeout(50 * time.Millisecond)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("recv returns promptly when a value arrives", func(t *testing.T) {
		ch := Make[int](1)
		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = ch.Send(11)
		}()

		start := time.Now()
		v, ok := ch.TryRecvTimeout(5 * time.Second)
		require.True(t, ok)
		assert.Equal(t, 11, v)
		assert.Less(t, time.Since(start), 4*time.Second)
	})

	t.Run("send returns promptly when space frees up", func(t *testing.T) {
		ch := Make[int](1)
		require.True(t, ch.TrySend(1))
		go func() {
			time.Sleep(20 * time.Millisecond)
			_, _ = ch.Recv()
		}()

		ok := ch.TrySendTimeout(2, 5*time.Second)
		assert.True(t, ok)
	})
}

func TestAsyncClosed(t *testing.T) {
	t.Run("send fails immediately once closed", func(t *testing.T) {
		ch := Make[int](2)
		ch.Close()

		assert.ErrorIs(t, ch.Send(1), ErrClosedChannel)
		assert.False(t, ch.TrySend(1))
		assert.False(t, ch.TrySendTimeout(1, -1), "unbounded timed send reports false on closure")
	})

	t.Run("close unblocks a parked sender", func(t *testing.T) {
		ch := Make[int](1)
		require.True(t, ch.TrySend(1))

		errc := make(chan error, 1)
		go func() { errc <- ch.Send(2) }()

		time.Sleep(20 * time.Millisecond)
		ch.Close()

		select {
		case err := <-errc:
			assert.ErrorIs(t, err, ErrClosedChannel)
		case <-time.After(eventuallyFor):
			t.Fatal("sender still blocked after close")
		}
	})

	t.Run("close unblocks a parked receiver", func(t *testing.T) {
		ch := Make[int](1)
		errc := make(chan error, 1)
		go func() {
			_, err := ch.Recv()
			errc <- err
		}()

		time.Sleep(20 * time.Millisecond)
		ch.Close()

		select {
		case err := <-errc:
			assert.ErrorIs(t, err, ErrClosedChannel)
		case <-time.After(eventuallyFor):
			t.Fatal("receiver still blocked after close")
		}
	})

	t.Run("is-closed tracks draining", func(t *testing.T) {
		ch := Make[int](4)
		require.NoError(t, ch.Send(1))
		ch.Close()

		assert.False(t, ch.IsClosed())
		_, err := ch.Recv()
		require.NoError(t, err)
		assert.True(t, ch.IsClosed())
	})
}

func TestAsyncBlockedSendResumes(t *testing.T) {
	ch := Make[int](1)
	require.True(t, ch.TrySend(1))

	done := make(chan error, 1)
	go func() { done <- ch.Send(2) }()

	// The sender must wake as soon as capacity frees up: no lost wakeup.
	v, err := ch.Recv()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(eventuallyFor):
		t.Fatal("sender not woken by freed capacity")
	}

	v, err = ch.Recv()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestAsyncContext(t *testing.T) {
	t.Run("send on a full channel abandoned on cancellation", func(t *testing.T) {
		ch := Make[int](1)
		require.True(t, ch.TrySend(1))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := ch.SendContext(ctx, 2)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, ch.Len())
	})

	t.Run("recv abandoned on cancellation", func(t *testing.T) {
		ch := Make[int](1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := ch.RecvContext(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
