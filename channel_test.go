// Copyright 2021 The channel library Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	t.Run("zero capacity is a rendezvous channel", func(t *testing.T) {
		ch := Make[int](0)
		_, ok := ch.(*SyncChannel[int])
		assert.True(t, ok)
		assert.Equal(t, 0, ch.Cap())
	})

	t.Run("positive capacity is a buffered channel", func(t *testing.T) {
		ch := Make[string](4)
		_, ok := ch.(*AsyncChannel[string])
		assert.True(t, ok)
		assert.Equal(t, 4, ch.Cap())
		assert.Equal(t, 0, ch.Len())
	})

	t.Run("negative capacity panics", func(t *testing.T) {
		assert.PanicsWithValue(t, ErrInvalidCapacity, func() {
			Make[int](-1)
		})
	})

	t.Run("async constructor rejects zero", func(t *testing.T) {
		assert.PanicsWithValue(t, ErrInvalidCapacity, func() {
			NewAsync[int](0)
		})
	})
}

func TestClosureMonotonic(t *testing.T) {
	ch := Make[int](2)
	require.NoError(t, ch.Send(1))

	ch.Close()
	assert.False(t, ch.IsClosed(), "closed but not yet drained")

	err := ch.Send(2)
	assert.ErrorIs(t, err, ErrClosedChannel)
	assert.False(t, ch.TrySend(2))

	v, err := ch.Recv()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	for i := 0; i < 3; i++ {
		assert.True(t, ch.IsClosed())
	}

	// Closing again must not corrupt state.
	ch.Close()
	assert.True(t, ch.IsClosed())
}

func TestForEach(t *testing.T) {
	ch := Make[int](8)
	for i := 0; i < 5; i++ {
		require.NoError(t, ch.Send(i))
	}
	ch.Close()

	var got []int
	ch.ForEach(func(v int) {
		got = append(got, v)
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.True(t, ch.IsClosed())
}
