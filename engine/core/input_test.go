package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputStateKeyTransitions(t *testing.T) {
	s := NewInputState(8)

	s.ProcessKey(KEY_W, true)
	s.ProcessKey(KEY_W, true) // no state change, no event
	assert.True(t, s.IsKeyDown(KEY_W))
	assert.False(t, s.WasKeyDown(KEY_W))

	s.Update()
	assert.True(t, s.WasKeyDown(KEY_W))

	s.ProcessKey(KEY_W, false)
	assert.True(t, s.IsKeyUp(KEY_W))

	events := s.Events().Drain()
	require.Len(t, events, 2)
	assert.Equal(t, EVENT_CODE_KEY_PRESSED, events[0].Code)
	assert.Equal(t, EVENT_CODE_KEY_RELEASED, events[1].Code)
	assert.Equal(t, KEY_W, events[1].Key)
}

func TestInputStateScrollIsQueuedNotGlobal(t *testing.T) {
	a := NewInputState(4)
	b := NewInputState(4)

	a.ProcessScroll(0, 1.5)
	assert.Equal(t, 1, a.Events().Len())
	assert.Equal(t, 0, b.Events().Len())

	ev, ok := a.Events().Poll()
	require.True(t, ok)
	assert.Equal(t, EVENT_CODE_MOUSE_WHEEL, ev.Code)
	assert.Equal(t, 1.5, ev.Y)

	_, ok = a.Events().Poll()
	assert.False(t, ok)
}

func TestInputQueueDropsOldest(t *testing.T) {
	q := NewInputQueue(2)
	q.Push(InputEvent{Code: EVENT_CODE_MOUSE_WHEEL, Y: 1})
	q.Push(InputEvent{Code: EVENT_CODE_MOUSE_WHEEL, Y: 2})
	q.Push(InputEvent{Code: EVENT_CODE_MOUSE_WHEEL, Y: 3})

	events := q.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, 2.0, events[0].Y)
	assert.Equal(t, 3.0, events[1].Y)
	assert.Equal(t, 1, q.Dropped())
	assert.Equal(t, 0, q.Dropped())
}

func TestInputStateIgnoresOutOfRangeKeys(t *testing.T) {
	s := NewInputState(1)
	s.ProcessKey(KEYS_MAX_KEYS+1, true)
	assert.False(t, s.IsKeyDown(KEYS_MAX_KEYS+1))
	assert.Equal(t, 0, s.Events().Len())
}
