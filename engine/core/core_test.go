package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIDGeneratorIsMonotonic(t *testing.T) {
	var g IDGenerator
	assert.Equal(t, uint64(0), g.Next())
	assert.Equal(t, uint64(1), g.Next())
	assert.Equal(t, uint64(2), g.Peek())
	assert.Equal(t, uint64(2), g.Next())
}

func TestClockLap(t *testing.T) {
	now := time.Unix(100, 0)
	c := &Clock{now: func() time.Time { return now }}
	c.Start()

	now = now.Add(250 * time.Millisecond)
	assert.InDelta(t, 0.25, c.Lap(), 1e-9)

	now = now.Add(time.Second)
	c.Update()
	assert.InDelta(t, 1.0, c.Elapsed(), 1e-9)

	c.Stop()
	now = now.Add(time.Second)
	c.Update()
	assert.InDelta(t, 1.0, c.Elapsed(), 1e-9)
}

func TestMetricsReportsOncePerSecond(t *testing.T) {
	m := NewMetrics()
	published := 0
	for i := 0; i < 32; i++ {
		if m.Update(0.125) {
			published++
		}
	}
	assert.Equal(t, 4, published)
	assert.Equal(t, 8.0, m.FPS())
	assert.Equal(t, 125.0, m.FrameTime())
}

func TestSetLogLevel(t *testing.T) {
	assert.NoError(t, SetLogLevel("info"))
	assert.Error(t, SetLogLevel("chatty"))
	assert.NoError(t, SetLogLevel("debug"))
}
