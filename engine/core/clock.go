package core

import "time"

// Clock measures elapsed time in seconds. The zero value is a stopped clock.
type Clock struct {
	now       func() time.Time
	startTime time.Time
	elapsed   float64
	running   bool
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.running {
		c.elapsed = c.clock().Sub(c.startTime).Seconds()
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = c.clock()
	c.elapsed = 0
	c.running = true
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.running = false
}

// Elapsed returns the seconds between Start and the last Update.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

// Lap returns the seconds since the previous Lap (or Start) and restarts the clock.
func (c *Clock) Lap() float64 {
	c.Update()
	dt := c.elapsed
	c.Start()
	return dt
}

func (c *Clock) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}
