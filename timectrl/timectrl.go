package timectrl

import (
	"context"
	"sync"
	"time"
)

// DefaultTick is one frame at 60 frames per second.
const DefaultTick = time.Second / 60

// SimClock is read access to simulation time, so collaborators do not depend
// on the concrete clock.
type SimClock interface {
	// Elapsed returns the simulated time since the clock started.
	Elapsed() time.Duration
}

// Mode describes how the FrameClock advances simulation time.
type Mode int

const (
	// RealTime paces frames with the wall clock.
	RealTime Mode = iota
	// Accelerated advances as quickly as the loop can run while still stepping by Tick.
	Accelerated
)

// FrameClock produces frames of simulated time and hands each frame's dt, in
// seconds, to its listeners. The multiplier scales simulated time per frame
// without changing the frame rate.
type FrameClock struct {
	mu         sync.RWMutex
	Tick       time.Duration
	Mode       Mode
	multiplier float64
	elapsed    time.Duration
	frames     uint64

	listeners []func(dt float64)
}

// NewFrameClock constructs a clock with a multiplier of 1. A non-positive tick
// selects DefaultTick.
func NewFrameClock(tick time.Duration, mode Mode) *FrameClock {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &FrameClock{Tick: tick, Mode: mode, multiplier: 1}
}

// Elapsed returns the simulated time so far. Implements SimClock.
func (c *FrameClock) Elapsed() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.elapsed
}

// Frames returns the number of frames produced.
func (c *FrameClock) Frames() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frames
}

// Multiplier returns the clock multiplier.
func (c *FrameClock) Multiplier() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.multiplier
}

// SetMultiplier changes how much simulated time passes per frame. Negative
// values are treated as 0, which pauses the simulation.
func (c *FrameClock) SetMultiplier(m float64) {
	if m < 0 {
		m = 0
	}
	c.mu.Lock()
	c.multiplier = m
	c.mu.Unlock()
}

// AddListener registers a callback invoked on every frame.
func (c *FrameClock) AddListener(fn func(dt float64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Advance produces one frame synchronously and returns its dt.
func (c *FrameClock) Advance() float64 {
	c.mu.Lock()
	dt := c.Tick.Seconds() * c.multiplier
	c.elapsed += time.Duration(float64(c.Tick) * c.multiplier)
	c.frames++
	listeners := append([]func(float64){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(dt)
	}
	return dt
}

// Start runs the clock until duration of simulated time has passed (forever
// when duration is 0) or ctx is cancelled. It returns a channel that is closed
// when the clock stops.
func (c *FrameClock) Start(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		var tick <-chan time.Time
		if c.Mode == RealTime {
			ticker := time.NewTicker(c.Tick)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			if duration > 0 && c.Elapsed() >= duration {
				return
			}
			if tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			} else if ctx.Err() != nil {
				return
			}
			if c.Multiplier() == 0 && c.Mode == Accelerated {
				// A paused accelerated clock would spin forever.
				return
			}
			c.Advance()
		}
	}()
	return done
}
