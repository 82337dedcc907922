package bus

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var (
	// ErrStopped is returned to processes waiting on a clock that was stopped.
	ErrStopped = errors.New("clock stopped")
	// ErrCycleLimit is returned once the clock reached its maximum edge count.
	ErrCycleLimit = errors.New("clock reached cycle limit")
)

// EdgeObserver is invoked once per committed edge with the snapshot every process
// will sample for that edge. Observers run with the clock locked and must not call
// back into the clock.
type EdgeObserver func(cycle int, s Signals)

// Clock advances the bus one edge at a time in lockstep with every joined process.
// Each process obtains the snapshot of the current edge, drives the bus for the
// next one and reports completion by asking for the next edge. Once every process
// finished the current edge, the clock commits the driven state and advances.
type Clock struct {
	mu   sync.Mutex
	cond *sync.Cond
	bus  *Bus

	cycle    int
	snapshot Signals
	maxCycle int

	componentDone map[string]int
	observers     []EdgeObserver

	started bool
	stopped bool
	stopErr error
}

// NewClock creates a clock bound to the bus. Edge 0 samples the bus as it is now.
func NewClock(b *Bus) *Clock {
	c := &Clock{
		bus:           b,
		maxCycle:      math.MaxInt32,
		componentDone: make(map[string]int),
	}
	c.snapshot = b.Commit()
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Join registers a process with the clock. Every process must join before the
// first edge completes.
func (c *Clock) Join(name string) (*Process, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil, fmt.Errorf("join %q: clock already running", name)
	}
	if _, exists := c.componentDone[name]; exists {
		return nil, fmt.Errorf("join %q: process already registered", name)
	}
	c.componentDone[name] = -1
	return &Process{name: name, clock: c, cycle: -1}, nil
}

// OnEdge adds an observer for committed edges.
func (c *Clock) OnEdge(obs EdgeObserver) {
	if obs == nil {
		return
	}
	c.mu.Lock()
	c.observers = append(c.observers, obs)
	c.mu.Unlock()
}

// SetMaxCycle bounds how many edges the clock may run before stopping with ErrCycleLimit.
func (c *Clock) SetMaxCycle(maxCycle int) {
	c.mu.Lock()
	if maxCycle > 0 {
		c.maxCycle = maxCycle
	}
	c.mu.Unlock()
}

// Stop wakes every waiter with ErrStopped. Stopping twice keeps the first reason.
func (c *Clock) Stop() {
	c.stopWith(ErrStopped)
}

func (c *Clock) stopWith(err error) {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		c.stopErr = err
	}
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Err returns the reason the clock stopped, or nil while it is running.
func (c *Clock) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopErr
}

// Cycle returns the edge currently being evaluated.
func (c *Clock) Cycle() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycle
}

// SnapshotProgress returns the current edge, the edge limit and the last edge each
// process finished.
func (c *Clock) SnapshotProgress() (cycle int, max int, done map[string]int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cycle = c.cycle
	max = c.maxCycle
	done = make(map[string]int, len(c.componentDone))
	for k, v := range c.componentDone {
		done[k] = v
	}
	return
}

func (c *Clock) waitForCycle(name string, after int) (int, Signals, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if c.stopped {
			return -1, Signals{}, c.stopErr
		}
		if c.cycle > after {
			return c.cycle, c.snapshot, nil
		}
		c.cond.Wait()
	}
}

func (c *Clock) markDone(name string, cycle int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.started = true
	prev, ok := c.componentDone[name]
	if !ok || cycle <= prev {
		return
	}
	c.componentDone[name] = cycle
	c.advanceLocked()
}

func (c *Clock) leave(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.started = true
	delete(c.componentDone, name)
	c.advanceLocked()
}

func (c *Clock) advanceLocked() {
	if c.stopped || len(c.componentDone) == 0 || !c.allDoneLocked() {
		return
	}
	if c.cycle+1 >= c.maxCycle {
		c.stopped = true
		c.stopErr = ErrCycleLimit
		c.cond.Broadcast()
		return
	}
	c.snapshot = c.bus.Commit()
	c.cycle++
	for _, obs := range c.observers {
		obs(c.cycle, c.snapshot)
	}
	c.cond.Broadcast()
}

func (c *Clock) allDoneLocked() bool {
	for _, done := range c.componentDone {
		if done < c.cycle {
			return false
		}
	}
	return true
}
