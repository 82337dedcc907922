package bus

// Process is one component's view of the clock. It is not safe for concurrent use;
// each process belongs to exactly one goroutine.
type Process struct {
	name  string
	clock *Clock
	cycle int
	snap  Signals
	left  bool
}

// Name returns the name the process joined with.
func (p *Process) Name() string { return p.name }

// Cycle returns the edge the process is currently evaluating, or -1 before the first edge.
func (p *Process) Cycle() int { return p.cycle }

// Signals returns the snapshot of the current edge.
func (p *Process) Signals() Signals { return p.snap }

// Edge finishes the current edge and blocks until the next one is available.
// Whatever the process drove before calling Edge is visible in the returned snapshot.
func (p *Process) Edge() (Signals, error) {
	if p.left {
		return Signals{}, ErrStopped
	}
	if p.cycle >= 0 {
		p.clock.markDone(p.name, p.cycle)
	}
	cycle, snap, err := p.clock.waitForCycle(p.name, p.cycle)
	if err != nil {
		return Signals{}, err
	}
	p.cycle = cycle
	p.snap = snap
	return snap, nil
}

// WaitUntil advances at least one edge and keeps advancing until cond holds on the
// sampled snapshot.
func (p *Process) WaitUntil(cond func(Signals) bool) (Signals, error) {
	for {
		s, err := p.Edge()
		if err != nil {
			return Signals{}, err
		}
		if cond(s) {
			return s, nil
		}
	}
}

// Await is WaitUntil that first tests the current snapshot.
func (p *Process) Await(cond func(Signals) bool) (Signals, error) {
	if p.cycle >= 0 && cond(p.snap) {
		return p.snap, nil
	}
	return p.WaitUntil(cond)
}

// Wait advances n edges.
func (p *Process) Wait(n int) error {
	for i := 0; i < n; i++ {
		if _, err := p.Edge(); err != nil {
			return err
		}
	}
	return nil
}

// Leave removes the process from the clock so it no longer holds edges back.
func (p *Process) Leave() {
	if p.left {
		return
	}
	p.left = true
	p.clock.leave(p.name)
}
