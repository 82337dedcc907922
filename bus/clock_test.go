package bus

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func runProcesses(t *testing.T, timeout time.Duration, fns ...func() error) {
	t.Helper()

	errs := make(chan error, len(fns))
	var wg sync.WaitGroup
	for _, fn := range fns {
		wg.Add(1)
		go func(fn func() error) {
			defer wg.Done()
			errs <- fn()
		}(fn)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatalf("processes did not finish within %s", timeout)
	}
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("process failed: %v", err)
		}
	}
}

func TestDrivenValueVisibleOnNextEdge(t *testing.T) {
	b := New()
	clk := NewClock(b)
	m := b.Master()

	master, err := clk.Join("master")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	watcher, err := clk.Join("watcher")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	seen := make([]bool, 0, 4)
	runProcesses(t, 2*time.Second,
		func() error {
			defer master.Leave()
			if _, err := master.Edge(); err != nil {
				return err
			}
			m.DriveAR(0x40, 0)
			_, err := master.Edge()
			return err
		},
		func() error {
			defer watcher.Leave()
			for i := 0; i < 2; i++ {
				s, err := watcher.Edge()
				if err != nil {
					return err
				}
				seen = append(seen, s.AR.Valid)
			}
			return nil
		},
	)

	if len(seen) != 2 || seen[0] || !seen[1] {
		t.Fatalf("expected ARVALID low at edge 0 and high at edge 1, got %v", seen)
	}
}

func TestHandshakeRequiresValidAndReadyOnSameEdge(t *testing.T) {
	b := New()
	b.SetReset(false)
	clk := NewClock(b)
	m := b.Master()
	sl := b.Slave()

	transfers := 0
	clk.OnEdge(func(cycle int, s Signals) {
		if s.Fired(ChanAW) {
			transfers++
		}
	})

	master, _ := clk.Join("master")
	slave, _ := clk.Join("slave")

	runProcesses(t, 2*time.Second,
		func() error {
			defer master.Leave()
			if _, err := master.Edge(); err != nil {
				return err
			}
			// valid for exactly one edge
			m.DriveAW(0x10, 0)
			if _, err := master.Edge(); err != nil {
				return err
			}
			m.ReleaseAW()
			return master.Wait(3)
		},
		func() error {
			defer slave.Leave()
			if err := slave.Wait(2); err != nil {
				return err
			}
			// ready only after valid dropped
			sl.SetReady(true, false, false)
			return slave.Wait(3)
		},
	)

	if transfers != 0 {
		t.Fatalf("expected no AW transfer without overlap, got %d", transfers)
	}
}

func TestNoTransferWhileInReset(t *testing.T) {
	s := Signals{
		AW: AddrChannel{Valid: true, Ready: true},
		AR: AddrChannel{Valid: true, Ready: true},
	}
	if len(s.Transfers()) != 0 {
		t.Fatalf("expected no transfers in reset, got %v", s.Transfers())
	}
	s.ResetN = true
	got := s.Transfers()
	if len(got) != 2 || got[0] != ChanAW || got[1] != ChanAR {
		t.Fatalf("unexpected transfers: %v", got)
	}
}

func TestUndrivenSignalsHoldValue(t *testing.T) {
	b := New()
	b.SetReset(false)
	b.Slave().SetReady(true, true, true)
	b.Commit()
	b.Master().DriveW(0xCAFE, 0x3)
	s := b.Commit()
	if !s.AW.Ready || !s.W.Ready || !s.AR.Ready {
		t.Fatalf("ready lines should hold across commits: %+v", s)
	}
	if s.W.Data != 0xCAFE || s.W.Strb != 0x3 {
		t.Fatalf("unexpected W payload: %+v", s.W)
	}
}

func TestCycleLimitStopsWaiters(t *testing.T) {
	b := New()
	clk := NewClock(b)
	clk.SetMaxCycle(5)
	p, _ := clk.Join("only")

	var lastErr error
	runProcesses(t, 2*time.Second, func() error {
		for {
			if _, err := p.Edge(); err != nil {
				lastErr = err
				return nil
			}
		}
	})

	if !errors.Is(lastErr, ErrCycleLimit) {
		t.Fatalf("expected ErrCycleLimit, got %v", lastErr)
	}
	if clk.Cycle() != 4 {
		t.Fatalf("expected clock to stop at edge 4, got %d", clk.Cycle())
	}
}

func TestStopWakesWaiters(t *testing.T) {
	b := New()
	clk := NewClock(b)
	a, _ := clk.Join("a")
	_, _ = clk.Join("b") // never advances

	var got error
	go func() {
		time.Sleep(20 * time.Millisecond)
		clk.Stop()
	}()
	runProcesses(t, 2*time.Second, func() error {
		if _, err := a.Edge(); err != nil {
			return err
		}
		_, got = a.Edge()
		return nil
	})
	if !errors.Is(got, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", got)
	}
}

func TestJoinAfterStartFails(t *testing.T) {
	b := New()
	clk := NewClock(b)
	p, _ := clk.Join("p")
	if _, err := clk.Join("p"); err == nil {
		t.Fatalf("expected duplicate join to fail")
	}
	if _, err := p.Edge(); err != nil {
		t.Fatalf("edge: %v", err)
	}
	if _, err := p.Edge(); err != nil {
		t.Fatalf("edge: %v", err)
	}
	if _, err := clk.Join("late"); err == nil {
		t.Fatalf("expected join after start to fail")
	}
}
