package monitor

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Readm/axilite_sim/bus"
	"github.com/Readm/axilite_sim/core"
	"github.com/Readm/axilite_sim/hooks"
)

// step drives both sides of the wire for the edge that follows it.
type step func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus)

// runScript plays steps on consecutive edges (step i is applied while evaluating
// edge i) and returns what the monitor published.
func runScript(t *testing.T, steps []step, opts ...Option) ([]core.Transaction, *Monitor) {
	t.Helper()

	b := bus.New()
	clk := bus.NewClock(b)
	broker := hooks.NewPluginBroker()

	var got []core.Transaction
	broker.RegisterObserved(func(ctx *hooks.ObservedContext) error {
		got = append(got, ctx.Transaction)
		return nil
	})
	mon, err := New(broker, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	wire, _ := clk.Join("wire")
	mp, _ := clk.Join("monitor")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer clk.Stop()
		m, s := b.Master(), b.Slave()
		for i := 0; i < len(steps)+2; i++ {
			if _, err := wire.Edge(); err != nil {
				return
			}
			if i < len(steps) && steps[i] != nil {
				steps[i](m, s, b)
			}
		}
		// let the monitor see the last driven edge
		_, _ = wire.Edge()
	}()
	var monErr error
	go func() {
		defer wg.Done()
		monErr = mon.Run(mp)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		clk.Stop()
		t.Fatalf("script did not finish")
	}
	if monErr != nil && !errors.Is(monErr, bus.ErrStopped) {
		t.Fatalf("monitor failed: %v", monErr)
	}
	return got, mon
}

func outOfReset(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
	b.SetReset(false)
	m.Idle()
}

func TestMonitorReconstructsWrite(t *testing.T) {
	got, _ := runScript(t, []step{
		outOfReset,
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
			m.DriveAW(0x10, 0)
			s.SetReady(true, true, true)
		},
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
			m.ReleaseAW()
			m.DriveW(0xA5A5A5A5, core.StrbAll)
		},
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
			m.ReleaseW()
			s.RespondB(core.RespOKAY)
		},
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) { s.ReleaseB() },
	})

	if len(got) != 1 {
		t.Fatalf("expected one record, got %d", len(got))
	}
	tx := got[0]
	if !tx.IsWrite || tx.Address != 0x10 || tx.Data != 0xA5A5A5A5 || tx.Response != core.RespOKAY {
		t.Fatalf("unexpected record %s", tx)
	}
	if tx.EndCycle <= tx.StartCycle {
		t.Fatalf("expected end after start, got %d..%d", tx.StartCycle, tx.EndCycle)
	}
}

func TestMonitorAcceptsDataOnAddressEdge(t *testing.T) {
	got, _ := runScript(t, []step{
		outOfReset,
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
			m.DriveAW(0x20, 0)
			m.DriveW(0x55, core.StrbAll)
			s.SetReady(true, true, true)
		},
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
			m.ReleaseAW()
			m.ReleaseW()
			s.RespondB(core.RespSLVERR)
		},
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) { s.ReleaseB() },
	})

	if len(got) != 1 || got[0].Data != 0x55 || got[0].Response != core.RespSLVERR {
		t.Fatalf("unexpected records %v", got)
	}
}

func TestMonitorReconstructsRead(t *testing.T) {
	got, _ := runScript(t, []step{
		outOfReset,
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
			m.DriveAR(0x30, 0)
			s.SetReady(true, true, true)
		},
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
			m.ReleaseAR()
			s.RespondR(0xFEED, core.RespOKAY)
		},
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) { s.ReleaseR() },
	})

	if len(got) != 1 {
		t.Fatalf("expected one record, got %d", len(got))
	}
	if tx := got[0]; tx.IsWrite || tx.Address != 0x30 || tx.Data != 0xFEED {
		t.Fatalf("unexpected record %s", tx)
	}
}

func TestMonitorIgnoresNonOverlappingValidReady(t *testing.T) {
	got, _ := runScript(t, []step{
		outOfReset,
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) { m.DriveAR(0x40, 0) },
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
			m.ReleaseAR()
			s.SetReady(true, true, true)
		},
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) { s.RespondR(1, core.RespOKAY) },
	})

	if len(got) != 0 {
		t.Fatalf("valid and ready never overlapped, yet monitor recorded %v", got)
	}
}

func TestMonitorIgnoresHandshakesInReset(t *testing.T) {
	got, _ := runScript(t, []step{
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
			m.DriveAR(0x50, 0)
			s.SetReady(true, true, true)
		},
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
			m.ReleaseAR()
			s.RespondR(1, core.RespOKAY)
		},
	})
	if len(got) != 0 {
		t.Fatalf("handshakes in reset must be ignored, got %v", got)
	}
}

func TestMonitorDropsTransactionCutByReset(t *testing.T) {
	got, mon := runScript(t, []step{
		outOfReset,
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
			m.DriveAR(0x60, 0)
			s.SetReady(true, true, true)
		},
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
			m.ReleaseAR()
			b.SetReset(true)
		},
	})
	if len(got) != 0 || mon.Aborted() != 1 {
		t.Fatalf("expected one aborted record, got records=%v aborted=%d", got, mon.Aborted())
	}
}

func TestNewRequiresBroker(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil broker")
	}
}

func TestMonitorWarnsOnSimultaneousAddressHandshakes(t *testing.T) {
	var buf bytes.Buffer
	got, _ := runScript(t, []step{
		outOfReset,
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
			m.DriveAW(0x70, 0)
			m.DriveW(0x99, core.StrbAll)
			m.DriveAR(0x74, 0)
			s.SetReady(true, true, true)
		},
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) {
			m.ReleaseAW()
			m.ReleaseW()
			m.ReleaseAR()
			s.RespondB(core.RespOKAY)
		},
		func(m *bus.MasterPort, s *bus.SlavePort, b *bus.Bus) { s.ReleaseB() },
	}, WithLogger(zerolog.New(&buf)))

	if len(got) != 1 || !got[0].IsWrite || got[0].Address != 0x70 {
		t.Fatalf("expected only the write record, got %v", got)
	}
	if !strings.Contains(buf.String(), "read address on write address edge dropped") {
		t.Fatalf("missing warning, log:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), `"addr":116`) {
		t.Fatalf("warning should carry the read address, log:\n%s", buf.String())
	}
}
