// Package monitor reconstructs transactions from bus activity without driving it.
package monitor

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Readm/axilite_sim/bus"
	"github.com/Readm/axilite_sim/core"
	"github.com/Readm/axilite_sim/hooks"
	"github.com/Readm/axilite_sim/logging"
)

type Option func(*Monitor)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

// Monitor samples the bus once per edge and publishes every completed transaction
// to the broker. It follows one transaction at a time: a slave that answers
// several outstanding requests would have its phases attributed to the wrong
// address. A read address accepted on the same edge as a write address is
// logged and not followed.
type Monitor struct {
	broker *hooks.PluginBroker
	log    zerolog.Logger

	observed int
	aborted  int
}

// New creates a monitor publishing to broker.
func New(broker *hooks.PluginBroker, opts ...Option) (*Monitor, error) {
	if broker == nil {
		return nil, errors.New("monitor: broker is nil")
	}
	m := &Monitor{
		broker: broker,
		log:    logging.For("monitor"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Observed returns how many transactions were published.
func (m *Monitor) Observed() int { return m.observed }

// Aborted returns how many partially observed transactions were dropped by a reset.
func (m *Monitor) Aborted() int { return m.aborted }

// Run watches the bus until the clock stops.
func (m *Monitor) Run(p *bus.Process) error {
	for {
		s, err := p.Edge()
		if err != nil {
			return err
		}

		var (
			tx core.Transaction
			ok bool
		)
		switch {
		case s.Fired(bus.ChanAW):
			if s.Fired(bus.ChanAR) {
				m.log.Warn().Int("cycle", p.Cycle()).Uint32("addr", s.AR.Addr).
					Msg("read address on write address edge dropped")
			}
			tx, ok, err = m.collectWrite(p, s)
		case s.Fired(bus.ChanAR):
			tx, ok, err = m.collectRead(p, s)
		default:
			continue
		}
		if err != nil {
			return err
		}
		if !ok {
			m.aborted++
			m.log.Warn().Int("cycle", p.Cycle()).Msg("reset during transaction, record dropped")
			continue
		}

		m.observed++
		if err := m.broker.EmitObserved(&hooks.ObservedContext{
			Source:      p.Name(),
			Cycle:       p.Cycle(),
			Transaction: tx,
		}); err != nil {
			return fmt.Errorf("observed hook: %w", err)
		}
	}
}

func (m *Monitor) collectWrite(p *bus.Process, s bus.Signals) (core.Transaction, bool, error) {
	tx := core.Transaction{
		Address:    s.AW.Addr,
		IsWrite:    true,
		StartCycle: p.Cycle(),
	}

	// Data may transfer on the address edge itself.
	s, err := p.Await(phaseOrReset(bus.ChanW))
	if err != nil || s.InReset() {
		return tx, false, err
	}
	tx.Data = s.W.Data

	s, err = p.WaitUntil(phaseOrReset(bus.ChanB))
	if err != nil || s.InReset() {
		return tx, false, err
	}
	tx.Response = s.B.Resp
	tx.EndCycle = p.Cycle()
	return tx, true, nil
}

func (m *Monitor) collectRead(p *bus.Process, s bus.Signals) (core.Transaction, bool, error) {
	tx := core.Transaction{
		Address:    s.AR.Addr,
		StartCycle: p.Cycle(),
	}

	s, err := p.WaitUntil(phaseOrReset(bus.ChanR))
	if err != nil || s.InReset() {
		return tx, false, err
	}
	tx.Data = s.R.Data
	tx.Response = s.R.Resp
	tx.EndCycle = p.Cycle()
	return tx, true, nil
}

func phaseOrReset(ch bus.Channel) func(bus.Signals) bool {
	return func(s bus.Signals) bool { return s.InReset() || s.Fired(ch) }
}
