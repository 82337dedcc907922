// Package master implements the AXI4-Lite master driver.
package master

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Readm/axilite_sim/bus"
	"github.com/Readm/axilite_sim/core"
	"github.com/Readm/axilite_sim/hooks"
	"github.com/Readm/axilite_sim/logging"
)

// ItemSource hands out requests one at a time. Next is called only after the
// previous item was reported through ItemDone.
type ItemSource interface {
	Next() (core.Transaction, bool)
	ItemDone(tx core.Transaction) error
}

type Option func(*Driver)

func WithBroker(b *hooks.PluginBroker) Option {
	return func(d *Driver) { d.broker = b }
}

func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// WithResponseStall keeps BREADY/RREADY low for n edges once a request was
// accepted, so the responder has to hold its response.
func WithResponseStall(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.stall = n
		}
	}
}

// Driver issues one transaction at a time on the master side of a bus.
type Driver struct {
	port   *bus.MasterPort
	source ItemSource
	broker *hooks.PluginBroker
	log    zerolog.Logger
	stall  int
}

// New wires a driver to a bus port and a request source.
func New(port *bus.MasterPort, source ItemSource, opts ...Option) (*Driver, error) {
	if port == nil {
		return nil, errors.New("master: bus port is nil")
	}
	if source == nil {
		return nil, errors.New("master: item source is nil")
	}
	d := &Driver{
		port:   port,
		source: source,
		log:    logging.For("driver"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run resets the outputs, waits for reset release and drives every item of the
// source. It returns nil once the source is exhausted.
func (d *Driver) Run(p *bus.Process) error {
	d.port.Idle()
	if _, err := p.Await(func(s bus.Signals) bool { return s.ResetN }); err != nil {
		return err
	}
	d.log.Debug().Int("cycle", p.Cycle()).Msg("reset released")

	for {
		tx, ok := d.source.Next()
		if !ok {
			return nil
		}
		done, err := d.Drive(p, tx)
		if err != nil {
			return err
		}
		if err := d.broker.EmitDriven(&hooks.DrivenContext{
			Source:      p.Name(),
			Cycle:       p.Cycle(),
			Transaction: done,
		}); err != nil {
			return fmt.Errorf("driven hook: %w", err)
		}
		if err := d.source.ItemDone(done); err != nil {
			return fmt.Errorf("item done: %w", err)
		}
	}
}

// Drive runs one transaction to completion and returns it with the response
// (and read data) filled in. There is no timeout; a responder that never answers
// stalls the driver until the clock stops.
func (d *Driver) Drive(p *bus.Process, tx core.Transaction) (core.Transaction, error) {
	if tx.PreDelay > 0 {
		if err := p.Wait(tx.PreDelay); err != nil {
			return tx, err
		}
	}
	tx.StartCycle = p.Cycle()

	var err error
	if tx.IsWrite {
		tx, err = d.write(p, tx)
	} else {
		tx, err = d.read(p, tx)
	}
	if err != nil {
		return tx, err
	}
	tx.EndCycle = p.Cycle()

	d.log.Debug().Int("cycle", tx.EndCycle).Str("kind", tx.Kind()).
		Uint32("addr", tx.Address).Uint32("data", tx.Data).
		Stringer("resp", tx.Response).Msg("transaction complete")
	return tx, nil
}

func (d *Driver) write(p *bus.Process, tx core.Transaction) (core.Transaction, error) {
	d.port.DriveAW(tx.Address, 0)
	if _, err := p.WaitUntil(fired(bus.ChanAW)); err != nil {
		return tx, err
	}
	d.port.ReleaseAW()

	d.port.DriveW(tx.Data, core.StrbAll)
	if _, err := p.WaitUntil(fired(bus.ChanW)); err != nil {
		return tx, err
	}
	d.port.ReleaseW()

	if err := d.stallResponse(p, d.port.SetBReady); err != nil {
		return tx, err
	}
	s, err := p.WaitUntil(fired(bus.ChanB))
	if err != nil {
		return tx, err
	}
	tx.Response = s.B.Resp
	_, err = p.Edge()
	return tx, err
}

func (d *Driver) read(p *bus.Process, tx core.Transaction) (core.Transaction, error) {
	d.port.DriveAR(tx.Address, 0)
	if _, err := p.WaitUntil(fired(bus.ChanAR)); err != nil {
		return tx, err
	}
	d.port.ReleaseAR()

	if err := d.stallResponse(p, d.port.SetRReady); err != nil {
		return tx, err
	}
	s, err := p.WaitUntil(fired(bus.ChanR))
	if err != nil {
		return tx, err
	}
	tx.Data = s.R.Data
	tx.Response = s.R.Resp
	_, err = p.Edge()
	return tx, err
}

func (d *Driver) stallResponse(p *bus.Process, setReady func(bool)) error {
	if d.stall == 0 {
		return nil
	}
	setReady(false)
	if err := p.Wait(d.stall); err != nil {
		return err
	}
	setReady(true)
	return nil
}

func fired(ch bus.Channel) func(bus.Signals) bool {
	return func(s bus.Signals) bool { return s.Fired(ch) }
}
