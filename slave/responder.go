// Package slave implements the AXI4-Lite responder backed by a store.
package slave

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/Readm/axilite_sim/bus"
	"github.com/Readm/axilite_sim/core"
	"github.com/Readm/axilite_sim/logging"
	"github.com/Readm/axilite_sim/store"
)

// State is the write-path state of the responder.
type State int

const (
	StateIdle State = iota
	StateAwaitWData
	StateRespondB
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitWData:
		return "AWAIT_WDATA"
	case StateRespondB:
		return "RESPOND_B"
	default:
		return "UNKNOWN"
	}
}

// Stats counts what the responder did.
type Stats struct {
	Writes int
	Reads  int

	// AddrOverwrites counts write addresses accepted while another one was still
	// waiting for its data; the earlier address is lost.
	AddrOverwrites int
	// ReadOverwrites counts read addresses accepted while read data was still pending.
	ReadOverwrites int
	// DroppedData counts write data transfers that had no address to pair with.
	DroppedData int
}

type Option func(*Responder)

func WithResponsePolicy(p ResponsePolicy) Option {
	return func(r *Responder) {
		if p != nil {
			r.policy = p
		}
	}
}

// WithReadyPolicy adds back-pressure. With a policy installed the responder also
// stops accepting a write address until the previous write finished, and a read
// address while read data is pending.
func WithReadyPolicy(p ReadyPolicy) Option {
	return func(r *Responder) { r.ready = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Responder) { r.log = l }
}

// Responder answers one write at a time and reads independently of writes.
type Responder struct {
	port  *bus.SlavePort
	store store.Store

	policy ResponsePolicy
	ready  ReadyPolicy
	log    zerolog.Logger

	state       State
	pendingAddr uint32
	pendingAW   bool
	readPending bool

	stats Stats
}

// New wires a responder to the slave side of a bus.
func New(port *bus.SlavePort, st store.Store, opts ...Option) (*Responder, error) {
	if port == nil {
		return nil, errors.New("slave: bus port is nil")
	}
	if st == nil {
		return nil, errors.New("slave: store is nil")
	}
	r := &Responder{
		port:   port,
		store:  st,
		policy: AlwaysOKAY{},
		log:    logging.For("slave"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// State returns the write-path state.
func (r *Responder) State() State { return r.state }

// SnapshotStats returns a copy of the counters.
func (r *Responder) SnapshotStats() Stats { return r.stats }

// Run evaluates the responder on every edge until the clock stops.
func (r *Responder) Run(p *bus.Process) error {
	for {
		s, err := p.Edge()
		if err != nil {
			return err
		}
		r.Tick(p.Cycle(), s)
	}
}

// Tick evaluates one edge: it reacts to the transfers in s and drives the outputs
// that become visible on the next edge.
func (r *Responder) Tick(cycle int, s bus.Signals) {
	if s.InReset() {
		r.reset()
		return
	}

	r.tickWrite(cycle, s)
	r.tickRead(cycle, s)
	r.driveReady(cycle)
}

func (r *Responder) reset() {
	r.state = StateIdle
	r.pendingAW = false
	r.readPending = false
	r.port.Idle()
}

func (r *Responder) tickWrite(cycle int, s bus.Signals) {
	if r.state == StateRespondB && s.B.Fire() {
		r.port.ReleaseB()
		r.state = StateIdle
		r.log.Trace().Int("cycle", cycle).Msg("write response accepted")
	}
	if r.state == StateIdle && r.pendingAW {
		r.state = StateAwaitWData
	}

	awConsumed := false
	if s.W.Fire() {
		switch {
		case r.state == StateAwaitWData:
			r.completeWrite(cycle, r.pendingAddr, s.W)
			r.pendingAW = false
		case r.state == StateIdle && s.AW.Fire():
			r.completeWrite(cycle, s.AW.Addr, s.W)
			awConsumed = true
		default:
			r.stats.DroppedData++
			r.log.Warn().Int("cycle", cycle).Stringer("state", r.state).
				Uint32("data", s.W.Data).Msg("write data without pending address dropped")
		}
	}

	if s.AW.Fire() && !awConsumed {
		if r.pendingAW {
			// Single address register: the earlier address is lost.
			r.stats.AddrOverwrites++
			r.log.Warn().Int("cycle", cycle).
				Uint32("lost_addr", r.pendingAddr).Uint32("addr", s.AW.Addr).
				Msg("write address overwrote pending address")
		}
		r.pendingAddr = s.AW.Addr
		r.pendingAW = true
		if r.state == StateIdle {
			r.state = StateAwaitWData
		}
	}
}

func (r *Responder) completeWrite(cycle int, addr uint32, w bus.WriteDataChannel) {
	resp := r.policy.WriteResp(addr)
	if !resp.IsError() {
		data := w.Data
		if w.Strb != core.StrbAll {
			old, _ := r.store.Lookup(addr)
			data = store.MergeStrobe(old, w.Data, w.Strb)
		}
		r.store.Write(addr, data)
	}
	r.stats.Writes++
	r.port.RespondB(resp)
	r.state = StateRespondB
	r.log.Debug().Int("cycle", cycle).Uint32("addr", addr).Uint32("data", w.Data).
		Stringer("resp", resp).Msg("write stored")
}

func (r *Responder) tickRead(cycle int, s bus.Signals) {
	if r.readPending && s.R.Fire() {
		r.port.ReleaseR()
		r.readPending = false
	}
	if !s.AR.Fire() {
		return
	}
	if r.readPending {
		r.stats.ReadOverwrites++
		r.log.Warn().Int("cycle", cycle).Uint32("addr", s.AR.Addr).
			Msg("read address accepted while read data pending")
	}
	data := r.store.Read(s.AR.Addr)
	resp := r.policy.ReadResp(s.AR.Addr)
	r.port.RespondR(data, resp)
	r.readPending = true
	r.stats.Reads++
	r.log.Debug().Int("cycle", cycle).Uint32("addr", s.AR.Addr).Uint32("data", data).
		Stringer("resp", resp).Msg("read served")
}

func (r *Responder) driveReady(cycle int) {
	if r.ready == nil {
		r.port.SetReady(true, true, true)
		return
	}
	aw := r.ready(cycle, bus.ChanAW) && r.state == StateIdle && !r.pendingAW
	w := r.ready(cycle, bus.ChanW) && r.state == StateAwaitWData
	ar := r.ready(cycle, bus.ChanAR) && !r.readPending
	r.port.SetReady(aw, w, ar)
}
