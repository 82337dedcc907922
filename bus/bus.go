package bus

import (
	"sync"

	"github.com/Readm/axilite_sim/core"
)

// Bus is the wiring between exactly one master and one slave. It holds the
// state being driven for the coming edge; Commit turns it into a snapshot.
// Signals that nobody drives hold their value across edges.
type Bus struct {
	mu   sync.Mutex
	next Signals
}

// New returns a bus with every signal low, which includes reset asserted.
func New() *Bus {
	return &Bus{}
}

// SetReset drives the active-low reset line. Owned by the environment.
func (b *Bus) SetReset(asserted bool) {
	b.update(func(s *Signals) { s.ResetN = !asserted })
}

// Master returns the port that owns the initiator side of every channel.
func (b *Bus) Master() *MasterPort { return &MasterPort{b: b} }

// Slave returns the port that owns the responder side of every channel.
func (b *Bus) Slave() *SlavePort { return &SlavePort{b: b} }

func (b *Bus) update(fn func(s *Signals)) {
	b.mu.Lock()
	fn(&b.next)
	b.mu.Unlock()
}

// Commit makes the driven state the current snapshot and returns it. The clock
// calls it once per edge; unit tests use it to step the wire by hand.
func (b *Bus) Commit() Signals {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.next
}

// MasterPort drives AW/W/AR valid and payload plus B/R ready.
type MasterPort struct {
	b *Bus
}

// Idle forces every master output to its reset value: valids low, response readies high.
func (p *MasterPort) Idle() {
	p.b.update(func(s *Signals) {
		s.AW.Valid = false
		s.W.Valid = false
		s.AR.Valid = false
		s.B.Ready = true
		s.R.Ready = true
	})
}

func (p *MasterPort) DriveAW(addr uint32, prot uint8) {
	p.b.update(func(s *Signals) {
		s.AW.Valid = true
		s.AW.Addr = addr
		s.AW.Prot = prot
	})
}

func (p *MasterPort) ReleaseAW() {
	p.b.update(func(s *Signals) { s.AW.Valid = false })
}

func (p *MasterPort) DriveW(data uint32, strb uint8) {
	p.b.update(func(s *Signals) {
		s.W.Valid = true
		s.W.Data = data
		s.W.Strb = strb
	})
}

func (p *MasterPort) ReleaseW() {
	p.b.update(func(s *Signals) { s.W.Valid = false })
}

func (p *MasterPort) DriveAR(addr uint32, prot uint8) {
	p.b.update(func(s *Signals) {
		s.AR.Valid = true
		s.AR.Addr = addr
		s.AR.Prot = prot
	})
}

func (p *MasterPort) ReleaseAR() {
	p.b.update(func(s *Signals) { s.AR.Valid = false })
}

func (p *MasterPort) SetBReady(ready bool) {
	p.b.update(func(s *Signals) { s.B.Ready = ready })
}

func (p *MasterPort) SetRReady(ready bool) {
	p.b.update(func(s *Signals) { s.R.Ready = ready })
}

// SlavePort drives AW/W/AR ready plus B/R valid and payload.
type SlavePort struct {
	b *Bus
}

// Idle drops every slave output.
func (p *SlavePort) Idle() {
	p.b.update(func(s *Signals) {
		s.AW.Ready = false
		s.W.Ready = false
		s.AR.Ready = false
		s.B.Valid = false
		s.R.Valid = false
	})
}

// SetReady drives the three request-side ready lines at once.
func (p *SlavePort) SetReady(aw, w, ar bool) {
	p.b.update(func(s *Signals) {
		s.AW.Ready = aw
		s.W.Ready = w
		s.AR.Ready = ar
	})
}

func (p *SlavePort) RespondB(resp core.Resp) {
	p.b.update(func(s *Signals) {
		s.B.Valid = true
		s.B.Resp = resp
	})
}

func (p *SlavePort) ReleaseB() {
	p.b.update(func(s *Signals) { s.B.Valid = false })
}

func (p *SlavePort) RespondR(data uint32, resp core.Resp) {
	p.b.update(func(s *Signals) {
		s.R.Valid = true
		s.R.Data = data
		s.R.Resp = resp
	})
}

func (p *SlavePort) ReleaseR() {
	p.b.update(func(s *Signals) { s.R.Valid = false })
}
