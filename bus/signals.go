package bus

import "github.com/Readm/axilite_sim/core"

// Channel identifies one of the five AXI4-Lite channels.
type Channel int

const (
	ChanAW Channel = iota // write address
	ChanW                 // write data
	ChanB                 // write response
	ChanAR                // read address
	ChanR                 // read data
)

func (c Channel) String() string {
	switch c {
	case ChanAW:
		return "AW"
	case ChanW:
		return "W"
	case ChanB:
		return "B"
	case ChanAR:
		return "AR"
	case ChanR:
		return "R"
	default:
		return "?"
	}
}

// AddrChannel carries the AW or AR phase.
type AddrChannel struct {
	Valid bool
	Ready bool
	Addr  uint32
	Prot  uint8
}

// Fire reports whether a transfer happens on this edge.
func (c AddrChannel) Fire() bool { return c.Valid && c.Ready }

// WriteDataChannel carries the W phase.
type WriteDataChannel struct {
	Valid bool
	Ready bool
	Data  uint32
	Strb  uint8
}

func (c WriteDataChannel) Fire() bool { return c.Valid && c.Ready }

// WriteRespChannel carries the B phase.
type WriteRespChannel struct {
	Valid bool
	Ready bool
	Resp  core.Resp
}

func (c WriteRespChannel) Fire() bool { return c.Valid && c.Ready }

// ReadDataChannel carries the R phase.
type ReadDataChannel struct {
	Valid bool
	Ready bool
	Data  uint32
	Resp  core.Resp
}

func (c ReadDataChannel) Fire() bool { return c.Valid && c.Ready }

// Signals is the wire state sampled at one clock edge. Values are copied to every
// process, so a snapshot is never mutated after the edge it belongs to.
type Signals struct {
	ResetN bool // active low

	AW AddrChannel
	W  WriteDataChannel
	B  WriteRespChannel
	AR AddrChannel
	R  ReadDataChannel
}

// InReset reports whether the active-low reset is asserted.
func (s Signals) InReset() bool { return !s.ResetN }

// Fired reports whether the given channel transfers on this edge.
// Nothing transfers while reset is asserted.
func (s Signals) Fired(ch Channel) bool {
	if s.InReset() {
		return false
	}
	switch ch {
	case ChanAW:
		return s.AW.Fire()
	case ChanW:
		return s.W.Fire()
	case ChanB:
		return s.B.Fire()
	case ChanAR:
		return s.AR.Fire()
	case ChanR:
		return s.R.Fire()
	default:
		return false
	}
}

// Transfers lists the channels that transfer on this edge, in channel order.
func (s Signals) Transfers() []Channel {
	var out []Channel
	for ch := ChanAW; ch <= ChanR; ch++ {
		if s.Fired(ch) {
			out = append(out, ch)
		}
	}
	return out
}
