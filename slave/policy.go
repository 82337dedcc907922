package slave

import (
	"github.com/Readm/axilite_sim/bus"
	"github.com/Readm/axilite_sim/core"
)

// ResponsePolicy picks the response code for a completed write or read.
type ResponsePolicy interface {
	WriteResp(addr uint32) core.Resp
	ReadResp(addr uint32) core.Resp
}

// AlwaysOKAY answers every transfer with OKAY.
type AlwaysOKAY struct{}

func (AlwaysOKAY) WriteResp(uint32) core.Resp { return core.RespOKAY }
func (AlwaysOKAY) ReadResp(uint32) core.Resp  { return core.RespOKAY }

// ErrorOnRange answers with Resp for addresses in [Min, Max] and OKAY elsewhere.
// Reads and Writes select which direction is affected.
type ErrorOnRange struct {
	Min, Max uint32
	Resp     core.Resp
	Reads    bool
	Writes   bool
}

func (e ErrorOnRange) hit(addr uint32) bool { return addr >= e.Min && addr <= e.Max }

func (e ErrorOnRange) WriteResp(addr uint32) core.Resp {
	if e.Writes && e.hit(addr) {
		return e.resp()
	}
	return core.RespOKAY
}

func (e ErrorOnRange) ReadResp(addr uint32) core.Resp {
	if e.Reads && e.hit(addr) {
		return e.resp()
	}
	return core.RespOKAY
}

func (e ErrorOnRange) resp() core.Resp {
	if e.Resp == core.RespOKAY {
		return core.RespSLVERR
	}
	return e.Resp
}

// ReadyPolicy gates the request-side ready lines per edge. It is asked for the
// edge that follows cycle. A nil policy means always ready.
type ReadyPolicy func(cycle int, ch bus.Channel) bool

// EveryNth accepts on one edge out of n, which stretches every handshake.
func EveryNth(n int) ReadyPolicy {
	if n <= 1 {
		return func(int, bus.Channel) bool { return true }
	}
	return func(cycle int, _ bus.Channel) bool { return (cycle+1)%n == 0 }
}
