package slave

import (
	"testing"

	"github.com/Readm/axilite_sim/bus"
	"github.com/Readm/axilite_sim/core"
	"github.com/Readm/axilite_sim/store"
)

// harness steps the wire by hand: the test plays the master, the responder ticks
// on every committed snapshot.
type harness struct {
	t     *testing.T
	b     *bus.Bus
	m     *bus.MasterPort
	st    *store.MapStore
	r     *Responder
	cycle int
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	b := bus.New()
	st := store.NewDefault()
	r, err := New(b.Slave(), st, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h := &harness{t: t, b: b, m: b.Master(), st: st, r: r}
	h.m.Idle()
	h.step() // in reset
	h.b.SetReset(false)
	h.step() // first edge out of reset drives ready
	return h
}

func (h *harness) step() bus.Signals {
	s := h.b.Commit()
	h.r.Tick(h.cycle, s)
	h.cycle++
	return s
}

func (h *harness) write(addr, data uint32, strb uint8) core.Resp {
	h.t.Helper()
	h.m.DriveAW(addr, 0)
	if s := h.step(); !s.AW.Fire() {
		h.t.Fatalf("AW did not fire: %+v", s.AW)
	}
	h.m.ReleaseAW()
	h.m.DriveW(data, strb)
	if s := h.step(); !s.W.Fire() {
		h.t.Fatalf("W did not fire: %+v", s.W)
	}
	h.m.ReleaseW()
	s := h.step()
	if !s.B.Fire() {
		h.t.Fatalf("B did not fire: %+v", s.B)
	}
	return s.B.Resp
}

func (h *harness) read(addr uint32) (uint32, core.Resp) {
	h.t.Helper()
	h.m.DriveAR(addr, 0)
	if s := h.step(); !s.AR.Fire() {
		h.t.Fatalf("AR did not fire: %+v", s.AR)
	}
	h.m.ReleaseAR()
	s := h.step()
	if !s.R.Fire() {
		h.t.Fatalf("R did not fire: %+v", s.R)
	}
	return s.R.Data, s.R.Resp
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	h := newHarness(t)

	if resp := h.write(0x10, 0xA5A5A5A5, core.StrbAll); resp != core.RespOKAY {
		t.Fatalf("unexpected write resp %s", resp)
	}
	if h.r.State() != StateIdle {
		t.Fatalf("expected IDLE after B handshake, got %s", h.r.State())
	}
	if s := h.step(); s.B.Valid {
		t.Fatalf("BVALID should drop after the response handshake")
	}

	data, resp := h.read(0x10)
	if data != 0xA5A5A5A5 || resp != core.RespOKAY {
		t.Fatalf("read returned 0x%08x %s", data, resp)
	}
	if s := h.step(); s.R.Valid {
		t.Fatalf("RVALID should drop after the read handshake")
	}

	st := h.r.SnapshotStats()
	if st.Writes != 1 || st.Reads != 1 || st.AddrOverwrites != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestUnmappedReadReturnsSentinel(t *testing.T) {
	h := newHarness(t)
	data, resp := h.read(0x1234)
	if data != core.DefaultSentinel || resp != core.RespOKAY {
		t.Fatalf("expected sentinel/OKAY, got 0x%08x %s", data, resp)
	}
}

func TestWriteStateSequence(t *testing.T) {
	h := newHarness(t)

	h.m.DriveAW(0x20, 0)
	h.step()
	if h.r.State() != StateAwaitWData {
		t.Fatalf("expected AWAIT_WDATA after AW, got %s", h.r.State())
	}
	h.m.ReleaseAW()
	h.step() // no data yet
	if h.r.State() != StateAwaitWData {
		t.Fatalf("state should hold without W, got %s", h.r.State())
	}
	h.m.DriveW(7, core.StrbAll)
	h.step()
	if h.r.State() != StateRespondB {
		t.Fatalf("expected RESPOND_B after W, got %s", h.r.State())
	}
	if h.st.Read(0x20) != 7 {
		t.Fatalf("store not written on data phase")
	}
	h.m.ReleaseW()
	h.m.SetBReady(false)
	s := h.step()
	if !s.B.Valid || s.B.Fire() {
		t.Fatalf("B should be valid but not ready: %+v", s.B)
	}
	if h.r.State() != StateRespondB {
		t.Fatalf("state should hold until B handshake, got %s", h.r.State())
	}
	h.m.SetBReady(true)
	h.step()
	if h.r.State() != StateIdle {
		t.Fatalf("expected IDLE, got %s", h.r.State())
	}
}

func TestResetClearsInFlightWrite(t *testing.T) {
	h := newHarness(t)
	h.m.DriveAW(0x30, 0)
	h.step()
	h.m.ReleaseAW()
	h.m.DriveW(1, core.StrbAll)
	h.step()
	if h.r.State() != StateRespondB {
		t.Fatalf("expected RESPOND_B, got %s", h.r.State())
	}

	h.b.SetReset(true)
	h.m.Idle()
	h.step() // reset visible to the responder
	s := h.step()
	if h.r.State() != StateIdle {
		t.Fatalf("reset should return to IDLE, got %s", h.r.State())
	}
	if s.B.Valid || s.R.Valid || s.AW.Ready || s.W.Ready || s.AR.Ready {
		t.Fatalf("slave outputs must be idle in reset: %+v", s)
	}
}

func TestOverlappingWriteAddressOverwritesPending(t *testing.T) {
	h := newHarness(t)

	h.m.DriveAW(0x40, 0)
	h.step()
	h.m.DriveAW(0x44, 0) // second address before any data
	h.step()
	h.m.ReleaseAW()
	h.m.DriveW(0xBEEF, core.StrbAll)
	h.step()
	h.m.ReleaseW()
	h.step()

	if got := h.r.SnapshotStats().AddrOverwrites; got != 1 {
		t.Fatalf("expected one address overwrite, got %d", got)
	}
	if h.st.Read(0x44) != 0xBEEF {
		t.Fatalf("data should land on the latest address")
	}
	if h.st.Read(0x40) != core.DefaultSentinel {
		t.Fatalf("first address must not be written")
	}
}

func TestErrorOnRangePolicy(t *testing.T) {
	policy := ErrorOnRange{Min: 0x100, Max: 0x1FF, Reads: true}
	h := newHarness(t, WithResponsePolicy(policy))

	if _, resp := h.read(0x180); resp != core.RespSLVERR {
		t.Fatalf("expected SLVERR inside range, got %s", resp)
	}
	if _, resp := h.read(0x200); resp != core.RespOKAY {
		t.Fatalf("expected OKAY outside range, got %s", resp)
	}
	if resp := h.write(0x180, 1, core.StrbAll); resp != core.RespOKAY {
		t.Fatalf("writes are not affected, got %s", resp)
	}
}

func TestPartialStrobeMergesBytes(t *testing.T) {
	h := newHarness(t)
	h.write(0x8, 0x11223344, core.StrbAll)
	h.step()
	h.write(0x8, 0xAABBCCDD, 0x3)
	if got := h.st.Read(0x8); got != 0x1122CCDD {
		t.Fatalf("unexpected merged word 0x%08x", got)
	}
}

func TestPartialStrobeOnUnmappedAddressMergesWithZero(t *testing.T) {
	h := newHarness(t)
	h.write(0x20, 0xAABBCCDD, 0x3)
	if got := h.st.Read(0x20); got != 0x0000CCDD {
		t.Fatalf("unexpected merged word 0x%08x, sentinel lanes leaked", got)
	}
}

func TestBackpressureHoldsOffSecondWriteAddress(t *testing.T) {
	h := newHarness(t, WithReadyPolicy(func(int, bus.Channel) bool { return true }))

	h.m.DriveAW(0x50, 0)
	if s := h.step(); !s.AW.Fire() {
		t.Fatalf("first AW should be accepted")
	}
	h.m.DriveAW(0x54, 0)
	s := h.step()
	if s.AW.Ready {
		t.Fatalf("AWREADY must drop while a write is pending")
	}
	if s.W.Ready != true {
		t.Fatalf("WREADY should be high while awaiting data")
	}
	if got := h.r.SnapshotStats().AddrOverwrites; got != 0 {
		t.Fatalf("back-pressure must prevent overwrites, got %d", got)
	}
}

func TestNewRequiresLinkage(t *testing.T) {
	b := bus.New()
	if _, err := New(nil, store.NewDefault()); err == nil {
		t.Fatalf("expected error for nil port")
	}
	if _, err := New(b.Slave(), nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}
