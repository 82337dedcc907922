package core

import "fmt"

// Resp is the 2-bit AXI response code carried on the B and R channels.
type Resp uint8

const (
	RespOKAY   Resp = 0b00
	RespEXOKAY Resp = 0b01
	RespSLVERR Resp = 0b10
	RespDECERR Resp = 0b11
)

// IsError reports whether the response code signals a failed transfer.
func (r Resp) IsError() bool { return r != RespOKAY }

func (r Resp) String() string {
	switch r & 0b11 {
	case RespOKAY:
		return "OKAY"
	case RespEXOKAY:
		return "EXOKAY"
	case RespSLVERR:
		return "SLVERR"
	default:
		return "DECERR"
	}
}

const (
	// StrbAll enables every byte lane of a 32-bit data word.
	StrbAll uint8 = 0xF

	// DefaultSentinel is returned for reads of addresses that were never written.
	DefaultSentinel uint32 = 0xDEADBEEF

	// MaxPreDelay bounds the randomized pre-transaction delay, in clock edges.
	MaxPreDelay = 5
)

// Transaction is one AXI4-Lite read or write.
// Response (and Data for reads) are meaningful only once the transaction completed.
type Transaction struct {
	Address  uint32
	Data     uint32
	IsWrite  bool
	PreDelay int
	Response Resp

	// Cycle bookkeeping filled by whoever completed or observed the transaction.
	StartCycle int
	EndCycle   int
}

// NewWrite builds a write request.
func NewWrite(addr, data uint32, delay int) Transaction {
	return Transaction{Address: addr, Data: data, IsWrite: true, PreDelay: delay}
}

// NewRead builds a read request.
func NewRead(addr uint32, delay int) Transaction {
	return Transaction{Address: addr, PreDelay: delay}
}

// Kind returns "write" or "read".
func (t Transaction) Kind() string {
	if t.IsWrite {
		return "write"
	}
	return "read"
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s addr=0x%08x data=0x%08x delay=%d resp=%s",
		t.Kind(), t.Address, t.Data, t.PreDelay, t.Response)
}
