// Package scoreboard tallies monitored transactions and flags failures.
package scoreboard

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Readm/axilite_sim/core"
	"github.com/Readm/axilite_sim/hooks"
	"github.com/Readm/axilite_sim/logging"
	"github.com/Readm/axilite_sim/queue"
)

// PluginName is the descriptor name used when the scoreboard joins a broker.
const PluginName = "scoreboard"

// Summary is the end-of-run tally.
type Summary struct {
	Writes     int
	Reads      int
	Errors     int
	Mismatches int
	// Disagreements counts driver and monitor records that differ.
	Disagreements int
}

// Passed reports the verdict: no error responses, no data mismatches and no
// driver/monitor disagreement.
func (s Summary) Passed() bool {
	return s.Errors == 0 && s.Mismatches == 0 && s.Disagreements == 0
}

func (s Summary) String() string {
	return fmt.Sprintf("writes=%d reads=%d errors=%d mismatches=%d disagreements=%d",
		s.Writes, s.Reads, s.Errors, s.Mismatches, s.Disagreements)
}

type Option func(*Scoreboard)

// WithDataCheck keeps a shadow copy of every successful write and compares read
// data against it. Unwritten addresses are expected to read as sentinel.
func WithDataCheck(sentinel uint32) Option {
	return func(sb *Scoreboard) {
		sb.checkData = true
		sb.sentinel = sentinel
		sb.mirror = make(map[uint32]uint32)
	}
}

// WithCrossCheck pairs every driver completion with the monitor record of the
// same position and counts the pairs that differ in direction, address, data
// or response.
func WithCrossCheck() Option {
	return func(sb *Scoreboard) {
		sb.crossCheck = true
		sb.driven = queue.NewTrackedQueue("driven", queue.UnlimitedCapacity, queue.Hooks[core.Transaction]{})
		sb.observed = queue.NewTrackedQueue("observed", queue.UnlimitedCapacity, queue.Hooks[core.Transaction]{})
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(sb *Scoreboard) { sb.log = l }
}

type Scoreboard struct {
	mu      sync.Mutex
	summary Summary
	log     zerolog.Logger

	checkData bool
	sentinel  uint32
	mirror    map[uint32]uint32

	crossCheck bool
	driven     *queue.TrackedQueue[core.Transaction]
	observed   *queue.TrackedQueue[core.Transaction]
}

func New(opts ...Option) *Scoreboard {
	sb := &Scoreboard{log: logging.For("scoreboard")}
	for _, opt := range opts {
		opt(sb)
	}
	return sb
}

// Register subscribes the scoreboard to monitored transactions, and to driver
// completions when cross-checking.
func (sb *Scoreboard) Register(broker *hooks.PluginBroker) {
	desc := hooks.PluginDescriptor{
		Name:        PluginName,
		Category:    hooks.PluginCategoryChecker,
		Description: "counts monitored transactions and flags error responses",
	}
	broker.RegisterBundle(desc, hooks.HookBundle{
		Observed: []hooks.ObservedHook{func(ctx *hooks.ObservedContext) error {
			sb.Observe(ctx.Transaction)
			return nil
		}},
	})
	if sb.crossCheck {
		broker.RegisterDriven(func(ctx *hooks.DrivenContext) error {
			sb.Driven(ctx.Transaction)
			return nil
		})
	}
}

// Driven records a transaction as the driver completed it.
func (sb *Scoreboard) Driven(tx core.Transaction) {
	if !sb.crossCheck {
		return
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.driven.Enqueue(tx)
	sb.pairLocked()
}

func (sb *Scoreboard) pairLocked() {
	for sb.driven.Len() > 0 && sb.observed.Len() > 0 {
		want, _ := sb.driven.PopFront()
		got, _ := sb.observed.PopFront()
		if got.IsWrite == want.IsWrite && got.Address == want.Address &&
			got.Data == want.Data && got.Response == want.Response {
			continue
		}
		sb.summary.Disagreements++
		sb.log.Error().Str("driven", want.String()).Str("observed", got.String()).
			Int("cycle", got.EndCycle).Msg("monitor disagrees with driver")
	}
}

// Observe processes one monitored record.
func (sb *Scoreboard) Observe(tx core.Transaction) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.crossCheck {
		sb.observed.Enqueue(tx)
		sb.pairLocked()
	}

	if tx.IsWrite {
		sb.summary.Writes++
		if sb.checkData && !tx.Response.IsError() {
			sb.mirror[tx.Address] = tx.Data
		}
		return
	}

	sb.summary.Reads++
	if tx.Response.IsError() {
		sb.summary.Errors++
		sb.log.Error().Uint32("addr", tx.Address).Uint8("resp", uint8(tx.Response)).
			Stringer("code", tx.Response).Int("cycle", tx.EndCycle).Msg("read returned error response")
		return
	}
	if !sb.checkData {
		return
	}
	want, ok := sb.mirror[tx.Address]
	if !ok {
		want = sb.sentinel
	}
	if tx.Data != want {
		sb.summary.Mismatches++
		sb.log.Error().Uint32("addr", tx.Address).Uint32("got", tx.Data).Uint32("want", want).
			Int("cycle", tx.EndCycle).Msg("read data mismatch")
	}
}

// Summary returns the current counters.
func (sb *Scoreboard) Summary() Summary {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.summary
}

// Report logs the summary at info level.
func (sb *Scoreboard) Report() Summary {
	s := sb.Summary()
	sb.log.Info().Int("writes", s.Writes).Int("reads", s.Reads).Int("errors", s.Errors).
		Int("mismatches", s.Mismatches).Int("disagreements", s.Disagreements).Bool("passed", s.Passed()).Msg("scoreboard summary")
	return s
}
