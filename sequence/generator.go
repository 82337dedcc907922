// Package sequence builds request streams and hands them to the driver.
package sequence

import (
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/Readm/axilite_sim/core"
	"github.com/Readm/axilite_sim/logging"
)

const (
	NameFixed  = "fixed"
	NameRandom = "random"

	FixedAddr  uint32 = 0x00000010
	FixedData  uint32 = 0xA5A5A5A5
	RandomData uint32 = 0xC0DEC0DE
)

// Generator produces a finite, ordered list of requests.
type Generator interface {
	Name() string
	Build(rng *rand.Rand) []core.Transaction
}

// Fixed writes one word and reads it back.
type Fixed struct {
	Addr uint32
	Data uint32
}

func NewFixed() Fixed {
	return Fixed{Addr: FixedAddr, Data: FixedData}
}

func (f Fixed) Name() string { return NameFixed }

func (f Fixed) Build(*rand.Rand) []core.Transaction {
	return []core.Transaction{
		core.NewWrite(f.Addr, f.Data, 0),
		core.NewRead(f.Addr, 0),
	}
}

// Random emits Repetitions write/read pairs with addresses drawn from Window.
type Random struct {
	Repetitions    int
	Window         Range
	Data           uint32
	RandomizeDelay bool
	Delay          DelayRange

	log zerolog.Logger
}

func NewRandom(reps int, window Range) *Random {
	return &Random{
		Repetitions: reps,
		Window:      window,
		Data:        RandomData,
		Delay:       DelayRange{Min: 0, Max: core.MaxPreDelay},
		log:         logging.For("sequence"),
	}
}

// WithLogger replaces the logger used to report failed draws.
func (r *Random) WithLogger(l zerolog.Logger) *Random {
	r.log = l
	return r
}

func (r *Random) Name() string { return NameRandom }

// Build draws every field. A failed draw is logged and the field keeps its
// default value; the slot is never dropped.
func (r *Random) Build(rng *rand.Rand) []core.Transaction {
	out := make([]core.Transaction, 0, 2*r.Repetitions)
	for i := 0; i < r.Repetitions; i++ {
		w := core.NewWrite(0, r.Data, 0)
		r.randomize(rng, i, &w)
		rd := core.NewRead(0, 0)
		r.randomize(rng, i, &rd)
		out = append(out, w, rd)
	}
	return out
}

func (r *Random) randomize(rng *rand.Rand, index int, tx *core.Transaction) {
	if addr, err := r.Window.Draw(rng); err != nil {
		r.log.Error().Err(err).Int("index", index).Str("kind", tx.Kind()).Msg("address randomization failed")
	} else {
		tx.Address = addr
	}
	if !r.RandomizeDelay {
		return
	}
	if delay, err := r.Delay.Draw(rng); err != nil {
		r.log.Error().Err(err).Int("index", index).Str("kind", tx.Kind()).Msg("delay randomization failed")
	} else {
		tx.PreDelay = delay
	}
}
