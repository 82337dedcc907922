package sequence

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Readm/axilite_sim/core"
	"github.com/Readm/axilite_sim/logging"
	"github.com/Readm/axilite_sim/queue"
)

var (
	// ErrExhausted is returned once every item has been handed out.
	ErrExhausted = errors.New("sequence: no more items")
	// ErrItemPending is returned when Next is called before ItemDone.
	ErrItemPending = errors.New("sequence: previous item not done")
)

// Sequencer hands generated items to a driver one at a time.
type Sequencer struct {
	mu        sync.Mutex
	name      string
	pending   *queue.TrackedQueue[core.Transaction]
	inFlight  bool
	responses []core.Transaction
	log       zerolog.Logger
}

// NewSequencer builds all items of gen up front and queues them.
func NewSequencer(gen Generator, rng *rand.Rand) (*Sequencer, error) {
	if gen == nil {
		return nil, errors.New("sequence: generator is nil")
	}
	if rng == nil {
		return nil, errors.New("sequence: random source is nil")
	}
	s := &Sequencer{
		name: gen.Name(),
		log:  logging.For("sequencer"),
	}
	s.pending = queue.NewTrackedQueue(gen.Name(), queue.UnlimitedCapacity, queue.Hooks[core.Transaction]{
		OnDequeue: func(tx core.Transaction, depth int) {
			s.log.Trace().Str("item", tx.String()).Int("remaining", depth).Msg("item issued")
		},
	})
	for _, tx := range gen.Build(rng) {
		s.pending.Enqueue(tx)
	}
	s.log.Debug().Str("sequence", s.name).Int("items", s.pending.Len()).Msg("sequence built")
	return s, nil
}

func (s *Sequencer) Name() string { return s.name }

// Remaining returns the number of items not yet handed out.
func (s *Sequencer) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len()
}

// TryNext returns the next item, ErrItemPending if the previous one is still
// outstanding, or ErrExhausted when the queue is empty.
func (s *Sequencer) TryNext() (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return core.Transaction{}, ErrItemPending
	}
	tx, ok := s.pending.PopFront()
	if !ok {
		return core.Transaction{}, ErrExhausted
	}
	s.inFlight = true
	return tx, nil
}

// Next implements master.ItemSource.
func (s *Sequencer) Next() (core.Transaction, bool) {
	tx, err := s.TryNext()
	if err != nil {
		if !errors.Is(err, ErrExhausted) {
			s.log.Error().Err(err).Msg("item request rejected")
		}
		return core.Transaction{}, false
	}
	return tx, true
}

// ItemDone records the completed item and releases the next one.
func (s *Sequencer) ItemDone(tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inFlight {
		return fmt.Errorf("sequence %s: item done without an outstanding item", s.name)
	}
	s.inFlight = false
	s.responses = append(s.responses, tx)
	return nil
}

// Responses returns the completed items in completion order.
func (s *Sequencer) Responses() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.responses))
	copy(out, s.responses)
	return out
}

// Params selects and shapes a generator.
type Params struct {
	Test           string
	Repetitions    int
	Window         Range
	RandomizeDelay bool
	MaxDelay       int
	// Data is the word every random write carries.
	Data uint32
}

// ForName returns the generator selected by p.Test. Every field is taken as
// given; callers start from their own defaults.
func ForName(p Params) (Generator, error) {
	switch p.Test {
	case NameFixed:
		return NewFixed(), nil
	case NameRandom:
		if p.Repetitions <= 0 {
			return nil, fmt.Errorf("sequence: repetitions must be positive, got %d", p.Repetitions)
		}
		r := NewRandom(p.Repetitions, p.Window)
		r.RandomizeDelay = p.RandomizeDelay
		r.Delay.Max = p.MaxDelay
		r.Data = p.Data
		return r, nil
	default:
		return nil, fmt.Errorf("sequence: unknown test %q", p.Test)
	}
}
