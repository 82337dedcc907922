// Package store holds the word-addressed backing memory answered by the slave.
package store

import (
	"sync"

	"github.com/Readm/axilite_sim/core"
)

// Store is a sparse 32-bit address to 32-bit word mapping.
type Store interface {
	Read(addr uint32) uint32
	Lookup(addr uint32) (uint32, bool)
	Write(addr uint32, data uint32)
}

// MapStore is a Store backed by a map. Addresses never written read as the sentinel.
type MapStore struct {
	mu       sync.RWMutex
	sentinel uint32
	words    map[uint32]uint32
}

// NewMapStore creates an empty store returning sentinel for unmapped reads.
func NewMapStore(sentinel uint32) *MapStore {
	return &MapStore{
		sentinel: sentinel,
		words:    make(map[uint32]uint32),
	}
}

// NewDefault creates an empty store using core.DefaultSentinel.
func NewDefault() *MapStore { return NewMapStore(core.DefaultSentinel) }

func (s *MapStore) Read(addr uint32) uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.words[addr]; ok {
		return v
	}
	return s.sentinel
}

// Lookup returns the stored word and whether addr was ever written.
func (s *MapStore) Lookup(addr uint32) (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.words[addr]
	return v, ok
}

func (s *MapStore) Write(addr uint32, data uint32) {
	s.mu.Lock()
	s.words[addr] = data
	s.mu.Unlock()
}

// Sentinel returns the value read back for unmapped addresses.
func (s *MapStore) Sentinel() uint32 { return s.sentinel }

// Len returns the number of mapped addresses.
func (s *MapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// MergeStrobe combines old and new data word by byte lane: lanes whose strobe bit
// is set take the new byte. Callers pass 0 as old for an unmapped address so
// the sentinel never leaks into stored lanes.
func MergeStrobe(old, data uint32, strb uint8) uint32 {
	var mask uint32
	for lane := 0; lane < 4; lane++ {
		if strb&(1<<lane) != 0 {
			mask |= 0xFF << (8 * lane)
		}
	}
	return (old &^ mask) | (data & mask)
}
