package market

import (
	"sync"

	"github.com/AloofBuddha/quantamental-dashboard/pkg/models"
)

// Store is the authoritative in-memory universe. Only the generator mutates
// it; sessions read it exactly once, at accept time, via Snapshot. The order
// slice fixes snapshot ordering to the order the universe was built in.
type Store struct {
	mu     sync.RWMutex
	stocks map[string]*models.Stock
	order  []string
}

// NewStore indexes the built universe. Duplicate symbols would corrupt the
// key space, so the last one wins and the order slice keeps the first.
func NewStore(universe []models.Stock) *Store {
	s := &Store{
		stocks: make(map[string]*models.Stock, len(universe)),
		order:  make([]string, 0, len(universe)),
	}
	for i := range universe {
		st := universe[i]
		if _, exists := s.stocks[st.Symbol]; !exists {
			s.order = append(s.order, st.Symbol)
		}
		s.stocks[st.Symbol] = &st
	}
	return s
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Symbols returns the universe's symbols in snapshot order. The universe is
// fixed for the life of the process, so callers may cache the result.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns a copy of one stock.
func (s *Store) Get(symbol string) (models.Stock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stocks[symbol]
	if !ok {
		return models.Stock{}, false
	}
	return *st, true
}

// GetBatch returns copies of the named stocks under one read lock. Unknown
// symbols are skipped.
func (s *Store) GetBatch(symbols []string) []models.Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Stock, 0, len(symbols))
	for _, sym := range symbols {
		if st, ok := s.stocks[sym]; ok {
			out = append(out, *st)
		}
	}
	return out
}

// Snapshot returns a deep copy of the full universe in stable order. This is
// what a new session receives before any update can reach it.
func (s *Store) Snapshot() []models.Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Stock, 0, len(s.order))
	for _, sym := range s.order {
		out = append(out, *s.stocks[sym])
	}
	return out
}

// MutateBatch applies fn to each named stock under a single write lock, so a
// concurrent Snapshot sees either none or all of one tick's changes. Unknown
// symbols are skipped.
func (s *Store) MutateBatch(symbols []string, fn func(*models.Stock)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sym := range symbols {
		if st, ok := s.stocks[sym]; ok {
			fn(st)
		}
	}
}
