package feed

import (
	"sync"
	"time"

	"github.com/AloofBuddha/quantamental-dashboard/pkg/models"
)

// Store is the client-side merge target for snapshots and deltas. The grid
// reads whole rows from it once per render tick; the connection manager
// writes into it as frames arrive.
type Store struct {
	clock Clock

	mu          sync.RWMutex
	stocks      map[string]*models.Stock
	order       []string
	lastUpdated time.Time
}

func NewStore(clock Clock) *Store {
	return &Store{
		clock:  clock,
		stocks: make(map[string]*models.Stock),
	}
}

// ApplySnapshot replaces the entire key set. Nothing from the previous
// state survives, so a reconnect cannot leave ghost rows behind.
func (s *Store) ApplySnapshot(entities []models.Stock) {
	stocks := make(map[string]*models.Stock, len(entities))
	order := make([]string, 0, len(entities))
	for i := range entities {
		st := entities[i]
		if _, exists := stocks[st.Symbol]; !exists {
			order = append(order, st.Symbol)
		}
		stocks[st.Symbol] = &st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks = stocks
	s.order = order
	s.lastUpdated = s.clock.Now()
}

// ApplyDeltas merges every delta into its existing row and reports how many
// matched. Deltas for unknown keys are expected under snapshot races and are
// dropped without a trace; they never create placeholder rows.
func (s *Store) ApplyDeltas(deltas []models.StockDelta) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for i := range deltas {
		st, ok := s.stocks[deltas[i].Symbol]
		if !ok {
			continue
		}
		deltas[i].ApplyTo(st)
		applied++
	}
	if applied > 0 {
		s.lastUpdated = s.clock.Now()
	}
	return applied
}

// Stocks returns a copy of every row in snapshot order.
func (s *Store) Stocks() []models.Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Stock, 0, len(s.order))
	for _, sym := range s.order {
		out = append(out, *s.stocks[sym])
	}
	return out
}

func (s *Store) Get(symbol string) (models.Stock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stocks[symbol]
	if !ok {
		return models.Stock{}, false
	}
	return *st, true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stocks)
}

// LastUpdated reports when the last mutation landed, for staleness display.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}
