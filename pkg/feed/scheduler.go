package feed

import (
	"sync"

	"github.com/AloofBuddha/quantamental-dashboard/pkg/models"
)

// Scheduler coalesces incoming deltas between render ticks. However many
// updates arrive, at most one flush is armed at a time, so store mutations
// and the re-renders they trigger are bounded by the frame rate.
//
// The host drives it: whoever owns the render loop calls OnFrame once per
// quantum, whether that is a ticker, a paint callback, or a test.
type Scheduler struct {
	store *Store

	mu    sync.Mutex
	queue []models.StockDelta
	armed bool
}

func NewScheduler(store *Store) *Scheduler {
	return &Scheduler{store: store}
}

// Enqueue appends deltas and arms the next flush if none is armed yet.
func (s *Scheduler) Enqueue(deltas []models.StockDelta) {
	if len(deltas) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, deltas...)
	s.armed = true
}

// OnFrame runs the armed flush, applying the whole queue in one store
// transition. A frame with nothing armed does no work.
func (s *Scheduler) OnFrame() {
	s.mu.Lock()
	if !s.armed {
		s.mu.Unlock()
		return
	}
	queue := s.queue
	s.queue = nil
	s.armed = false
	s.mu.Unlock()

	s.store.ApplyDeltas(queue)
}

// Reset drops queued deltas and disarms the flush. Called when a snapshot
// arrives: anything queued before it is stale.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
	s.armed = false
}

// Armed reports whether a flush is waiting for the next frame.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Pending reports how many deltas are queued.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
