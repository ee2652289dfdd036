package watch

import (
	"sort"
	"sync"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
)

// Store holds the queue of pending jobs and the recurring schedules. It is
// refreshed from poll responses and invalidated by guarded mutations; no
// other component writes it.
type Store struct {
	mu        sync.RWMutex
	queue     []models.QueueEntry
	schedules []models.Schedule
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// SetQueue replaces the queue contents.
func (s *Store) SetQueue(entries []models.QueueEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append([]models.QueueEntry(nil), entries...)
}

// SetSchedules replaces the schedule list.
func (s *Store) SetSchedules(schedules []models.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = append([]models.Schedule(nil), schedules...)
}

// Queue returns the pending entries, arrival-ordered except that priority
// overrides sort ahead (stable, so equal priorities keep arrival order).
func (s *Store) Queue() []models.QueueEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.QueueEntry(nil), s.queue...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// Schedules returns the recurring schedules.
func (s *Store) Schedules() []models.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Schedule(nil), s.schedules...)
}

// HasPendingProfile reports whether a queue entry for the profile already
// exists. Feeds the enqueue confirmation step; it is a UX safeguard, not a
// correctness gate.
func (s *Store) HasPendingProfile(profile string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.queue {
		if e.Profile == profile {
			return true
		}
	}
	return false
}
