// Package store holds parsed entries in a bounded, thread-safe,
// randomly-addressable cache with oldest-first eviction.
package store

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/domain"
)

// DefaultMaxEntries bounds the store when no capacity is configured.
const DefaultMaxEntries = 10000

// Store owns every LogEntry from creation until eviction. Ids are assigned
// here and are unique and strictly increasing in insertion order for the
// lifetime of the process.
type Store struct {
	mu        sync.RWMutex
	logger    *zap.Logger
	max       int
	nextID    int64
	byID      map[int64]*domain.LogEntry
	order     []*domain.LogEntry // insertion order, oldest first
	observers []domain.EntryObserver
}

// New creates a store bounded at max entries.
func New(max int, logger *zap.Logger) *Store {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger: logger.Named("store"),
		max:    max,
		byID:   make(map[int64]*domain.LogEntry),
	}
}

// Subscribe registers an observer for entry-added and cleared notifications.
func (s *Store) Subscribe(o domain.EntryObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Add assigns the next id to the entry, stores it, and notifies observers.
// The oldest entries are evicted once the capacity bound is exceeded.
func (s *Store) Add(e *domain.LogEntry) {
	s.mu.Lock()
	s.nextID++
	e.ID = s.nextID
	s.byID[e.ID] = e
	s.order = append(s.order, e)
	s.evictLocked()
	obs := s.observersLocked()
	s.mu.Unlock()

	for _, o := range obs {
		o.OnEntryAdded(e)
	}
}

// AddBatch stores a batch in order and raises a single batch notification.
func (s *Store) AddBatch(entries []*domain.LogEntry) {
	if len(entries) == 0 {
		return
	}
	s.mu.Lock()
	for _, e := range entries {
		s.nextID++
		e.ID = s.nextID
		s.byID[e.ID] = e
		s.order = append(s.order, e)
	}
	s.evictLocked()
	obs := s.observersLocked()
	s.mu.Unlock()

	for _, o := range obs {
		o.OnEntriesAdded(entries)
	}
}

// evictLocked drops the oldest entries until the store is within capacity.
func (s *Store) evictLocked() {
	if over := len(s.order) - s.max; over > 0 {
		for _, e := range s.order[:over] {
			delete(s.byID, e.ID)
		}
		s.order = append([]*domain.LogEntry(nil), s.order[over:]...)
	}
}

// Get returns the entry with the given id.
func (s *Store) Get(id int64) (*domain.LogEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	return e, ok
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Recent returns the newest n entries in insertion order.
func (s *Store) Recent(n int) []*domain.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.order) {
		n = len(s.order)
	}
	out := make([]*domain.LogEntry, n)
	copy(out, s.order[len(s.order)-n:])
	return out
}

// Snapshot returns all entries in insertion order.
func (s *Store) Snapshot() []*domain.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.LogEntry, len(s.order))
	copy(out, s.order)
	return out
}

// Page returns a skip/take window ordered by timestamp descending.
func (s *Store) Page(skip, take int) []*domain.LogEntry {
	s.mu.RLock()
	sorted := make([]*domain.LogEntry, len(s.order))
	copy(sorted, s.order)
	s.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if skip < 0 {
		skip = 0
	}
	if skip >= len(sorted) {
		return nil
	}
	end := skip + take
	if take <= 0 || end > len(sorted) {
		end = len(sorted)
	}
	return sorted[skip:end]
}

// SetHighlighted flips the highlight flag by replacing the stored entry with
// a copy. Pointers handed out earlier keep their snapshot unchanged, so
// readers never observe a concurrent write.
func (s *Store) SetHighlighted(id int64, on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return false
	}
	if e.Highlighted == on {
		return true
	}
	clone := *e
	clone.Highlighted = on
	s.byID[id] = &clone
	// Recently added entries are the usual highlight targets.
	for i := len(s.order) - 1; i >= 0; i-- {
		if s.order[i].ID == id {
			s.order[i] = &clone
			break
		}
	}
	return true
}

// Clear empties the store and raises the cleared notification. Id assignment
// keeps counting; ids are never reused.
func (s *Store) Clear() {
	s.mu.Lock()
	n := len(s.order)
	s.byID = make(map[int64]*domain.LogEntry)
	s.order = nil
	obs := s.observersLocked()
	s.mu.Unlock()

	s.logger.Info("store cleared", zap.Int("dropped", n))
	for _, o := range obs {
		o.OnCleared()
	}
}

func (s *Store) observersLocked() []domain.EntryObserver {
	out := make([]domain.EntryObserver, len(s.observers))
	copy(out, s.observers)
	return out
}
