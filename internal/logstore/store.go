// Package logstore keeps captured service output in bounded, per-service
// ring buffers. Every entry gets an id from a single counter shared by all
// services, so ids are unique and increase in append order.
package logstore

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of entries retained per service.
const DefaultCapacity = 1000

// Callback is invoked after an entry has been appended.
// evicted reports whether the append dropped the oldest entry.
type Callback func(entry Entry, evicted bool)

// Options configures a Store.
type Options struct {
	// Capacity is the per-service entry limit. Zero uses DefaultCapacity.
	Capacity int

	// OnAppend is called outside the store lock for every new entry (optional).
	OnAppend Callback

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Stats summarizes the store contents.
type Stats struct {
	Services  int    `json:"services"`
	Entries   int    `json:"entries"`
	Evictions uint64 `json:"evictions"`
	LastID    uint64 `json:"last_id"`
}

// Store maps service ids to bounded, ordered entry sequences.
type Store struct {
	mu        sync.RWMutex
	rings     map[int64]*ring
	capacity  int
	nextID    uint64
	evictions uint64
	onAppend  Callback
	now       func() time.Time
}

// New creates an empty store.
func New(opts Options) *Store {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		rings:    make(map[int64]*ring),
		capacity: capacity,
		nextID:   1,
		onAppend: opts.OnAppend,
		now:      now,
	}
}

// Capacity returns the per-service entry limit.
func (s *Store) Capacity() int {
	return s.capacity
}

// Append records a line for a service. The id is allocated under the same
// lock as the write, so id order always matches append order.
func (s *Store) Append(serviceID int64, stream Stream, message string) Entry {
	s.mu.Lock()
	entry := Entry{
		ID:        s.nextID,
		ServiceID: serviceID,
		Level:     stream.Level(),
		Stream:    stream,
		Message:   message,
		Timestamp: s.now(),
	}
	s.nextID++

	r, ok := s.rings[serviceID]
	if !ok {
		r = newRing(s.capacity)
		s.rings[serviceID] = r
	}
	evicted := r.write(entry)
	if evicted {
		s.evictions++
	}
	callback := s.onAppend
	s.mu.Unlock()

	if callback != nil {
		callback(entry, evicted)
	}
	return entry
}

// Get returns a service's entries newest first. A positive limit truncates
// the result.
func (s *Store) Get(serviceID int64, limit int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rings[serviceID]
	if !ok {
		return []Entry{}
	}
	entries := r.newest(limit)
	if entries == nil {
		return []Entry{}
	}
	return entries
}

// History returns a service's entries oldest first.
func (s *Store) History(serviceID int64) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rings[serviceID]
	if !ok {
		return nil
	}
	return r.oldest()
}

// Count returns the number of entries held for a service.
func (s *Store) Count(serviceID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.rings[serviceID]; ok {
		return r.count
	}
	return 0
}

// Clear discards every entry of a service. The id counter is not reset.
func (s *Store) Clear(serviceID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rings, serviceID)
}

// Stats returns a snapshot of store totals.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Services:  len(s.rings),
		Evictions: s.evictions,
		LastID:    s.nextID - 1,
	}
	for _, r := range s.rings {
		stats.Entries += r.count
	}
	return stats
}
