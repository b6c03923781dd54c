package alert

import (
	"sync"
	"time"
)

// DefaultCapacity alerts kept in memory
const DefaultCapacity = 1000

// Store bounded alert history, newest first
type Store struct {
	mu       sync.RWMutex
	alerts   []Alert
	capacity int
}

// NewStore creates a store; capacity <= 0 uses DefaultCapacity
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		alerts:   make([]Alert, 0, 64),
		capacity: capacity,
	}
}

// Add prepends an alert and evicts the oldest past capacity
func (s *Store) Add(a Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = append(s.alerts, Alert{})
	copy(s.alerts[1:], s.alerts)
	s.alerts[0] = a

	if len(s.alerts) > s.capacity {
		s.alerts = s.alerts[:s.capacity]
	}
}

// Recent returns up to n alerts, newest first. n <= 0 returns all.
func (s *Store) Recent(n int) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.alerts) {
		n = len(s.alerts)
	}
	out := make([]Alert, n)
	copy(out, s.alerts[:n])
	return out
}

// Len number of stored alerts
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// CountSince alerts raised at or after t
func (s *Store) CountSince(t time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, a := range s.alerts {
		if a.Timestamp.Before(t) {
			// newest first, the rest are older
			break
		}
		count++
	}
	return count
}
