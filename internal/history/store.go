package history

import (
	"sort"
	"sync"
	"time"

	"dex-sentinel/internal/domain"
)

// DefaultCapacity bounds each per-token series.
const DefaultCapacity = 1000

// Store owns all in-memory per-token state: the last snapshot, a bounded
// price history and a bounded sentiment history. Distinct keys can be used
// concurrently; each key is expected to have a single writer.
type Store struct {
	mu       sync.RWMutex
	entries  map[domain.TokenKey]*entry
	capacity int
}

type entry struct {
	mu         sync.RWMutex
	last       *domain.TokenSnapshot
	points     []domain.PricePoint
	sentiments []domain.MarketSentiment
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		entries:  make(map[domain.TokenKey]*entry),
		capacity: capacity,
	}
}

func (s *Store) Capacity() int {
	return s.capacity
}

func (s *Store) lookup(key domain.TokenKey) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *Store) getOrCreate(key domain.TokenKey) *entry {
	if e, ok := s.lookup(key); ok {
		return e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e
	}
	e := &entry{}
	s.entries[key] = e
	return e
}

// Previous returns the last recorded snapshot for key.
func (s *Store) Previous(key domain.TokenKey) (domain.TokenSnapshot, bool) {
	e, ok := s.lookup(key)
	if !ok {
		return domain.TokenSnapshot{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return domain.TokenSnapshot{}, false
	}
	return *e.last, true
}

// Record stores snap as the last snapshot for key and appends a price point,
// evicting the oldest point once the series is at capacity.
func (s *Store) Record(key domain.TokenKey, snap domain.TokenSnapshot, at time.Time) domain.PricePoint {
	point := domain.PricePoint{
		Timestamp: at,
		Price:     snap.Price(),
		Volume:    snap.Volume.H1,
	}

	e := s.getOrCreate(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	last := snap
	e.last = &last
	e.points = appendBounded(e.points, point, s.capacity)
	return point
}

// History returns a copy of the most recent limit points, oldest first.
// limit <= 0 returns the whole series.
func (s *Store) History(key domain.TokenKey, limit int) []domain.PricePoint {
	e, ok := s.lookup(key)
	if !ok {
		return []domain.PricePoint{}
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return tail(e.points, limit)
}

// RecordSentiment appends to the bounded sentiment history for key.
func (s *Store) RecordSentiment(key domain.TokenKey, sentiment domain.MarketSentiment) {
	e := s.getOrCreate(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sentiments = appendBounded(e.sentiments, sentiment, s.capacity)
}

// Sentiments returns a copy of the sentiment history for key, oldest first.
func (s *Store) Sentiments(key domain.TokenKey, limit int) []domain.MarketSentiment {
	e, ok := s.lookup(key)
	if !ok {
		return []domain.MarketSentiment{}
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return tail(e.sentiments, limit)
}

// Keys lists every key with recorded state, sorted.
func (s *Store) Keys() []domain.TokenKey {
	s.mu.RLock()
	keys := make([]domain.TokenKey, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func appendBounded[T any](series []T, v T, capacity int) []T {
	if len(series) >= capacity {
		n := copy(series, series[len(series)-capacity+1:])
		series = series[:n]
	}
	return append(series, v)
}

func tail[T any](series []T, limit int) []T {
	start := 0
	if limit > 0 && limit < len(series) {
		start = len(series) - limit
	}
	out := make([]T, len(series)-start)
	copy(out, series[start:])
	return out
}
