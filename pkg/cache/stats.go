package cache

import (
	"sync"
	"sync/atomic"
)

// Statistics counts cache activity. Counters may be read while the cache is in use.
type Statistics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64

	mu          sync.Mutex
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a zeroed statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{}
}

func (s *Statistics) Hit()      { s.hits.Add(1) }
func (s *Statistics) Miss()     { s.misses.Add(1) }
func (s *Statistics) Set()      { s.sets.Add(1) }
func (s *Statistics) Delete()   { s.deletes.Add(1) }
func (s *Statistics) Eviction() { s.evictions.Add(1) }

// UpdateSize records the entry count and tracks its high-water mark.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	s.maxSize = max(s.maxSize, size)
	s.mu.Unlock()
}

func (s *Statistics) Hits() int64      { return s.hits.Load() }
func (s *Statistics) Misses() int64    { return s.misses.Load() }
func (s *Statistics) Sets() int64      { return s.sets.Load() }
func (s *Statistics) Deletes() int64   { return s.deletes.Load() }
func (s *Statistics) Evictions() int64 { return s.evictions.Load() }

// CurrentSize returns the last recorded entry count.
func (s *Statistics) CurrentSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSize
}

// MaxSize returns the largest entry count seen since the last Reset.
func (s *Statistics) MaxSize() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxSize
}

// HitRatio returns hits over lookups in [0, 1]; zero before any lookup.
func (s *Statistics) HitRatio() float64 {
	hits, misses := s.Hits(), s.Misses()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// Reset zeroes every counter.
func (s *Statistics) Reset() {
	for _, c := range []*atomic.Int64{&s.hits, &s.misses, &s.sets, &s.deletes, &s.evictions} {
		c.Store(0)
	}
	s.mu.Lock()
	s.currentSize, s.maxSize = 0, 0
	s.mu.Unlock()
}

// StatsSummary is a point-in-time copy of the counters.
type StatsSummary struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Sets        int64   `json:"sets"`
	Deletes     int64   `json:"deletes"`
	Evictions   int64   `json:"evictions"`
	CurrentSize int64   `json:"current_size"`
	MaxSize     int64   `json:"max_size"`
	HitRatio    float64 `json:"hit_ratio"`
}

// Summary snapshots the counters.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Hits:        s.Hits(),
		Misses:      s.Misses(),
		Sets:        s.Sets(),
		Deletes:     s.Deletes(),
		Evictions:   s.Evictions(),
		CurrentSize: s.CurrentSize(),
		MaxSize:     s.MaxSize(),
		HitRatio:    s.HitRatio(),
	}
}
