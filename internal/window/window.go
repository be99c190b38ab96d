// Package window keeps a fixed-duration trailing history of samples.
package window

import (
	"sync"
	"time"

	"github.com/rawwerks/monty/internal/model"
)

// DefaultRetention is the trailing duration kept by a Store.
const DefaultRetention = 60 * time.Second

// Invalidator is cleared whenever a Store receives a new sample. Render
// caches implement it.
type Invalidator interface {
	Clear()
}

// Option configures a Store.
type Option func(*Store)

// WithRetention overrides DefaultRetention.
func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

// WithInvalidator registers a cache to clear on every Push.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Store) { s.invalidators = append(s.invalidators, inv) }
}

// Store is a rolling window of samples for one metric. Samples are kept
// oldest first internally and handed out newest first.
type Store struct {
	mu           sync.RWMutex
	samples      []model.Sample
	retention    time.Duration
	unit         string
	ceiling      int
	generation   uint64
	invalidators []Invalidator
}

// New returns a store holding only seed.
func New(seed model.Sample, unit string, ceiling int, opts ...Option) *Store {
	s := &Store{
		samples:   []model.Sample{seed},
		retention: DefaultRetention,
		unit:      unit,
		ceiling:   ceiling,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddInvalidator registers a cache after construction.
func (s *Store) AddInvalidator(inv Invalidator) {
	s.mu.Lock()
	s.invalidators = append(s.invalidators, inv)
	s.mu.Unlock()
}

// Push appends a sample at the newest end and evicts from the oldest end
// while the span exceeds the retention. The newest sample is never evicted.
// Eviction compares against the newest timestamp, so a clock that stepped
// backwards yields a negative span and evicts nothing.
func (s *Store) Push(ts time.Time, value int) {
	s.mu.Lock()
	s.samples = append(s.samples, model.Sample{Timestamp: ts, Value: value})

	evict := 0
	for len(s.samples)-evict > 1 && ts.Sub(s.samples[evict].Timestamp) > s.retention {
		evict++
	}
	if evict > 0 {
		// zero the evicted slots so the backing array does not pin them
		clear(s.samples[:evict])
		s.samples = s.samples[evict:]
	}
	s.generation++
	invalidators := s.invalidators
	s.mu.Unlock()

	for _, inv := range invalidators {
		inv.Clear()
	}
}

// Samples returns a newest-first copy of the retained samples.
func (s *Store) Samples() []model.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Sample, len(s.samples))
	for i, smp := range s.samples {
		out[len(s.samples)-1-i] = smp
	}
	return out
}

// Latest returns the newest sample.
func (s *Store) Latest() model.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.samples[len(s.samples)-1]
}

// Len returns the number of retained samples.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// Generation increases by one on every Push.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Unit is the suffix appended to values in titles and axis labels, such
// as "%" or " MHz".
func (s *Store) Unit() string { return s.unit }

// Ceiling is the fixed top of the value axis. Values above it are drawn
// clipped, never rescaled.
func (s *Store) Ceiling() int { return s.ceiling }

// Retention is the time span the chart x-axis covers.
func (s *Store) Retention() time.Duration { return s.retention }
