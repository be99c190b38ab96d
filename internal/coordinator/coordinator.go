// Package coordinator turns a fast tick stream into rate-limited,
// time-aligned samples across the four dashboard windows.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/rawwerks/monty/internal/logger"
	"github.com/rawwerks/monty/internal/model"
	"github.com/rawwerks/monty/internal/window"
)

// DefaultSampleInterval is the minimum age of the last sample before a tick
// takes a new one.
const DefaultSampleInterval = 500 * time.Millisecond

// Display ceilings used for axis scaling.
const (
	UsageCeiling = 100
	FreqCeiling  = 5000
	TempCeiling  = 100
	PowerCeiling = 80
)

// Snapshotter supplies CPU usage, frequency and temperature.
type Snapshotter interface {
	Snapshot(ctx context.Context) (model.Snapshot, error)
}

// PowerReader exposes the latest published power figure.
type PowerReader interface {
	Load() int
}

// Observer receives every sample taken.
type Observer func(model.Snapshot)

// Stores is the set of windows the coordinator writes to.
type Stores struct {
	Usage *window.Store
	Freq  *window.Store
	Temp  *window.Store
	Power *window.Store
}

// All returns the stores in display order.
func (s Stores) All() []*window.Store {
	return []*window.Store{s.Usage, s.Freq, s.Temp, s.Power}
}

// Coordinator pushes a new sample into every store at most once per
// interval, however often Tick is called.
type Coordinator struct {
	snap      Snapshotter
	power     PowerReader
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	log       logger.Logger
	observers []Observer

	mu     sync.RWMutex
	last   time.Time
	latest model.Snapshot
	stores Stores
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.interval = d }
}

func WithRetention(d time.Duration) Option {
	return func(c *Coordinator) { c.retention = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observers = append(c.observers, o) }
}

// New takes one seed snapshot so that every store starts non-empty. Power is
// seeded with 0. A failing seed snapshot is returned as an init error.
func New(ctx context.Context, snap Snapshotter, power PowerReader, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		snap:      snap,
		power:     power,
		interval:  DefaultSampleInterval,
		retention: window.DefaultRetention,
		now:       time.Now,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	seed, err := snap.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now := c.now()
	seed.Timestamp = now.UTC()
	seed.PowerW = 0

	ret := window.WithRetention(c.retention)
	c.stores = Stores{
		Usage: window.New(model.Sample{Timestamp: seed.Timestamp, Value: seed.Usage}, "%", UsageCeiling, ret),
		Freq:  window.New(model.Sample{Timestamp: seed.Timestamp, Value: seed.FreqMHz}, " MHz", FreqCeiling, ret),
		Temp:  window.New(model.Sample{Timestamp: seed.Timestamp, Value: seed.TempC}, " °C", TempCeiling, ret),
		Power: window.New(model.Sample{Timestamp: seed.Timestamp, Value: 0}, " W", PowerCeiling, ret),
	}
	c.last = now
	c.latest = seed
	return c, nil
}

// Tick samples when the previous sample is at least one interval old and
// reports whether it did. Within the interval it returns immediately.
func (c *Coordinator) Tick(ctx context.Context) (bool, error) {
	now := c.now()

	c.mu.Lock()
	if now.Sub(c.last) < c.interval {
		c.mu.Unlock()
		return false, nil
	}
	c.last = now
	c.mu.Unlock()

	snap, err := c.snap.Snapshot(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("snapshot failed, skipping sample")
		return false, err
	}
	snap.Timestamp = now.UTC()
	snap.PowerW = c.power.Load()

	c.stores.Usage.Push(snap.Timestamp, snap.Usage)
	c.stores.Freq.Push(snap.Timestamp, snap.FreqMHz)
	c.stores.Temp.Push(snap.Timestamp, snap.TempC)
	c.stores.Power.Push(snap.Timestamp, snap.PowerW)

	c.mu.Lock()
	c.latest = snap
	c.mu.Unlock()

	for _, o := range c.observers {
		o(snap)
	}
	return true, nil
}

// Stores returns the four windows for rendering.
func (c *Coordinator) Stores() Stores {
	return c.stores
}

// Latest returns the most recent time-aligned sample.
func (c *Coordinator) Latest() model.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}
