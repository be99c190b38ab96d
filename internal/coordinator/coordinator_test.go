package coordinator_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/rawwerks/monty/internal/coordinator"
	"github.com/rawwerks/monty/internal/model"
	"github.com/rawwerks/monty/internal/power"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshotter struct {
	calls int
	err   error
	next  model.Snapshot
}

func (f *fakeSnapshotter) Snapshot(context.Context) (model.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return model.Snapshot{}, f.err
	}
	s := f.next
	s.Timestamp = time.Unix(0, 0) // overwritten by the coordinator
	return s, nil
}

type manualClock struct{ t time.Time }

func (c *manualClock) Now() time.Time          { return c.t }
func (c *manualClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newCoordinator(t *testing.T, snap *fakeSnapshotter, cell *power.Cell, clock *manualClock, opts ...coordinator.Option) *coordinator.Coordinator {
	t.Helper()
	opts = append([]coordinator.Option{coordinator.WithClock(clock.Now)}, opts...)
	c, err := coordinator.New(context.Background(), snap, cell, opts...)
	require.NoError(t, err)
	return c
}

func TestNewSeedsEveryStore(t *testing.T) {
	snap := &fakeSnapshotter{next: model.Snapshot{Usage: 12, FreqMHz: 2400, TempC: 45, PowerW: 99}}
	clock := &manualClock{t: start}
	cell := &power.Cell{}
	cell.Store(33)

	c := newCoordinator(t, snap, cell, clock)

	stores := c.Stores()
	for _, s := range stores.All() {
		assert.Equal(t, 1, s.Len())
		assert.True(t, s.Latest().Timestamp.Equal(start))
	}
	assert.Equal(t, 12, stores.Usage.Latest().Value)
	assert.Equal(t, 2400, stores.Freq.Latest().Value)
	assert.Equal(t, 45, stores.Temp.Latest().Value)
	assert.Equal(t, 0, stores.Power.Latest().Value, "power is seeded with zero")

	assert.Equal(t, "%", stores.Usage.Unit())
	assert.Equal(t, 5000, stores.Freq.Ceiling())
	assert.Equal(t, " °C", stores.Temp.Unit())
	assert.Equal(t, 80, stores.Power.Ceiling())
}

func TestNewSeedFailure(t *testing.T) {
	snap := &fakeSnapshotter{err: stderrors.New("no cpu")}

	_, err := coordinator.New(context.Background(), snap, &power.Cell{})
	assert.Error(t, err)
}

func TestTickIdleWithinInterval(t *testing.T) {
	snap := &fakeSnapshotter{}
	clock := &manualClock{t: start}
	c := newCoordinator(t, snap, &power.Cell{}, clock)

	for i := 0; i < 24; i++ {
		clock.Advance(20 * time.Millisecond)
		sampled, err := c.Tick(context.Background())
		require.NoError(t, err)
		assert.False(t, sampled)
	}

	assert.Equal(t, 1, snap.calls, "only the seed snapshot was taken")
	assert.Equal(t, 1, c.Stores().Usage.Len())
}

func TestTickSamplesAtInterval(t *testing.T) {
	snap := &fakeSnapshotter{next: model.Snapshot{Usage: 50, FreqMHz: 3000, TempC: 60}}
	clock := &manualClock{t: start}
	cell := &power.Cell{}
	cell.Store(17)
	c := newCoordinator(t, snap, cell, clock)

	clock.Advance(500 * time.Millisecond)
	sampled, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, sampled)

	stores := c.Stores()
	want := start.Add(500 * time.Millisecond)
	for _, s := range stores.All() {
		require.Equal(t, 2, s.Len())
		assert.True(t, s.Latest().Timestamp.Equal(want), "all four series share the timestamp")
	}
	assert.Equal(t, 17, stores.Power.Latest().Value)
	assert.Equal(t, 60, stores.Temp.Latest().Value)

	latest := c.Latest()
	assert.Equal(t, 17, latest.PowerW)
	assert.Equal(t, 50, latest.Usage)
	assert.True(t, latest.Timestamp.Equal(want))
}

func TestTickDebounceIdempotence(t *testing.T) {
	snap := &fakeSnapshotter{}
	clock := &manualClock{t: start}
	c := newCoordinator(t, snap, &power.Cell{}, clock)

	clock.Advance(600 * time.Millisecond)
	first, err := c.Tick(context.Background())
	require.NoError(t, err)

	clock.Advance(499 * time.Millisecond)
	second, err := c.Tick(context.Background())
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	for _, s := range c.Stores().All() {
		assert.Equal(t, 2, s.Len(), "exactly one push per store")
	}

	clock.Advance(time.Millisecond)
	third, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, third)
}

func TestTickUsesCustomInterval(t *testing.T) {
	snap := &fakeSnapshotter{}
	clock := &manualClock{t: start}
	c := newCoordinator(t, snap, &power.Cell{}, clock, coordinator.WithInterval(time.Second))

	clock.Advance(700 * time.Millisecond)
	sampled, _ := c.Tick(context.Background())
	assert.False(t, sampled)

	clock.Advance(300 * time.Millisecond)
	sampled, _ = c.Tick(context.Background())
	assert.True(t, sampled)
}

func TestTickSnapshotErrorKeepsStores(t *testing.T) {
	snap := &fakeSnapshotter{}
	clock := &manualClock{t: start}
	c := newCoordinator(t, snap, &power.Cell{}, clock)

	snap.err = stderrors.New("proc unavailable")
	clock.Advance(time.Second)
	sampled, err := c.Tick(context.Background())

	assert.Error(t, err)
	assert.False(t, sampled)
	assert.Equal(t, 1, c.Stores().Usage.Len())
}

func TestObserverSeesEachSample(t *testing.T) {
	snap := &fakeSnapshotter{next: model.Snapshot{Usage: 3}}
	clock := &manualClock{t: start}
	var seen []model.Snapshot
	c := newCoordinator(t, snap, &power.Cell{}, clock,
		coordinator.WithObserver(func(s model.Snapshot) { seen = append(seen, s) }))

	for i := 0; i < 100; i++ {
		clock.Advance(20 * time.Millisecond)
		_, err := c.Tick(context.Background())
		require.NoError(t, err)
	}

	// 2 s of 20 ms ticks at a 500 ms cadence
	assert.Len(t, seen, 4)
	for _, s := range seen {
		assert.Equal(t, 3, s.Usage)
	}
}

func TestWindowStaysBoundedUnderTicks(t *testing.T) {
	snap := &fakeSnapshotter{}
	clock := &manualClock{t: start}
	c := newCoordinator(t, snap, &power.Cell{}, clock)

	for i := 0; i < 10000; i++ {
		clock.Advance(20 * time.Millisecond)
		_, err := c.Tick(context.Background())
		require.NoError(t, err)
	}

	// 60 s at 500 ms spacing keeps 121 samples
	assert.LessOrEqual(t, c.Stores().Usage.Len(), 121)
}
