// Package power turns the package energy counter into a live watts figure.
package power

import (
	"sync"
	"time"
)

const (
	// counterUnitsPerEnergyUnit and energyScale convert raw counter ticks to the
	// figure divided by elapsed milliseconds.
	counterUnitsPerEnergyUnit = 1.53
	energyScale               = 10.0
)

// Compute converts two consecutive counter readings into watts.
//
// The subtraction is uint32 arithmetic: after one counter wrap it still yields
// the number of ticks elapsed. Elapsed times under one millisecond (including
// zero and negative) count as one millisecond.
func Compute(prev, cur uint32, elapsed time.Duration) int {
	delta := cur - prev
	energy := float64(delta) / counterUnitsPerEnergyUnit
	scaled := energy / energyScale

	ms := elapsed.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	return int(uint32(scaled) / uint32(ms))
}

// Cell is a single-slot mailbox for the latest power reading. One goroutine
// stores, any number load.
type Cell struct {
	mu    sync.RWMutex
	watts int
}

func (c *Cell) Store(watts int) {
	c.mu.Lock()
	c.watts = watts
	c.mu.Unlock()
}

func (c *Cell) Load() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.watts
}
