package power

import (
	"context"
	"time"

	"github.com/rawwerks/monty/internal/errors"
	"github.com/rawwerks/monty/internal/logger"
)

// DefaultInterval is the register polling period.
const DefaultInterval = 100 * time.Millisecond

// Sampler polls a Register and publishes watts into a Cell. It is the only
// writer of its counter state and of the cell.
type Sampler struct {
	reg      Register
	cell     *Cell
	interval time.Duration
	now      func() time.Time
	log      logger.Logger

	lastCounter uint32
	lastTime    time.Time
	primed      bool
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

func WithInterval(d time.Duration) SamplerOption {
	return func(s *Sampler) { s.interval = d }
}

func WithClock(now func() time.Time) SamplerOption {
	return func(s *Sampler) { s.now = now }
}

func WithLogger(l logger.Logger) SamplerOption {
	return func(s *Sampler) { s.log = l }
}

func NewSampler(reg Register, cell *Cell, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		reg:      reg,
		cell:     cell,
		interval: DefaultInterval,
		now:      time.Now,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prime takes the baseline reading. A failure here means the register is
// unusable and the caller should abort startup.
func (s *Sampler) Prime() error {
	counter, err := s.reg.ReadCounter()
	if err != nil {
		return errors.New().Wrap(errors.ErrInitFailed, err)
	}
	s.lastCounter = counter
	s.lastTime = s.now()
	s.primed = true
	s.log.Debug().Uint32("counter", counter).Msg("energy register primed")
	return nil
}

// Step reads the register once, publishes the derived watts and returns them.
func (s *Sampler) Step() (int, error) {
	if !s.primed {
		if err := s.Prime(); err != nil {
			return 0, err
		}
	}

	counter, err := s.reg.ReadCounter()
	if err != nil {
		return 0, err
	}
	now := s.now()
	watts := Compute(s.lastCounter, counter, now.Sub(s.lastTime))
	if counter < s.lastCounter {
		s.log.Warn().
			Uint32("previous", s.lastCounter).
			Uint32("current", counter).
			Msg("energy counter wrapped")
	}

	s.cell.Store(watts)
	s.lastCounter = counter
	s.lastTime = now
	return watts, nil
}

// Run polls until ctx is cancelled or a read fails. Cancellation returns nil
// and leaves the last published value in the cell.
func (s *Sampler) Run(ctx context.Context) error {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			s.log.Debug().Msg("register sampler stopped")
			return nil
		}

		watts, err := s.Step()
		if err != nil {
			appErr := errors.New().Wrap(errors.ErrMainLoop, err)
			s.log.ErrorWithCode(appErr).Msg("register sampler failed")
			return appErr
		}
		s.log.Debug().Int("watts", watts).Msg("power sample")

		timer.Reset(s.interval)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
}
