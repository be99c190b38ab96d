// Package sampler takes instantaneous CPU usage, clock and temperature
// readings for the dashboard.
package sampler

import (
	"context"
	"time"

	"github.com/rawwerks/monty/internal/errors"
	"github.com/rawwerks/monty/internal/logger"
	"github.com/rawwerks/monty/internal/model"
	"github.com/rawwerks/monty/internal/sensors"
	"github.com/samber/lo"
)

// Reader produces metric snapshots on demand.
type Reader struct {
	cpu     CPUSource
	temps   sensors.Source
	chip    string
	feature string
	now     func() time.Time
	log     logger.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithSensorMatch sets the chip and feature substrings used to pick the
// package temperature.
func WithSensorMatch(chip, feature string) Option {
	return func(r *Reader) { r.chip, r.feature = chip, feature }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reader) { r.now = now }
}

func WithLogger(l logger.Logger) Option {
	return func(r *Reader) { r.log = l }
}

func New(cpu CPUSource, temps sensors.Source, opts ...Option) *Reader {
	r := &Reader{
		cpu:     cpu,
		temps:   temps,
		chip:    "coretemp",
		feature: "temp1",
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot refreshes CPU statistics and reads usage, average frequency and
// package temperature. PowerW is left for the caller. A missing temperature
// reads as 0; a failed CPU refresh is returned.
func (r *Reader) Snapshot(ctx context.Context) (model.Snapshot, error) {
	if err := r.cpu.Refresh(ctx); err != nil {
		return model.Snapshot{}, errors.New().Wrap(errors.ErrSnapshot, err)
	}

	snap := model.Snapshot{
		Timestamp: r.now().UTC(),
		Usage:     lo.Clamp(int(r.cpu.Usage()), 0, 100),
		FreqMHz:   averageMHz(r.cpu.Frequencies()),
		TempC:     sensors.PackageTemp(ctx, r.temps, r.chip, r.feature),
		Brand:     r.cpu.Brand(),
	}
	r.log.Debug().
		Int("usage", snap.Usage).
		Int("freq_mhz", snap.FreqMHz).
		Int("temp_c", snap.TempC).
		Msg("snapshot")
	return snap, nil
}

// averageMHz is the integer mean across cores; no cores reads as 0.
func averageMHz(freqs []uint64) int {
	if len(freqs) == 0 {
		return 0
	}
	return int(lo.Sum(freqs) / uint64(len(freqs)))
}
