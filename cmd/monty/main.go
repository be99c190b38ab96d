package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/rawwerks/monty/internal/config"
	"github.com/rawwerks/monty/internal/coordinator"
	"github.com/rawwerks/monty/internal/errors"
	"github.com/rawwerks/monty/internal/logger"
	"github.com/rawwerks/monty/internal/power"
	"github.com/rawwerks/monty/internal/sampler"
	"github.com/rawwerks/monty/internal/sensors"
	"github.com/rawwerks/monty/internal/ui"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "monty: %v\n", err)
		os.Exit(2)
	}

	closeLog, err := initLogging(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "monty: %v\n", err)
		os.Exit(2)
	}
	defer closeLog()
	logger.Debug().Interface("config", cfg).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "monty: %v\n", err)
		stop()
		var appErr errors.Error
		if errors.As(err, &appErr) {
			// exits with status 1
			logger.FatalWithCode(appErr).Msg("monty stopped")
		}
		closeLog()
		os.Exit(1)
	}
}

// initLogging sends logs to log_file, or stderr in JSON mode. The TUI owns
// the terminal, so without a file its logs are dropped.
func initLogging(cfg *config.Config) (func(), error) {
	var out io.Writer = io.Discard
	closer := func() {}

	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closer = func() { _ = f.Close() }
	case cfg.JSON:
		out = os.Stderr
	}

	logger.Init(logger.Options{
		Out:       out,
		Level:     cfg.LogLevel,
		Debug:     cfg.Debug,
		Verbose:   cfg.Verbose,
		IsService: logger.IsService(),
	})
	return closer, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	errFactory := errors.New()
	fs := afero.NewOsFs()

	msr, err := power.OpenMSR(fs, cfg.MSRPath, cfg.MSROffset)
	if err != nil {
		return err
	}
	defer func() {
		if err := msr.Close(); err != nil {
			logger.Warn().Err(err).Msg("close energy register")
		}
	}()

	cell := &power.Cell{}
	powerSampler := power.NewSampler(msr, cell,
		power.WithInterval(cfg.RegisterInterval),
		power.WithLogger(logger.New("power")))
	if err := powerSampler.Prime(); err != nil {
		return err
	}

	temps, err := sensors.Open(ctx, cfg.SensorBackend, fs)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}
	reader := sampler.New(sampler.NewHostCPU(fs), temps,
		sampler.WithSensorMatch(cfg.SensorChip, cfg.SensorFeature),
		sampler.WithLogger(logger.New("sampler")))

	opts := []coordinator.Option{
		coordinator.WithInterval(cfg.SampleInterval),
		coordinator.WithRetention(cfg.Retention),
		coordinator.WithLogger(logger.New("coordinator")),
	}
	if cfg.JSON {
		opts = append(opts, coordinator.WithObserver(ui.NewNDJSON(os.Stdout).Observe))
	}
	coord, err := coordinator.New(ctx, reader, cell, opts...)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}

	logger.Info().
		Str("msr", cfg.MSRPath).
		Str("sensors", cfg.SensorBackend).
		Dur("sample_interval", cfg.SampleInterval).
		Msg("monty started")

	g, gctx := errgroup.WithContext(ctx)
	presentCtx, stopPresent := context.WithCancel(gctx)
	defer stopPresent()
	samplerCtx, stopSampler := context.WithCancel(gctx)
	defer stopSampler()

	g.Go(func() error {
		err := powerSampler.Run(samplerCtx)
		// a dead sampler leaves nothing worth drawing
		stopPresent()
		return err
	})
	g.Go(func() error {
		defer stopSampler()
		if cfg.JSON {
			return ui.RunTicker(presentCtx, coord, cfg.TickInterval())
		}
		return ui.RunTUI(presentCtx, coord, cfg.TickInterval())
	})
	return g.Wait()
}
