package logger_test

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/rawwerks/monty/internal/errors"
	"github.com/rawwerks/monty/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestComponentLoggerTagsEvents(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Options{Out: &buf, Verbose: true, IsService: true})

	log := logger.New("power")
	log.Info().Int("watts", 12).Msg("published")

	out := buf.String()
	assert.Contains(t, out, "published")
	assert.Contains(t, out, "component=power")
	assert.Contains(t, out, "watts=12")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Options{Out: &buf, IsService: true})

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLevelFromString(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Options{Out: &buf, Level: "debug", IsService: true})

	logger.Debug().Msg("tick")

	assert.Contains(t, buf.String(), "tick")
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Options{Out: &buf, IsService: true})

	err := errors.New().Wrap(errors.ErrRegisterRead, stderrors.New("short read"))
	logger.New("power").ErrorWithCode(err).Msg("sampler stopped")

	assert.Contains(t, buf.String(), "error_code=register_read_failed")
	assert.Contains(t, buf.String(), "short read")
}

func TestNopDropsEverything(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Options{Out: &buf, Debug: true, IsService: true})

	logger.Nop().Error().Msg("dropped")

	assert.Empty(t, buf.String())
}

func TestComponentFollowsReinit(t *testing.T) {
	var first, second bytes.Buffer
	logger.Init(logger.Options{Out: &first, IsService: true})

	log := logger.New("sampler")
	log.Warn().Msg("one")
	log.Warn().Msg("two")

	logger.Init(logger.Options{Out: &second, IsService: true})
	log.Warn().Msg("three")

	assert.Contains(t, first.String(), "one")
	assert.Contains(t, first.String(), "two")
	assert.NotContains(t, first.String(), "three")
	assert.Contains(t, second.String(), "three")
	assert.Contains(t, second.String(), "component=sampler")
}

func TestComponentReusesTaggedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Options{Out: &buf, IsService: true})
	log := logger.New("coordinator")

	allocs := testing.AllocsPerRun(100, func() {
		log.Debug().Msg("filtered")
	})

	// only the LogEvent wrapper remains once the child is cached
	assert.LessOrEqual(t, allocs, 1.0)
	assert.Empty(t, buf.String())
}
