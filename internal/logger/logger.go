package logger

import (
	"io"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rawwerks/monty/internal/errors"
	"github.com/rs/zerolog"
)

var (
	log = zerolog.New(io.Discard)
	// generation counts Init calls; component loggers rebuild when it moves.
	generation atomic.Uint64
)

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Options controls where and how much the global logger writes.
type Options struct {
	Out       io.Writer
	Level     string
	Debug     bool
	Verbose   bool
	IsService bool
}

// Init initializes the logger based on the given configuration
func Init(opts Options) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    out != os.Stdout && out != os.Stderr,
	}

	if opts.IsService {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	log = zerolog.New(output).With().Timestamp().Logger()
	generation.Add(1)

	SetLogLevel(WarnLevel) // Default log level

	if lvl, err := zerolog.ParseLevel(opts.Level); err == nil && opts.Level != "" {
		zerolog.SetGlobalLevel(lvl)
	}

	if opts.Debug {
		SetLogLevel(DebugLevel)
	} else if opts.Verbose {
		SetLogLevel(InfoLevel)
	}
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// FatalWithCode logs a fatal message with a specific error code and exits the program
func FatalWithCode(err errors.Error) *LogEvent {
	return withCode(log.Fatal(), err)
}

func withCode(ev *zerolog.Event, err errors.Error) *LogEvent {
	return &LogEvent{ev.
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}

type cachedLogger struct {
	generation uint64
	zl         zerolog.Logger
}

type component struct {
	name   string
	nop    *zerolog.Logger
	cached atomic.Pointer[cachedLogger]
}

// New returns a Logger that tags every event with the component name. The
// tagged child is built once per Init, so later Init calls are followed.
func New(name string) Logger {
	return &component{name: name}
}

// Nop returns a Logger that drops everything.
func Nop() Logger {
	zl := zerolog.Nop()
	return &component{nop: &zl}
}

func (c *component) base() *zerolog.Logger {
	if c.nop != nil {
		return c.nop
	}
	gen := generation.Load()
	if cl := c.cached.Load(); cl != nil && cl.generation == gen {
		return &cl.zl
	}
	cl := &cachedLogger{
		generation: gen,
		zl:         log.With().Str("component", c.name).Logger(),
	}
	c.cached.Store(cl)
	return &cl.zl
}

func (c *component) Debug() *LogEvent { return &LogEvent{c.base().Debug()} }
func (c *component) Info() *LogEvent  { return &LogEvent{c.base().Info()} }
func (c *component) Warn() *LogEvent  { return &LogEvent{c.base().Warn()} }
func (c *component) Error() *LogEvent { return &LogEvent{c.base().Error()} }

func (c *component) ErrorWithCode(err errors.Error) *LogEvent {
	return withCode(c.base().Error(), err)
}
