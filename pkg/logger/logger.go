package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog behind typed fields so callers never touch zerolog events.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string    // debug, info, warn, error
	Format     string    // json or console
	Output     string    // stdout, stderr, or file path
	TimeFormat string    // defaults to RFC3339Nano
	Writer     io.Writer // overrides Output when set
}

func New(cfg *Config) (*Logger, error) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat
	zerolog.DurationFieldUnit = time.Millisecond

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: cfg.TimeFormat}
	}

	// skip emit and the level method
	zl := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()

	return &Logger{zl: zl}, nil
}

func openOutput(cfg *Config) (io.Writer, error) {
	switch {
	case cfg.Writer != nil:
		return cfg.Writer, nil
	case cfg.Output == "" || cfg.Output == "stdout":
		return os.Stdout, nil
	case cfg.Output == "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		return f, nil
	}
}

func (l *Logger) Debug(msg string, fields ...Field) { emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { emit(l.zl.Error(), msg, fields) }

func emit(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		f.event(e)
	}
	e.Msg(msg)
}

// With returns a child logger that always carries fields.
func (l *Logger) With(fields ...Field) *Logger {
	c := l.zl.With()
	for _, f := range fields {
		c = f.context(c)
	}
	return &Logger{zl: c.Logger()}
}

// Component is shorthand for With(String("component", name)).
func (l *Logger) Component(name string) *Logger {
	return l.With(String("component", name))
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Field is one typed key/value pair. It renders the same way on a single
// event and on a child logger's context.
type Field struct {
	event   func(*zerolog.Event)
	context func(zerolog.Context) zerolog.Context
}

func String(key, value string) Field {
	return Field{
		event:   func(e *zerolog.Event) { e.Str(key, value) },
		context: func(c zerolog.Context) zerolog.Context { return c.Str(key, value) },
	}
}

func Int(key string, value int) Field {
	return Int64(key, int64(value))
}

func Int64(key string, value int64) Field {
	return Field{
		event:   func(e *zerolog.Event) { e.Int64(key, value) },
		context: func(c zerolog.Context) zerolog.Context { return c.Int64(key, value) },
	}
}

func Bool(key string, value bool) Field {
	return Field{
		event:   func(e *zerolog.Event) { e.Bool(key, value) },
		context: func(c zerolog.Context) zerolog.Context { return c.Bool(key, value) },
	}
}

// Duration is rendered in milliseconds.
func Duration(key string, value time.Duration) Field {
	return Field{
		event:   func(e *zerolog.Event) { e.Dur(key, value) },
		context: func(c zerolog.Context) zerolog.Context { return c.Dur(key, value) },
	}
}

func Error(err error) Field {
	return Field{
		event:   func(e *zerolog.Event) { e.Err(err) },
		context: func(c zerolog.Context) zerolog.Context { return c.Err(err) },
	}
}
