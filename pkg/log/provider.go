package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// ZerologProvider is the default LoggerProvider. It writes one JSON object per
// line (or a human-readable console line) to the configured writer.
type ZerologProvider struct {
	mu     sync.RWMutex
	base   zerolog.Logger
	level  Level
	stacks bool
}

// NewZerologProvider creates a provider writing to w at the given level.
// When console is true the output is formatted with zerolog.ConsoleWriter.
func NewZerologProvider(w io.Writer, level Level, console bool) *ZerologProvider {
	if w == nil {
		w = os.Stderr
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	p := &ZerologProvider{
		base: zerolog.New(w).With().Timestamp().Logger(),
	}
	p.SetLevel(level)
	return p
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base, provider: p}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger(), provider: p}
}

// SetLevel implements LoggerProvider.SetLevel. Loggers already handed out
// observe the new level.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.stacks = level <= LevelDebug
}

func (p *ZerologProvider) snapshot() (Level, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level, p.stacks
}

type zerologLogger struct {
	zl       zerolog.Logger
	provider *ZerologProvider
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.emit(LevelDebug, msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.emit(LevelInfo, msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.emit(LevelWarn, msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { l.emit(LevelError, msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(fields[i]), fieldValue(fields[i+1]))
	}
	return &zerologLogger{zl: ctx.Logger(), provider: l.provider}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	min, _ := l.provider.snapshot()
	return level >= min
}

func (l *zerologLogger) emit(level Level, msg string, fields []any) {
	min, stacks := l.provider.snapshot()
	if level < min {
		return
	}

	var e *zerolog.Event
	switch level {
	case LevelDebug:
		e = l.zl.Debug()
	case LevelInfo:
		e = l.zl.Info()
	case LevelWarn:
		e = l.zl.Warn()
	default:
		e = l.zl.Error()
	}

	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			addError(e, "error", err, stacks)
			fields = fields[1:]
		}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case zerolog.LogObjectMarshaler:
			e.Object(key, v)
		case error:
			addError(e, key, v, stacks)
		default:
			e.Interface(key, v)
		}
	}
	e.Msg(msg)
}

func addError(e *zerolog.Event, key string, err error, stacks bool) {
	e.Str(key, err.Error())
	if src, ok := errors.SourceOf(err); ok {
		e.Str(key+".source", src)
	}
	if stacks {
		e.Str(StacktraceKey, errors.Verbose(err))
	}
	if m, ok := err.(zerolog.LogObjectMarshaler); ok {
		e.Object(key+".detail", m)
	}
}

func fieldValue(v any) any {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}

var (
	providerMu      sync.RWMutex
	defaultProvider LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo, false)
)

// SetProvider replaces the process-wide provider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	defaultProvider = p
}

// Provider returns the process-wide provider.
func Provider() LoggerProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider
}

// GetLogger returns a logger from the process-wide provider.
func GetLogger() Logger {
	return Provider().GetLogger()
}

// GetLoggerWithName returns a component logger from the process-wide provider.
func GetLoggerWithName(name string) Logger {
	return Provider().GetLoggerWithName(name)
}
