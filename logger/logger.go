package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Modes in which debug and info output is allowed.
const (
	ModeDevelopment = "development"
	ModeLocal       = "local"
	ModeTest        = "test"
)

// ZeroLogger wraps zerolog.Logger to implement the Logger interface.
type ZeroLogger struct {
	zlog   *zerolog.Logger
	filter *SensitiveDataFilter
}

// Ensure ZeroLogger implements the interface
var _ Logger = (*ZeroLogger)(nil)

var callerMarshalOnce sync.Once

func setupCallerMarshal() {
	callerMarshalOnce.Do(func() {
		zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
			base := filepath.Base(file)
			parent := filepath.Base(filepath.Dir(file))
			if parent != "." && parent != "" {
				return parent + "/" + base + ":" + strconv.Itoa(line)
			}
			return base + ":" + strconv.Itoa(line)
		}
	})
}

// NewForMode creates a ZeroLogger gated by the application mode.
//
// In development-like modes (development, local, test) the requested level is
// honoured and defaults to debug. In every other mode the logger is pinned to
// warn, so debug/info are dropped while warn/error always reach the sink.
// A nil writer means stderr.
func NewForMode(mode, level string, pretty bool, out io.Writer) *ZeroLogger {
	if out == nil {
		out = os.Stderr
	}
	return newZeroLogger(out, ResolveLevel(mode, level), pretty, DefaultFilterConfig())
}

// NewNop returns a logger that discards everything.
func NewNop() *ZeroLogger {
	l := zerolog.Nop()
	return &ZeroLogger{zlog: &l, filter: NewSensitiveDataFilter(nil)}
}

// IsDevelopmentMode reports whether debug/info output is allowed in mode.
func IsDevelopmentMode(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeDevelopment, ModeLocal, ModeTest:
		return true
	default:
		return false
	}
}

// ResolveLevel returns the effective zerolog level for a mode and requested level.
func ResolveLevel(mode, level string) zerolog.Level {
	if !IsDevelopmentMode(mode) {
		return zerolog.WarnLevel
	}
	if strings.TrimSpace(level) == "" {
		return zerolog.DebugLevel
	}
	zLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || zLevel == zerolog.NoLevel {
		return zerolog.DebugLevel
	}
	// warn and error must stay observable even when a quieter level is requested
	if zLevel > zerolog.WarnLevel {
		return zerolog.WarnLevel
	}
	return zLevel
}

func newZeroLogger(out io.Writer, level zerolog.Level, pretty bool, filterConfig *FilterConfig) *ZeroLogger {
	setupCallerMarshal()

	var l zerolog.Logger
	if pretty {
		l = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
	} else {
		l = zerolog.New(out).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
	}
	l = l.Level(level)

	return &ZeroLogger{zlog: &l, filter: NewSensitiveDataFilter(filterConfig)}
}

// Level returns the effective level of the logger.
func (l *ZeroLogger) Level() zerolog.Level {
	return l.zlog.GetLevel()
}

// WithContext returns a logger with context information attached.
func (l *ZeroLogger) WithContext(ctx any) Logger {
	if c, ok := ctx.(context.Context); ok {
		zl := zerolog.Ctx(c)
		if zl == nil || zl.GetLevel() == zerolog.Disabled {
			return l
		}
		return &ZeroLogger{zlog: zl, filter: l.filter}
	}
	return l
}

// WithFields returns a logger with additional fields attached to all log entries.
func (l *ZeroLogger) WithFields(fields map[string]any) Logger {
	if l.filter != nil {
		fields = l.filter.FilterFields(fields)
	}
	log := l.zlog.With().Fields(fields).Logger()
	return &ZeroLogger{zlog: &log, filter: l.filter}
}
