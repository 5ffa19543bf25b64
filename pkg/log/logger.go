package log

import (
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/swingprob/pkg/errors"
)

// Output formats accepted by SetupLogger.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// SetupLogger installs a zerolog provider as the process-wide provider and
// routes library warnings through it.
func SetupLogger(level, format string, w io.Writer) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	var console bool
	switch strings.ToLower(format) {
	case "", FormatJSON:
	case FormatConsole:
		console = true
	default:
		return errors.NewValidationError("log-format", "must be one of json, console", format)
	}

	p := NewZerologProvider(w, lvl, console)
	SetProvider(p)
	InstallWarningHook(p.GetLoggerWithName("warnings"))
	return nil
}

// InstallWarningHook sends every errors.Warn call to logger at warn level.
func InstallWarningHook(logger Logger) {
	errors.SetZerologWarnFunc(func(w error) {
		fields := []any{ErrorTypeKey, warningType(w)}
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			fields = append(fields, WarningKey, m)
		}
		logger.Warn(w.Error(), fields...)
	})
}

func warningType(w error) string {
	switch w.(type) {
	case *errors.UndefinedMetricWarning:
		return "UndefinedMetricWarning"
	case *errors.FitFailedWarning:
		return "FitFailedWarning"
	case *errors.DataConversionWarning:
		return "DataConversionWarning"
	case *errors.SplitWarning:
		return "SplitWarning"
	default:
		return "Warning"
	}
}

// ParseLevel converts a level name into a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log-level", "must be one of debug, info, warn, error", level)
	}
}
