// Package logging builds the zap loggers used by the fabricctl command.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// FormatConsole writes human-readable development output.
	FormatConsole = "console"

	// FormatJSON writes structured production output.
	FormatJSON = "json"
)

// New builds a logger writing to stderr.
func New(format, level string) (*zap.Logger, error) {
	return NewWithWriter(format, level, zapcore.Lock(os.Stderr))
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(format, level string, w zapcore.WriteSyncer) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var encoder zapcore.Encoder
	switch format {
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case FormatConsole, "":
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	default:
		return nil, fmt.Errorf("invalid log format %q: want %q or %q", format, FormatConsole, FormatJSON)
	}

	core := zapcore.NewCore(encoder, w, lvl)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// Install makes l the global logger and returns a function restoring the
// previous one.
func Install(l *zap.Logger) func() {
	return zap.ReplaceGlobals(l)
}
