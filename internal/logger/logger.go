// Package logger provides leveled logging for lexroute.
// Warnings and errors are always written; debug and info messages
// (and section headers) only appear when verbose mode is enabled via
// the --verbose flag, to help users follow the ingestion and routing
// pipeline.
package logger

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	sugar             = newLogger(false, os.Stderr).Sugar()
)

// newLogger builds a console zap logger writing to w.
func newLogger(debug bool, w io.Writer) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zap.WarnLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	)
	return zap.New(core)
}

// rebuild swaps the active logger. Callers must hold mu.
func rebuild() {
	_ = sugar.Sync()
	sugar = newLogger(verbose, output).Sugar()
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	rebuild()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// L returns the underlying zap logger for callers that want structured fields.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar.Desugar()
}

// Debug logs a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Debugf(format, args...)
}

// Section logs a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Infof("=== %s ===", name)
}

// Info logs an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Infof(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Warnf(format, args...)
}

// Error logs an error message.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	sugar.Errorf(format, args...)
}
