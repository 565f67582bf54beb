// Package logger provides a small component-tagged logging facade used
// across the gateway, transports, and control plane. It is backed by zap
// so log output stays structured when fields are attached.
package logger

import (
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors zap's levels for callers that only need the facade.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	atom = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base = newBase()
)

func newBase() *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		atom,
	)
	return zap.New(core)
}

// SetLevel adjusts the global log level.
func SetLevel(l Level) {
	switch l {
	case DEBUG:
		atom.SetLevel(zapcore.DebugLevel)
	case INFO:
		atom.SetLevel(zapcore.InfoLevel)
	case WARN:
		atom.SetLevel(zapcore.WarnLevel)
	case ERROR:
		atom.SetLevel(zapcore.ErrorLevel)
	}
}

func fields(component string, extra map[string]any) []zap.Field {
	fs := make([]zap.Field, 0, len(extra)+1)
	fs = append(fs, zap.String("component", component))
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fs = append(fs, zap.Any(k, extra[k]))
	}
	return fs
}

// DebugC logs a debug message tagged with a component.
func DebugC(component, msg string) { base.Debug(msg, fields(component, nil)...) }

// DebugCF logs a debug message with additional structured fields.
func DebugCF(component, msg string, f map[string]any) { base.Debug(msg, fields(component, f)...) }

// InfoC logs an info message tagged with a component.
func InfoC(component, msg string) { base.Info(msg, fields(component, nil)...) }

// InfoCF logs an info message with additional structured fields.
func InfoCF(component, msg string, f map[string]any) { base.Info(msg, fields(component, f)...) }

// WarnC logs a warning tagged with a component.
func WarnC(component, msg string) { base.Warn(msg, fields(component, nil)...) }

// WarnCF logs a warning with additional structured fields.
func WarnCF(component, msg string, f map[string]any) { base.Warn(msg, fields(component, f)...) }

// ErrorC logs an error message tagged with a component.
func ErrorC(component, msg string) { base.Error(msg, fields(component, nil)...) }

// ErrorCF logs an error message with additional structured fields.
func ErrorCF(component, msg string, f map[string]any) { base.Error(msg, fields(component, f)...) }
