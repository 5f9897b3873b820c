// Package logging carries the minimal structured logging contract used by
// the upgo transports and registry. It bridges in both directions between
// ServiceLogger and Watermill's LoggerAdapter so substrates and callers can
// share one logger.
package logging

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
)

// LogFields represents structured logging key/value pairs.
type LogFields map[string]any

// ServiceLogger is the logging contract required by upgo components.
// Applications can adapt their existing loggers without depending on slog.
type ServiceLogger interface {
	With(fields LogFields) ServiceLogger
	Debug(msg string, fields LogFields)
	Info(msg string, fields LogFields)
	Error(msg string, err error, fields LogFields)
	Trace(msg string, fields LogFields)
}

var logLevelMapping = map[slog.Level]slog.Level{
	slog.LevelDebug: slog.LevelDebug,
	slog.LevelInfo:  slog.LevelInfo,
	slog.LevelWarn:  slog.LevelWarn,
	slog.LevelError: slog.LevelError,
}

// NewSlogServiceLogger wraps a slog.Logger so it satisfies ServiceLogger.
func NewSlogServiceLogger(log *slog.Logger) ServiceLogger {
	if log == nil {
		panic("upgo: slog logger cannot be nil")
	}
	return NewWatermillServiceLogger(watermill.NewSlogLoggerWithLevelMapping(log, logLevelMapping))
}

// NewWatermillServiceLogger wraps an existing Watermill LoggerAdapter.
func NewWatermillServiceLogger(logger watermill.LoggerAdapter) ServiceLogger {
	if logger == nil {
		panic("upgo: watermill logger cannot be nil")
	}
	return &watermillServiceLogger{inner: logger}
}

// Nop returns a ServiceLogger that discards everything.
func Nop() ServiceLogger {
	return &watermillServiceLogger{inner: watermill.NopLogger{}}
}

// ToWatermill adapts a ServiceLogger for substrate constructors, which take
// the Watermill adapter directly. Wrapping a logger that itself wraps a
// Watermill adapter returns the original adapter.
func ToWatermill(logger ServiceLogger) watermill.LoggerAdapter {
	if logger == nil {
		return watermill.NopLogger{}
	}
	if wsl, ok := logger.(*watermillServiceLogger); ok {
		return wsl.inner
	}
	return &serviceLoggerAdapter{inner: logger}
}

type watermillServiceLogger struct {
	inner watermill.LoggerAdapter
}

func (w *watermillServiceLogger) With(fields LogFields) ServiceLogger {
	return &watermillServiceLogger{inner: w.inner.With(toWatermillFields(fields))}
}

func (w *watermillServiceLogger) Debug(msg string, fields LogFields) {
	w.inner.Debug(msg, toWatermillFields(fields))
}

func (w *watermillServiceLogger) Info(msg string, fields LogFields) {
	w.inner.Info(msg, toWatermillFields(fields))
}

func (w *watermillServiceLogger) Error(msg string, err error, fields LogFields) {
	w.inner.Error(msg, err, toWatermillFields(fields))
}

func (w *watermillServiceLogger) Trace(msg string, fields LogFields) {
	w.inner.Trace(msg, toWatermillFields(fields))
}

type serviceLoggerAdapter struct {
	inner ServiceLogger
}

func (a *serviceLoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.inner.Error(msg, err, fromWatermillFields(fields))
}

func (a *serviceLoggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.inner.Info(msg, fromWatermillFields(fields))
}

func (a *serviceLoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.inner.Debug(msg, fromWatermillFields(fields))
}

func (a *serviceLoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.inner.Trace(msg, fromWatermillFields(fields))
}

func (a *serviceLoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &serviceLoggerAdapter{inner: a.inner.With(fromWatermillFields(fields))}
}

func toWatermillFields(fields LogFields) watermill.LogFields {
	if len(fields) == 0 {
		return nil
	}
	out := make(watermill.LogFields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func fromWatermillFields(fields watermill.LogFields) LogFields {
	if len(fields) == 0 {
		return nil
	}
	out := make(LogFields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
