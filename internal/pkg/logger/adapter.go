package logger

import "brokerage_tracker/internal/app/port"

// slogAdapter implements port.Logger on top of the package level functions,
// which write through the slog default installed by New.
type slogAdapter struct{}

// NewSlogAdapter returns a port.Logger backed by slog.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

func (a *slogAdapter) Debug(msg string, args ...any) { Debug(msg, args...) }

func (a *slogAdapter) Info(msg string, args ...any) { Info(msg, args...) }

func (a *slogAdapter) Warn(msg string, args ...any) { Warn(msg, args...) }

func (a *slogAdapter) Error(msg string, args ...any) { Error(msg, args...) }

// nopLogger discards everything.
type nopLogger struct{}

// NewNop returns a port.Logger that drops all messages.
func NewNop() port.Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
