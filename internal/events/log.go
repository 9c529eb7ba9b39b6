package events

import (
	"context"
	"fmt"
	"log/slog"
)

// Log is the append-only, tick-stamped event log of a simulation. Entries are
// mirrored to Logger when one is set.
type Log struct {
	Logger  *slog.Logger
	entries []string
}

// Append records an informational event at the given tick.
func (l *Log) Append(tick int, format string, args ...any) {
	l.append(slog.LevelDebug, tick, fmt.Sprintf(format, args...))
}

// Warn records a degraded-behavior event at the given tick.
func (l *Log) Warn(tick int, format string, args ...any) {
	l.append(slog.LevelWarn, tick, "Warning: "+fmt.Sprintf(format, args...))
}

// Error records a failure at the given tick.
func (l *Log) Error(tick int, format string, args ...any) {
	l.append(slog.LevelError, tick, "Error: "+fmt.Sprintf(format, args...))
}

func (l *Log) append(level slog.Level, tick int, msg string) {
	l.entries = append(l.entries, fmt.Sprintf("[T-%d] %s", tick, msg))
	if l.Logger != nil {
		l.Logger.Log(context.Background(), level, msg, "tick", tick)
	}
}

// Entries returns a copy of the log.
func (l *Log) Entries() []string {
	return append([]string(nil), l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Clone returns an independent log sharing the same logger.
func (l *Log) Clone() *Log {
	return &Log{Logger: l.Logger, entries: l.Entries()}
}

// Tail returns up to n of the most recent entries.
func (l *Log) Tail(n int) []string {
	if n <= 0 || n >= len(l.entries) {
		return l.Entries()
	}
	return append([]string(nil), l.entries[len(l.entries)-n:]...)
}
