// Package logger provides the supervisor's console logging and its own
// rotating activity log. The managed services write straight to their append
// log files; rotation here covers only what the supervisor itself emits.
package logger

import (
	"io"
	"log/slog"
	"os"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes the supervisor activity log destination.
type Config struct {
	Path       string // empty disables the file log
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Writer returns a rotating writer for the activity log.
func (c Config) Writer() io.WriteCloser {
	if c.Path == "" {
		return nil
	}
	return &lj.Logger{
		Filename:   c.Path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

// New builds the supervisor logger: colored text to stderr for the operator
// plus, when configured, a plain text copy into the rotating activity log.
func New(c Config, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	console := NewColorTextHandler(os.Stderr, opts)
	if w := c.Writer(); w != nil {
		return slog.New(newFanoutHandler(console, slog.NewTextHandler(w, opts)))
	}
	return slog.New(console)
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
