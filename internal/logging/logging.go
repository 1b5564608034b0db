// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	Level   string // debug, info, warn or error
	Verbose bool   // forces debug level
	File    string // optional rotated log file; stdout is used when empty
	Output  io.Writer
}

// ParseLevel maps a configured level name to a slog level. Unknown names
// fall back to info.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a JSON logger. The returned closer releases the log file, if any.
func New(opts Options) (*slog.Logger, io.Closer) {
	level := ParseLevel(opts.Level)
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var (
		w      io.Writer = opts.Output
		closer io.Closer = nopCloser{}
	)
	if w == nil {
		w = os.Stdout
	}
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		}
		w, closer = lj, lj
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), closer
}

// Setup installs the logger as the slog default.
func Setup(opts Options) io.Closer {
	logger, closer := New(opts)
	slog.SetDefault(logger)
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
