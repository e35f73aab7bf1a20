// Package logging builds the application's *slog.Logger.
//
// The JSON format writes one machine-readable object per line for log
// aggregators. The console format renders through charmbracelet/log for
// local development. Either can be teed into a rotating file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level  string    // debug, info, warn or error; anything else means info
	Format string    // "json" or "console"
	File   string    // optional rotating log file path
	Out    io.Writer // defaults to os.Stdout
}

// New returns a logger for opts and a Closer that releases the log file.
// The Closer is safe to call when no file was configured.
func New(opts Options) (*slog.Logger, io.Closer) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = io.MultiWriter(out, file)
		closer = file
	}

	level := ParseLevel(opts.Level)

	if opts.Format == "console" {
		h := charmlog.NewWithOptions(out, charmlog.Options{
			ReportTimestamp: true,
			Level:           charmLevel(level),
			Prefix:          "itinerary",
		})
		return slog.New(h), closer
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})), closer
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func charmLevel(l slog.Level) charmlog.Level {
	switch {
	case l <= slog.LevelDebug:
		return charmlog.DebugLevel
	case l <= slog.LevelInfo:
		return charmlog.InfoLevel
	case l <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
