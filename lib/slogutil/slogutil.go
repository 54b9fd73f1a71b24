package slogutil

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	// Verbose lowers the console level from WARN to DEBUG.
	Verbose bool
	// Console defaults to stderr.
	Console io.Writer
	// LogFile receives every record at DEBUG as JSON, empty disables it.
	LogFile    string
	MaxSizeMB  int
	MaxBackups int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger writing to the console and optionally to a rotating log file.
// The returned closer releases the log file.
func New(opts Options) (*slog.Logger, io.Closer) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handlers := Fanout{
		tint.NewHandler(console, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	}
	if opts.LogFile == "" {
		return slog.New(handlers), nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   opts.LogFile,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}
	handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return slog.New(handlers), file
}
