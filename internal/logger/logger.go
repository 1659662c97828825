// Package logger builds the process-wide slog.Logger.
//
// Records go to stdout, or to a size-rotated file when a path is given.
// When a Sentry DSN is configured, warnings and errors are also forwarded
// to Sentry.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level  slog.Level
	Format string // "json" (default) or "text"

	// File enables rotating file output instead of stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int

	SentryDSN         string
	SentryEnvironment string
	Release           string
}

// New creates the system logger. The returned closer flushes Sentry and
// closes the log file; it is safe to call when neither is in use.
func New(opts Options) (*slog.Logger, func() error, error) {
	var w io.Writer = os.Stdout
	closers := []func() error{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0750); err != nil {
			return nil, nil, fmt.Errorf("creating log directory for %q: %w", opts.File, err)
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			Compress:   true,
		}
		w = lj
		closers = append(closers, lj.Close)
	}

	handler := newHandler(w, opts.Format, opts.Level)

	if opts.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         opts.SentryDSN,
			Environment: opts.SentryEnvironment,
			Release:     opts.Release,
			EnableLogs:  true,
		}); err != nil {
			// Fall back to local output only.
			slog.New(handler).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		} else {
			sentryHandler := sentryslog.Option{
				EventLevel: []slog.Level{slog.LevelError},
				LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
			}.NewSentryHandler(context.Background())
			handler = newMultiHandler(handler, sentryHandler)
			closers = append(closers, func() error {
				sentry.Flush(sentryFlushTimeout)
				return nil
			})
		}
	}

	closeFn := func() error {
		var firstErr error
		for _, c := range closers {
			if err := c(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return slog.New(handler), closeFn, nil
}

// Discard returns a logger that drops every record. Used in tests and by
// components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	ho := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, ho)
	}
	return slog.NewJSONHandler(w, ho)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
