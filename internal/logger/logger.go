// Package logger builds the process-wide slog logger on a zerolog backend.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	slogmulti "github.com/samber/slog-multi"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

type Opts struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	File   string // optional, always JSON
}

// New returns a logger writing to stderr, and to File when set. The closer
// releases the file and is never nil.
func New(opts Opts) (*slog.Logger, io.Closer, error) {
	level := ParseLevel(opts.Level)

	var out io.Writer = os.Stderr
	if !strings.EqualFold(opts.Format, "json") {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	handler := handlerFor(out, level)

	if opts.File == "" {
		return slog.New(handler), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.New(slogmulti.Fanout(handler, handlerFor(f, level))), f, nil
}

// NewWriter returns a JSON logger on w, used by tests.
func NewWriter(w io.Writer, level string) *slog.Logger {
	return slog.New(handlerFor(w, ParseLevel(level)))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel maps a level name to slog, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerFor(w io.Writer, level slog.Level) slog.Handler {
	zl := zerolog.New(w).With().Timestamp().Logger()
	return slogzerolog.Option{Level: level, Logger: &zl}.NewZerologHandler()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
