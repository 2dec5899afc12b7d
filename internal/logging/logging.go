package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chat-widget/internal/config"

	"github.com/rs/zerolog"
)

// New builds a logger writing to w at the configured level.
func New(cfg config.Log, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Open is New with the destination taken from cfg.File. An empty path means
// stderr. The returned close func is never nil.
func Open(cfg config.Log) (zerolog.Logger, func() error, error) {
	if cfg.File == "" {
		return New(cfg, os.Stderr), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return zerolog.Nop(), func() error { return nil }, err
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), func() error { return nil }, err
	}
	return New(cfg, f), f.Close, nil
}
