// Package logging builds the daemon's slog loggers.
//
// Every component gets its own logger tagged with a module attribute:
//
//	logger, _ := logging.New(logging.Config{Level: "info", Format: "text"}, os.Stdout)
//	blinkLog := logging.Module(logger, "blinker")
//	blinkLog.Info("Blinker started", "pattern", "fast")
//
// With Journal set and journald reachable, records are also sent to the
// systemd journal with upper-cased structured fields (MODULE=blinker).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config represents logging configuration.
type Config struct {
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Journal bool   `toml:"journal"`
}

// ParseLevel converts a level name to slog.Level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// Validate checks level and format names.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case FormatText, FormatJSON, "":
		return nil
	}
	return fmt.Errorf("unknown log format %q", c.Format)
}

// New creates a logger writing to w in the configured format.
func New(cfg Config, w io.Writer) (*slog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := ParseLevel(cfg.Level)
	return slog.New(newHandler(cfg, w, level)), nil
}

// Module returns logger tagged with the component name.
func Module(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("module", name)
}

func newHandler(cfg Config, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	if cfg.Journal && IsJournalAvailable() {
		return NewMultiHandler(h, NewJournalHandler(level))
	}
	return h
}
