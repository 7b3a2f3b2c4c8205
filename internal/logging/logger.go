// Codex - Hybrid Title Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/codex

// Package logging holds the process-wide zerolog logger for Codex.
//
// Call Init once from main with the values from the logging section of the
// configuration. Until then a JSON logger at info level writes to stderr, so
// packages may log from init paths and tests without setup.
//
//	logging.Init(logging.Config{Level: "debug", Format: "console"})
//	logging.Info().Int("titles", n).Msg("Catalog loaded")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Refresh skipped")
//
// Always finish an event with Msg or Send, otherwise nothing is written.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Config mirrors the logging section of the configuration.
type Config struct {
	// Level is any name ParseLevel accepts. Unknown names log at info.
	Level string

	// Format is json or console.
	Format string

	// Caller adds file:line to every event.
	Caller bool

	// Timestamp adds the time field.
	Timestamp bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// current is replaced wholesale, never mutated, so readers need no lock.
var current atomic.Pointer[zerolog.Logger]

//nolint:gochecknoinits // logging must work before Init is called
func init() {
	Init(Config{Level: os.Getenv("CODEX_LOG_LEVEL"), Timestamp: true})
}

// Init sets the global level and installs a logger built from cfg. Safe to
// call again, e.g. when the config file changes.
func Init(cfg Config) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	Use(New(cfg))
}

// New builds a logger from cfg without installing it.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zc := zerolog.New(out).With()
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return zc.Logger()
}

// Use installs l as the global logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Use(l zerolog.Logger) {
	current.Store(&l)
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	return *current.Load()
}

// levelAliases extends zerolog's level names.
var levelAliases = map[string]zerolog.Level{
	"":        zerolog.InfoLevel,
	"warning": zerolog.WarnLevel,
	"off":     zerolog.Disabled,
}

// ParseLevel maps a configured level name to a zerolog level. It accepts
// zerolog's names plus "warning" and "off"; blank means info.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if level, ok := levelAliases[name]; ok {
		return level, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// WithComponent returns a child logger tagged with a component field.
//
//	fitLogger := logging.WithComponent("fit")
func WithComponent(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

// Debug starts a debug event on the global logger.
func Debug() *zerolog.Event { return current.Load().Debug() }

// Info starts an info event on the global logger.
func Info() *zerolog.Event { return current.Load().Info() }

// Warn starts a warning event on the global logger.
func Warn() *zerolog.Event { return current.Load().Warn() }

// Error starts an error event on the global logger.
func Error() *zerolog.Event { return current.Load().Error() }
