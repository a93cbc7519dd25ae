// Package logging provides zerolog-based structured logging for all components.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration
type Config struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Output     string `json:"output"`      // "stdout", "stderr", or file path
	JSONFormat bool   `json:"json_format"` // false = human-readable console output
}

var (
	root        zerolog.Logger
	initialized bool
	mu          sync.Mutex
)

// ParseLevel converts a string to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init configures the root logger. Safe to call once at startup.
func Init(cfg *Config) {
	var output io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		output = os.Stderr
	} else if cfg.Output != "" && cfg.Output != "stdout" {
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			output = file
		}
	}

	if !cfg.JSONFormat {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	mu.Lock()
	root = zerolog.New(output).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	initialized = true
	mu.Unlock()
}

// Default returns the root logger, initializing it with defaults if needed.
func Default() zerolog.Logger {
	mu.Lock()
	ready := initialized
	mu.Unlock()
	if !ready {
		Init(&Config{Level: "info", Output: "stdout", JSONFormat: true})
	}
	return root
}

// WithComponent returns a child logger tagged with a component name.
func WithComponent(component string) zerolog.Logger {
	return Default().With().Str("component", component).Logger()
}
