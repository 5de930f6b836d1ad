// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls log output.
type Config struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string

	// Format is "console" for human output or "json". Default: console.
	Format string

	// Output overrides the destination. Default: stderr.
	Output io.Writer
}

var (
	mu     sync.RWMutex
	Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Init replaces the global logger.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if !strings.EqualFold(cfg.Format, "json") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(out).With().Timestamp().Logger().Level(ParseLevel(cfg.Level))

	mu.Lock()
	Logger = logger
	mu.Unlock()
}

// ParseLevel converts a level name, falling back to info.
func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return Logger.With().Str("component", name).Logger()
}

// Disable silences all logging; tests use it to keep output clean.
func Disable() {
	mu.Lock()
	Logger = zerolog.Nop()
	mu.Unlock()
}
