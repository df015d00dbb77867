// Package logging provides structured logging using bolt.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
)

var (
	defaultLogger *bolt.Logger
	once          sync.Once
)

// Config configures the logger.
type Config struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level"`

	// Format is the output format (json or console).
	Format string `yaml:"format"`

	Output io.Writer `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stdout,
	}
}

func parseLevel(s string) bolt.Level {
	switch strings.ToLower(s) {
	case "trace":
		return bolt.TRACE
	case "debug":
		return bolt.DEBUG
	case "warn":
		return bolt.WARN
	case "error":
		return bolt.ERROR
	default:
		return bolt.INFO
	}
}

// New builds a logger without touching the package default.
func New(config Config) *bolt.Logger {
	output := config.Output
	if output == nil {
		output = os.Stdout
	}

	var handler bolt.Handler
	if config.Format == "console" {
		handler = bolt.NewConsoleHandler(output)
	} else {
		handler = bolt.NewJSONHandler(output)
	}
	return bolt.New(handler).SetLevel(parseLevel(config.Level))
}

// Init sets the default logger. Only the first call has an effect.
func Init(config Config) {
	once.Do(func() {
		defaultLogger = New(config)
	})
}

// Get returns the default logger, initializing if necessary.
func Get() *bolt.Logger {
	Init(DefaultConfig())
	return defaultLogger
}

// Discard is a logger that drops everything. Useful in tests.
func Discard() *bolt.Logger {
	return New(Config{Level: "error", Output: io.Discard})
}

// LogEvent lets Fields be applied to a bolt.Event.
type LogEvent struct {
	event *bolt.Event
}

func With(e *bolt.Event, fields ...Field) *LogEvent {
	l := &LogEvent{event: e}
	for _, f := range fields {
		l.event = f(l.event)
	}
	return l
}

func (l *LogEvent) Add(f Field) *LogEvent {
	l.event = f(l.event)
	return l
}

func (l *LogEvent) Msg(msg string) {
	l.event.Msg(msg)
}
