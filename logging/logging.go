// Package logging owns the process-wide zerolog logger and hands out
// component-scoped children.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "AXISIM_LOG_LEVEL"
	EnvLogTimestamp = "AXISIM_LOG_TIMESTAMP"
	EnvLogNoColor   = "AXISIM_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config controls how the root logger is built.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	Out       io.Writer
}

var (
	mu            sync.RWMutex
	root          = zerolog.New(io.Discard)
	configureOnce sync.Once
)

// Configure builds the root logger for the profile once per process.
// Environment overrides win over the profile defaults.
func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := DefaultConfig(profile)
		applyEnvOverrides(&cfg)
		SetLogger(New(cfg))
	})
}

func ConfigureRuntime() { Configure(ProfileRuntime) }

func ConfigureTests() { Configure(ProfileTest) }

// DefaultConfig returns the settings of a profile.
func DefaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.WarnLevel, NoColor: true, Out: os.Stderr}
	default:
		return Config{Level: zerolog.InfoLevel, Timestamp: true, Out: os.Stderr}
	}
}

// New builds a console logger from cfg.
func New(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	writer := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    cfg.NoColor,
		TimeFormat: time.RFC3339,
	}
	if !cfg.Timestamp {
		writer.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	return zerolog.New(writer).Level(cfg.Level).With().Timestamp().Logger()
}

// Logger returns the root logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// SetLogger replaces the root logger (primarily for tests and main).
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	root = l
	mu.Unlock()
}

// SetLevel adjusts the level of the root logger.
func SetLevel(level zerolog.Level) {
	mu.Lock()
	root = root.Level(level)
	mu.Unlock()
}

// For returns a child of the root logger tagged with the component name.
func For(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

// ParseLevel maps a user supplied level name onto a zerolog level.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
