package main

import (
	"errors"
	"fmt"

	"github.com/Readm/axilite_sim/core"
	"github.com/Readm/axilite_sim/logging"
	"github.com/Readm/axilite_sim/sequence"
	"github.com/Readm/axilite_sim/simulator"
)

// ValidateConfig applies structural checks to Config and populates defaults where required.
// A zero timeout disables the wall-clock limit; the cycle watchdog still applies.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch cfg.Test {
	case sequence.NameFixed, sequence.NameRandom:
	case "":
		cfg.Test = sequence.NameFixed
	default:
		return fmt.Errorf("test must be %q or %q, got %q", sequence.NameFixed, sequence.NameRandom, cfg.Test)
	}

	if cfg.Test == sequence.NameRandom && cfg.Repetitions <= 0 {
		return fmt.Errorf("repetitions must be positive, got %d", cfg.Repetitions)
	}
	if err := (sequence.Range{Min: cfg.AddrMin, Max: cfg.AddrMax}).Validate(); err != nil {
		return fmt.Errorf("address window: %w", err)
	}
	if cfg.MaxDelay < 0 || cfg.MaxDelay > core.MaxPreDelay {
		return fmt.Errorf("max_delay must be within [0,%d], got %d", core.MaxPreDelay, cfg.MaxDelay)
	}
	if cfg.ResetCycles < 0 {
		return fmt.Errorf("reset_cycles must be non-negative, got %d", cfg.ResetCycles)
	}
	if cfg.ResponseStall < 0 {
		return fmt.Errorf("response_stall must be non-negative, got %d", cfg.ResponseStall)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %s", cfg.Timeout)
	}
	if cfg.MaxCycles < 0 {
		return fmt.Errorf("max_cycles must be non-negative, got %d", cfg.MaxCycles)
	}
	if cfg.LogLevel != "" {
		if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
			return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
		}
	}

	if cfg.MaxCycles == 0 {
		cfg.MaxCycles = simulator.DefaultMaxCycles
	}

	return nil
}
