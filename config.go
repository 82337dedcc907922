package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Readm/axilite_sim/core"
	"github.com/Readm/axilite_sim/sequence"
	"github.com/Readm/axilite_sim/simulator"
)

const (
	DefaultRepetitions = 5
	DefaultAddrMax     = 0xFF
	DefaultTimeout     = 10 * time.Second
)

// Config holds every run parameter after file and flag overrides.
type Config struct {
	Test           string
	Repetitions    int
	AddrMin        uint32
	AddrMax        uint32
	WriteData      uint32
	RandomizeDelay bool
	MaxDelay       int
	Seed           int64
	ResetCycles    int
	Timeout        time.Duration
	MaxCycles      int
	Sentinel       uint32
	CheckData      bool
	CrossCheck     bool
	ResponseStall  int
	Plugins        []string
	LogLevel       string
}

// DefaultConfig returns the fixed write/read test with the default watchdog.
func DefaultConfig() Config {
	return Config{
		Test:        sequence.NameFixed,
		Repetitions: DefaultRepetitions,
		AddrMin:     0,
		AddrMax:     DefaultAddrMax,
		WriteData:   sequence.RandomData,
		MaxDelay:    core.MaxPreDelay,
		Seed:        1,
		ResetCycles: simulator.DefaultResetCycles,
		Timeout:     DefaultTimeout,
		MaxCycles:   simulator.DefaultMaxCycles,
		Sentinel:    core.DefaultSentinel,
		LogLevel:    "info",
	}
}

type fileConfig struct {
	Test           string   `toml:"test"`
	Repetitions    int      `toml:"repetitions"`
	AddrMin        uint32   `toml:"addr_min"`
	AddrMax        uint32   `toml:"addr_max"`
	WriteData      uint32   `toml:"write_data"`
	RandomizeDelay bool     `toml:"randomize_delay"`
	MaxDelay       int      `toml:"max_delay"`
	Seed           int64    `toml:"seed"`
	ResetCycles    int      `toml:"reset_cycles"`
	Timeout        string   `toml:"timeout"`
	MaxCycles      int      `toml:"max_cycles"`
	Sentinel       uint32   `toml:"sentinel"`
	CheckData      bool     `toml:"check_data"`
	CrossCheck     bool     `toml:"cross_check"`
	ResponseStall  int      `toml:"response_stall"`
	Plugins        []string `toml:"plugins"`
	LogLevel       string   `toml:"log_level"`
}

// loadConfig overlays the keys present in a TOML file onto DefaultConfig.
func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("test") {
		cfg.Test = strings.ToLower(strings.TrimSpace(raw.Test))
	}
	if meta.IsDefined("repetitions") {
		cfg.Repetitions = raw.Repetitions
	}
	if meta.IsDefined("addr_min") {
		cfg.AddrMin = raw.AddrMin
	}
	if meta.IsDefined("addr_max") {
		cfg.AddrMax = raw.AddrMax
	}
	if meta.IsDefined("write_data") {
		cfg.WriteData = raw.WriteData
	}
	if meta.IsDefined("randomize_delay") {
		cfg.RandomizeDelay = raw.RandomizeDelay
	}
	if meta.IsDefined("max_delay") {
		cfg.MaxDelay = raw.MaxDelay
	}
	if meta.IsDefined("seed") {
		cfg.Seed = raw.Seed
	}
	if meta.IsDefined("reset_cycles") {
		cfg.ResetCycles = raw.ResetCycles
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("max_cycles") {
		cfg.MaxCycles = raw.MaxCycles
	}
	if meta.IsDefined("sentinel") {
		cfg.Sentinel = raw.Sentinel
	}
	if meta.IsDefined("check_data") {
		cfg.CheckData = raw.CheckData
	}
	if meta.IsDefined("cross_check") {
		cfg.CrossCheck = raw.CrossCheck
	}
	if meta.IsDefined("response_stall") {
		cfg.ResponseStall = raw.ResponseStall
	}
	if meta.IsDefined("plugins") {
		cfg.Plugins = normalizePlugins(raw.Plugins)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	return cfg, nil
}

func normalizePlugins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, name := range in {
		v := strings.TrimSpace(name)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// envOptions translates a validated config into simulator options.
func envOptions(cfg Config) (simulator.Options, error) {
	gen, err := sequence.ForName(sequence.Params{
		Test:           cfg.Test,
		Repetitions:    cfg.Repetitions,
		Window:         sequence.Range{Min: cfg.AddrMin, Max: cfg.AddrMax},
		RandomizeDelay: cfg.RandomizeDelay,
		MaxDelay:       cfg.MaxDelay,
		Data:           cfg.WriteData,
	})
	if err != nil {
		return simulator.Options{}, err
	}
	return simulator.Options{
		Generator:   gen,
		Seed:        cfg.Seed,
		ResetCycles: cfg.ResetCycles,
		MaxCycles:   cfg.MaxCycles,
		Sentinel:    cfg.Sentinel,
		CheckData:   cfg.CheckData,
		Plugins:     cfg.Plugins,

		CrossCheck:    cfg.CrossCheck,
		ResponseStall: cfg.ResponseStall,
	}, nil
}
