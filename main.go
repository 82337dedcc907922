package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Readm/axilite_sim/hooks"
	"github.com/Readm/axilite_sim/logging"
	"github.com/Readm/axilite_sim/simulator"
)

const exitConfig = 3

// cliFlags holds the parsed command line. Only flags present in set override
// the configuration, so zero values can be chosen explicitly.
type cliFlags struct {
	configPath  string
	listPlugins bool

	test     string
	reps     int
	seed     int64
	timeout  time.Duration
	logLevel string

	set map[string]bool
}

func parseFlags(args []string, out io.Writer) (cliFlags, error) {
	var f cliFlags
	fs := flag.NewFlagSet("axilite_sim", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&f.configPath, "config", "", "TOML configuration file")
	fs.BoolVar(&f.listPlugins, "list-plugins", false, "List the plugins that can be enabled and exit")
	fs.StringVar(&f.test, "test", "", "Test to run: 'fixed' or 'random'")
	fs.IntVar(&f.reps, "reps", 0, "Write/read pairs for the random test")
	fs.Int64Var(&f.seed, "seed", 0, "Random seed")
	fs.DurationVar(&f.timeout, "timeout", 0, "Wall-clock limit for the run")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	f.set = make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

func (f cliFlags) apply(cfg *Config) {
	if f.set["test"] {
		cfg.Test = f.test
	}
	if f.set["reps"] {
		cfg.Repetitions = f.reps
	}
	if f.set["seed"] {
		cfg.Seed = f.seed
	}
	if f.set["timeout"] {
		cfg.Timeout = f.timeout
	}
	if f.set["log-level"] {
		cfg.LogLevel = f.logLevel
	}
}

func main() {
	logging.ConfigureRuntime()
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run parses flags, loads the configuration, executes one test and returns
// the process exit code: 0 pass, 1 fail, 2 timeout, 3 configuration error.
func run(args []string, out io.Writer) int {
	log := logging.For("main")

	flags, err := parseFlags(args, out)
	if err != nil {
		return exitConfig
	}
	if flags.listPlugins {
		if err := listPlugins(out); err != nil {
			log.Error().Err(err).Msg("plugin catalog unavailable")
			return exitConfig
		}
		return 0
	}

	cfg := DefaultConfig()
	if flags.configPath != "" {
		loaded, err := loadConfig(flags.configPath)
		if err != nil {
			log.Error().Err(err).Msg("configuration rejected")
			return exitConfig
		}
		cfg = loaded
	}
	flags.apply(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		log.Error().Err(err).Msg("configuration rejected")
		return exitConfig
	}
	if level, ok := logging.ParseLevel(cfg.LogLevel); ok && os.Getenv(logging.EnvLogLevel) == "" {
		logging.SetLevel(level)
		log = logging.For("main")
	}

	opts, err := envOptions(cfg)
	if err != nil {
		log.Error().Err(err).Msg("configuration rejected")
		return exitConfig
	}
	env, err := simulator.NewEnv(opts)
	if err != nil {
		log.Error().Err(err).Msg("environment setup failed")
		return exitConfig
	}

	ctx, cancel := runContext(cfg.Timeout)
	defer cancel()
	start := time.Now()
	res, err := env.Run(ctx)
	if err != nil {
		if errors.Is(err, simulator.ErrTimeout) {
			log.Error().Err(err).Dur("timeout", cfg.Timeout).Msg("run timed out")
		} else {
			log.Error().Err(err).Msg("run failed")
		}
	}
	log.Debug().Dur("elapsed", time.Since(start)).Msg("run complete")

	PrintSummary(out, res)
	fmt.Fprintln(out)
	return res.Outcome.ExitCode()
}

// runContext bounds the run by timeout; zero leaves only the cycle watchdog.
func runContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

func listPlugins(out io.Writer) error {
	reg := hooks.NewRegistry(nil)
	if err := hooks.RegisterBuiltins(reg); err != nil {
		return err
	}
	for _, name := range reg.Names() {
		desc, _ := reg.Descriptor(name)
		fmt.Fprintf(out, "%-16s %-16s %s\n", name, desc.Category, desc.Description)
	}
	return nil
}
