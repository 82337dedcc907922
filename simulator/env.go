// Package simulator wires the bus, the verification components and the clock
// into one runnable environment.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Readm/axilite_sim/bus"
	"github.com/Readm/axilite_sim/core"
	"github.com/Readm/axilite_sim/hooks"
	"github.com/Readm/axilite_sim/logging"
	"github.com/Readm/axilite_sim/master"
	"github.com/Readm/axilite_sim/monitor"
	"github.com/Readm/axilite_sim/scoreboard"
	"github.com/Readm/axilite_sim/sequence"
	"github.com/Readm/axilite_sim/slave"
	"github.com/Readm/axilite_sim/store"
)

// ErrTimeout is returned when the watchdog ends a run before the driver finished.
var ErrTimeout = errors.New("simulation timed out")

const (
	DefaultResetCycles = 5
	DefaultMaxCycles   = 1_000_000
)

const (
	procReset   = "reset"
	procSlave   = "slave"
	procDriver  = "driver"
	procMonitor = "monitor"
)

// Options configure an environment.
type Options struct {
	Generator   sequence.Generator
	Seed        int64
	ResetCycles int
	// MaxCycles bounds the run in clock edges. Zero selects DefaultMaxCycles.
	MaxCycles int
	Sentinel  uint32
	CheckData bool
	Plugins   []string

	// CrossCheck compares every driver completion with the monitor's record.
	CrossCheck bool
	// ResponseStall holds BREADY/RREADY low for this many edges per response.
	ResponseStall int

	ResponsePolicy slave.ResponsePolicy
	ReadyPolicy    slave.ReadyPolicy
}

// DefaultOptions returns options for the fixed write/read test.
func DefaultOptions() Options {
	return Options{
		Generator:   sequence.NewFixed(),
		Seed:        1,
		ResetCycles: DefaultResetCycles,
		MaxCycles:   DefaultMaxCycles,
		Sentinel:    core.DefaultSentinel,
	}
}

// Env owns one bus with its master, slave, monitor and scoreboard.
type Env struct {
	opts Options
	log  zerolog.Logger

	bus   *bus.Bus
	clock *bus.Clock
	store *store.MapStore

	registry   *hooks.Registry
	slave      *slave.Responder
	driver     *master.Driver
	monitor    *monitor.Monitor
	scoreboard *scoreboard.Scoreboard
	sequencer  *sequence.Sequencer

	procs map[string]*bus.Process
	ran   bool
}

// NewEnv builds and links every component. Nothing runs until Run.
func NewEnv(opts Options) (*Env, error) {
	if opts.Generator == nil {
		return nil, errors.New("simulator: no sequence selected")
	}
	if opts.ResponseStall < 0 {
		return nil, fmt.Errorf("simulator: response stall must not be negative, got %d", opts.ResponseStall)
	}
	if opts.ResetCycles < 0 {
		return nil, fmt.Errorf("simulator: reset cycles must not be negative, got %d", opts.ResetCycles)
	}
	if opts.MaxCycles <= 0 {
		opts.MaxCycles = DefaultMaxCycles
	}

	e := &Env{
		opts:  opts,
		log:   logging.For("env"),
		bus:   bus.New(),
		store: store.NewMapStore(opts.Sentinel),
		procs: make(map[string]*bus.Process),
	}
	e.clock = bus.NewClock(e.bus)
	e.clock.SetMaxCycle(opts.MaxCycles)

	e.registry = hooks.NewRegistry(nil)
	if err := hooks.RegisterBuiltins(e.registry); err != nil {
		return nil, err
	}
	broker := e.registry.Broker()

	var sbOpts []scoreboard.Option
	if opts.CheckData {
		sbOpts = append(sbOpts, scoreboard.WithDataCheck(e.store.Sentinel()))
	}
	if opts.CrossCheck {
		sbOpts = append(sbOpts, scoreboard.WithCrossCheck())
	}
	e.scoreboard = scoreboard.New(sbOpts...)
	e.scoreboard.Register(broker)
	if err := e.registry.Load(opts.Plugins); err != nil {
		return nil, err
	}

	var slaveOpts []slave.Option
	if opts.ResponsePolicy != nil {
		slaveOpts = append(slaveOpts, slave.WithResponsePolicy(opts.ResponsePolicy))
	}
	if opts.ReadyPolicy != nil {
		slaveOpts = append(slaveOpts, slave.WithReadyPolicy(opts.ReadyPolicy))
	}
	var err error
	if e.slave, err = slave.New(e.bus.Slave(), e.store, slaveOpts...); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	if e.sequencer, err = sequence.NewSequencer(opts.Generator, rng); err != nil {
		return nil, err
	}
	if e.driver, err = master.New(e.bus.Master(), e.sequencer,
		master.WithBroker(broker), master.WithResponseStall(opts.ResponseStall)); err != nil {
		return nil, err
	}
	if e.monitor, err = monitor.New(broker); err != nil {
		return nil, err
	}

	for _, name := range []string{procReset, procSlave, procDriver, procMonitor} {
		p, err := e.clock.Join(name)
		if err != nil {
			return nil, err
		}
		e.procs[name] = p
	}

	e.clock.OnEdge(func(cycle int, s bus.Signals) {
		if !broker.HasHandshakeHooks() {
			return
		}
		for _, ch := range s.Transfers() {
			if err := broker.EmitHandshake(&hooks.HandshakeContext{Cycle: cycle, Channel: ch, Signals: s}); err != nil {
				e.log.Warn().Err(err).Int("cycle", cycle).Stringer("chan", ch).Msg("handshake hook failed")
			}
		}
	})
	return e, nil
}

// Broker exposes the event broker so callers can attach extra hooks before Run.
func (e *Env) Broker() *hooks.PluginBroker { return e.registry.Broker() }

// Store returns the slave's backing memory.
func (e *Env) Store() *store.MapStore { return e.store }

// Run holds reset for the configured edges, then drives the whole sequence.
// The run ends when the driver is done, the context expires or the clock hits
// its edge limit. The last two yield OutcomeTimeout and an ErrTimeout error.
func (e *Env) Run(ctx context.Context) (Result, error) {
	res := Result{Test: e.opts.Generator.Name(), Seed: e.opts.Seed}
	if e.ran {
		return res, errors.New("simulator: environment already ran")
	}
	e.ran = true

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, e.clock.Stop)
	defer stop()

	e.log.Info().Str("test", res.Test).Int("reset_cycles", e.opts.ResetCycles).
		Int64("seed", e.opts.Seed).Msg("run started")

	g.Go(func() error {
		p := e.procs[procReset]
		defer p.Leave()
		if err := p.Wait(e.opts.ResetCycles); err != nil {
			return ignoreStopped(err)
		}
		e.bus.SetReset(false)
		e.log.Debug().Int("cycle", p.Cycle()).Msg("reset released")
		return nil
	})
	g.Go(func() error {
		return ignoreStopped(e.slave.Run(e.procs[procSlave]))
	})
	g.Go(func() error {
		return ignoreStopped(e.monitor.Run(e.procs[procMonitor]))
	})

	driverDone := false
	g.Go(func() error {
		err := e.driver.Run(e.procs[procDriver])
		if err == nil {
			driverDone = true
			e.clock.Stop()
		}
		return ignoreStopped(err)
	})

	err := g.Wait()

	res.Driven = e.sequencer.Responses()
	res.Observed = e.monitor.Observed()
	res.Aborted = e.monitor.Aborted()
	res.Cycles = e.clock.Cycle()
	res.Slave = e.slave.SnapshotStats()
	res.StoredWords = e.store.Len()
	res.Summary = e.scoreboard.Report()

	switch {
	case driverDone && err == nil:
		res.Outcome = OutcomeFail
		if res.Summary.Passed() {
			res.Outcome = OutcomePass
		}
		e.log.Info().Str("outcome", string(res.Outcome)).Int("cycles", res.Cycles).Msg("run finished")
		return res, nil
	case errors.Is(err, bus.ErrCycleLimit) || (err == nil && ctx.Err() != nil):
		res.Outcome = OutcomeTimeout
		cause := err
		if cause == nil {
			cause = ctx.Err()
		}
		cycle, limit, progress := e.clock.SnapshotProgress()
		e.log.Error().Int("cycle", cycle).Int("max_cycles", limit).
			Interface("progress", progress).Msg("watchdog expired")
		return res, fmt.Errorf("%w at cycle %d (limit %d, progress %v): %v", ErrTimeout, cycle, limit, progress, cause)
	default:
		res.Outcome = OutcomeFail
		if err == nil {
			err = errors.New("simulator: run stopped before the sequence completed")
		}
		return res, err
	}
}

func ignoreStopped(err error) error {
	if errors.Is(err, bus.ErrStopped) {
		return nil
	}
	return err
}
