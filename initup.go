package initup

import (
	"context"
	"log/slog"
	"os"

	"github.com/loykin/initup/internal/config"
	"github.com/loykin/initup/internal/handoff"
	"github.com/loykin/initup/internal/journal"
	"github.com/loykin/initup/internal/launcher"
	"github.com/loykin/initup/internal/logger"
	"github.com/loykin/initup/internal/metrics"
	"github.com/loykin/initup/internal/prestart"
	"github.com/loykin/initup/internal/probe"
	"github.com/loykin/initup/internal/process"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Plan = config.Plan

type Spec = process.Spec

type Primary = config.Primary

type Mode = config.Mode

const (
	ModeNone   = config.ModeNone
	ModeServer = config.ModeServer
	ModeLegacy = config.ModeLegacy
)

// Resolve reads the INITUP_* environment into a fully-defaulted, validated
// bring-up plan.
func Resolve() (*Plan, error) { return config.Resolve() }

// RegisterMetrics makes bring-up metrics live on the default registry.
func RegisterMetrics() error { return metrics.Register(prometheus.DefaultRegisterer) }

// Orchestrator executes one bring-up run: ordered dependency launch,
// optional background prestart, terminal handoff. It is single-threaded
// and strictly sequential; concurrency exists only at the OS-process level.
type Orchestrator struct {
	plan    *Plan
	state   *process.RuntimeState
	starter process.Starter
	prober  *probe.Prober
	logger  *slog.Logger
	jrnl    *journal.Journal
	exec    *handoff.Executor
}

func New(plan *Plan) *Orchestrator {
	log := logger.NewStageLogger(os.Stderr, "init")
	return &Orchestrator{
		plan:    plan,
		state:   process.NewRuntimeState(),
		starter: &process.ExecStarter{},
		prober:  probe.New(),
		logger:  log,
		exec:    handoff.New(log),
	}
}

// Hooks for tests and embedding.

func (o *Orchestrator) SetStarter(s process.Starter) { o.starter = s }
func (o *Orchestrator) SetProber(p *probe.Prober)    { o.prober = p }
func (o *Orchestrator) SetExec(fn func(argv0 string, argv []string, envv []string) error) {
	o.exec.ExecFn = fn
}
func (o *Orchestrator) SetLogger(l *slog.Logger) {
	o.logger = l
	o.exec.Logger = l
}

// State exposes the run's process handles, mainly for tests.
func (o *Orchestrator) State() *process.RuntimeState { return o.state }

// Run executes the pipeline. On unix a fully successful run does not
// return: the orchestrator's process image is replaced by the primary
// workload. Any error means the run is over; already-started dependency
// services stay up for the container teardown to reap.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.plan.JournalDSN != "" {
		j, err := journal.Open(o.plan.JournalDSN)
		if err != nil {
			o.logger.Warn("bring-up journal unavailable", "dsn", o.plan.JournalDSN, "error", err)
		} else {
			o.jrnl = j
			defer func() { _ = j.Close() }()
		}
	}

	l := launcher.New(o.starter, o.prober, o.jrnl, o.logger)
	if err := l.Launch(ctx, o.plan.Services, o.state); err != nil {
		return err
	}

	c := prestart.New(o.starter, o.prober, o.jrnl, o.logger)
	if err := c.Run(ctx, o.plan.Primary, o.state); err != nil {
		return err
	}

	if o.plan.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(o.plan.MetricsTextfile); err != nil {
			o.logger.Warn("metrics textfile write failed", "path", o.plan.MetricsTextfile, "error", err)
		}
	}

	_ = o.jrnl.Record(ctx, journal.Event{
		Stage: "handoff", Name: "primary", Status: "handoff",
		Detail: o.plan.Primary.Command,
	})
	return o.exec.Exec(o.plan.Primary.Command, os.Environ())
}
