package prestart

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loykin/initup/internal/config"
	"github.com/loykin/initup/internal/journal"
	"github.com/loykin/initup/internal/metrics"
	"github.com/loykin/initup/internal/probe"
	"github.com/loykin/initup/internal/process"
)

const (
	workloadName    = "primary"
	defaultKillWait = 2 * time.Second
)

// Coordinator prestarts the primary workload in the background so a control
// client can attach over the loopback port before the foreground handoff.
// It owns the system's only rollback path: a control-port timeout kills the
// prestarted primary (and only it) before the failure propagates.
type Coordinator struct {
	Starter process.Starter
	Prober  *probe.Prober
	Journal *journal.Journal
	Logger  *slog.Logger

	// Locate overrides the legacy toolchain lookup in tests.
	Locate func() (string, error)
	// KillWait bounds the post-kill wait during rollback.
	KillWait time.Duration
}

func New(starter process.Starter, prober *probe.Prober, jrnl *journal.Journal, log *slog.Logger) *Coordinator {
	return &Coordinator{Starter: starter, Prober: prober, Journal: jrnl, Logger: log}
}

// Run is a no-op unless the plan selects a background mode. On success the
// prestarted process keeps running and the later handoff command is
// expected to attach to it, never to start a second server instance.
func (c *Coordinator) Run(ctx context.Context, p config.Primary, st *process.RuntimeState) error {
	if p.Mode == config.ModeNone {
		return nil
	}

	spec := process.Spec{Name: workloadName, Command: p.PrestartCommand}
	if p.Mode == config.ModeLegacy {
		locate := c.Locate
		if locate == nil {
			locate = func() (string, error) {
				return LocateToolchain(CanonicalInterpreter, VersionedInstallRoot)
			}
		}
		interp, err := locate()
		if err != nil {
			metrics.IncFailure("prestart")
			return err
		}
		c.Logger.Info("legacy interpreter selected", "path", interp)
		// The child's own build/launch step picks the interpreter up from
		// PYTHON.
		spec.Env = append(spec.Env, "PYTHON="+interp)
	}

	h, err := c.Starter.Start(spec)
	if err != nil {
		metrics.IncFailure("prestart")
		return fmt.Errorf("prestart (%s): %w", p.Mode, err)
	}
	st.SetPrestarted(h)
	metrics.IncSpawn("primary")
	c.Logger.Info("primary workload prestarted", "mode", p.Mode.String(), "pid", h.PID())
	_ = c.Journal.Record(ctx, journal.Event{
		Stage: "prestart", Name: workloadName, PID: h.PID(), Status: "started",
		Detail: p.Mode.String(),
	})

	attempts := int(p.Timeout / config.ProbeInterval)
	if attempts < 1 {
		attempts = 1
	}
	check := probe.Check{Host: p.ControlHost, Port: p.ControlPort, Attempts: attempts, Interval: config.ProbeInterval}
	c.Logger.Info("waiting for control port", "addr", check.Addr(), "timeout", p.Timeout)
	ok, used := c.Prober.WaitN(check)
	metrics.AddProbeAttempts(workloadName, used)
	if !ok {
		// Rollback is scoped strictly to the prestarted primary; dependency
		// services stay up for the container teardown to reap.
		killWait := c.KillWait
		if killWait <= 0 {
			killWait = defaultKillWait
		}
		pid := h.PID()
		if err := h.Kill(killWait); err != nil {
			c.Logger.Warn("rollback kill not confirmed", "pid", pid, "error", err)
		}
		st.ClearPrestarted()
		metrics.IncFailure("prestart")
		_ = c.Journal.Record(ctx, journal.Event{
			Stage: "prestart", Name: workloadName, PID: pid, Status: "killed",
			Detail: check.Addr(),
		})
		return &probe.ReadinessError{Name: workloadName, Addr: check.Addr(), Attempts: attempts}
	}
	metrics.IncReady(workloadName)
	c.Logger.Info("control port ready", "addr", check.Addr(), "attempts", used)
	_ = c.Journal.Record(ctx, journal.Event{
		Stage: "prestart", Name: workloadName, PID: h.PID(), Status: "ready",
		Detail: check.Addr(),
	})
	return nil
}
