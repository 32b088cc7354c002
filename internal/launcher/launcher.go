package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/loykin/initup/internal/journal"
	"github.com/loykin/initup/internal/metrics"
	"github.com/loykin/initup/internal/probe"
	"github.com/loykin/initup/internal/process"
)

// Launcher brings dependency services up strictly in plan order, gating
// each on its readiness probe before the next may start. Later services are
// allowed to assume earlier ones are already reachable, so the sequencing
// is a hard guarantee.
type Launcher struct {
	Starter process.Starter
	Prober  *probe.Prober
	Journal *journal.Journal
	Logger  *slog.Logger
}

func New(starter process.Starter, prober *probe.Prober, jrnl *journal.Journal, log *slog.Logger) *Launcher {
	return &Launcher{Starter: starter, Prober: prober, Journal: jrnl, Logger: log}
}

// Launch starts every service and records its handle in st. On a readiness
// failure it stops immediately; services already running are left untouched
// for the container teardown to reap.
func (l *Launcher) Launch(ctx context.Context, specs []process.Spec, st *process.RuntimeState) error {
	for i := range specs {
		if err := l.launchOne(ctx, specs[i], st); err != nil {
			return err
		}
	}
	return nil
}

func (l *Launcher) launchOne(ctx context.Context, spec process.Spec, st *process.RuntimeState) error {
	log := l.Logger.With("service", spec.Name)

	if spec.Optional {
		if _, err := exec.LookPath(spec.Binary()); err != nil {
			log.Warn("optional service binary not found, skipping", "binary", spec.Binary())
			_ = l.Journal.Record(ctx, journal.Event{
				Stage: "launch", Name: spec.Name, Status: "skipped",
				Detail: "binary not found: " + spec.Binary(),
			})
			return nil
		}
	}

	if err := l.prepare(spec); err != nil {
		metrics.IncFailure("launch")
		return err
	}

	if spec.PIDFile != "" && process.PIDFileAlive(spec.PIDFile) {
		// A live process from a previous bring-up of this container; do not
		// double-start it, just gate on its readiness below.
		pid, _ := process.ReadPIDFile(spec.PIDFile)
		log.Warn("service already running, not spawning again", "pid", pid)
	} else {
		h, err := l.Starter.Start(spec)
		if err != nil {
			metrics.IncFailure("launch")
			return fmt.Errorf("spawn %s: %w", spec.Name, err)
		}
		st.Track(h)
		metrics.IncSpawn("service")
		log.Info("service started", "pid", h.PID())
		_ = l.Journal.Record(ctx, journal.Event{
			Stage: "launch", Name: spec.Name, PID: h.PID(), Status: "started",
		})
	}

	check := probe.Check{Host: spec.Host, Port: spec.Port, Attempts: spec.ProbeAttempts, Interval: spec.ProbeInterval}
	log.Info("waiting for readiness", "addr", check.Addr(), "budget", check.Attempts)
	ok, attempts := l.Prober.WaitN(check)
	metrics.AddProbeAttempts(spec.Name, attempts)
	if !ok {
		metrics.IncFailure("readiness")
		_ = l.Journal.Record(ctx, journal.Event{
			Stage: "launch", Name: spec.Name, Status: "timeout", Detail: check.Addr(),
		})
		return &probe.ReadinessError{Name: spec.Name, Addr: check.Addr(), Attempts: check.Attempts}
	}
	metrics.IncReady(spec.Name)
	log.Info("service ready", "addr", check.Addr(), "attempts", attempts)
	_ = l.Journal.Record(ctx, journal.Event{
		Stage: "launch", Name: spec.Name, Status: "ready", Detail: check.Addr(),
	})
	return nil
}

// prepare makes the directories a service needs, idempotently, and clears
// state a previous run may have left behind.
func (l *Launcher) prepare(spec process.Spec) error {
	for _, dir := range []string{spec.WorkDir, spec.Log.Dir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	if spec.PIDFile != "" {
		if err := os.MkdirAll(filepath.Dir(spec.PIDFile), 0o750); err != nil {
			return fmt.Errorf("create dir %s: %w", filepath.Dir(spec.PIDFile), err)
		}
		process.RemoveStalePIDFile(spec.PIDFile)
	}
	if spec.CleanLog {
		// Best-effort: a failed removal must not block the bring-up.
		stdout, stderr := spec.Log.Paths(spec.Name)
		for _, p := range []string{stdout, stderr} {
			if p != "" {
				_ = os.Remove(p)
			}
		}
	}
	return nil
}
