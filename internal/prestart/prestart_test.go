package prestart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loykin/initup/internal/config"
	"github.com/loykin/initup/internal/probe"
	"github.com/loykin/initup/internal/process"
)

type fakeHandle struct {
	name  string
	pid   int
	alive bool
	kills int
}

func (h *fakeHandle) Name() string               { return h.name }
func (h *fakeHandle) PID() int                   { return h.pid }
func (h *fakeHandle) Alive() bool                { return h.alive }
func (h *fakeHandle) Signal(sig os.Signal) error { return nil }
func (h *fakeHandle) Kill(wait time.Duration) error {
	h.kills++
	h.alive = false
	return nil
}

type fakeStarter struct {
	started []process.Spec
	handles []*fakeHandle
}

func (f *fakeStarter) Start(spec process.Spec) (process.Handle, error) {
	f.started = append(f.started, spec)
	h := &fakeHandle{name: spec.Name, pid: 7000 + len(f.started), alive: true}
	f.handles = append(f.handles, h)
	return h, nil
}

func dialAlways(network, addr string, timeout time.Duration) (net.Conn, error) {
	c1, c2 := net.Pipe()
	go func() { _ = c2.Close() }()
	return c1, nil
}

func dialNever(network, addr string, timeout time.Duration) (net.Conn, error) {
	return nil, errors.New("connect: connection refused")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serverPrimary() config.Primary {
	return config.Primary{
		Command:         "run-app attach",
		PrestartCommand: "run-app --serve",
		ControlHost:     "127.0.0.1",
		ControlPort:     8600,
		Timeout:         config.ProbeInterval, // one probe attempt
		Mode:            config.ModeServer,
	}
}

func TestRunModeNoneIsNoop(t *testing.T) {
	starter := &fakeStarter{}
	c := New(starter, &probe.Prober{Dial: dialNever}, nil, discardLogger())

	if err := c.Run(context.Background(), config.Primary{Mode: config.ModeNone}, process.NewRuntimeState()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if len(starter.started) != 0 {
		t.Fatalf("nothing should be spawned in mode none")
	}
}

func TestRunServerModeSuccess(t *testing.T) {
	starter := &fakeStarter{}
	st := process.NewRuntimeState()
	c := New(starter, &probe.Prober{Dial: dialAlways}, nil, discardLogger())

	if err := c.Run(context.Background(), serverPrimary(), st); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(starter.started) != 1 || starter.started[0].Command != "run-app --serve" {
		t.Fatalf("unexpected spawn: %+v", starter.started)
	}
	h := st.Prestarted()
	if h == nil || !h.Alive() {
		t.Fatalf("expected a live prestarted handle")
	}
}

func TestRunControlTimeoutKillsExactlyOnce(t *testing.T) {
	starter := &fakeStarter{}
	st := process.NewRuntimeState()
	c := New(starter, &probe.Prober{Dial: dialNever}, nil, discardLogger())
	c.KillWait = 100 * time.Millisecond

	err := c.Run(context.Background(), serverPrimary(), st)

	var re *probe.ReadinessError
	if !errors.As(err, &re) {
		t.Fatalf("expected *probe.ReadinessError, got %T: %v", err, err)
	}
	if re.Name != "primary" {
		t.Fatalf("unexpected failure name: %s", re.Name)
	}
	if len(starter.handles) != 1 {
		t.Fatalf("expected a single spawn, got %d", len(starter.handles))
	}
	h := starter.handles[0]
	if h.kills != 1 {
		t.Fatalf("expected exactly one rollback kill, got %d", h.kills)
	}
	if h.alive {
		t.Fatalf("prestarted process must be dead after rollback")
	}
	if st.Prestarted() != nil {
		t.Fatalf("prestarted handle must be cleared after rollback")
	}
}

func TestRunLegacyExportsInterpreter(t *testing.T) {
	starter := &fakeStarter{}
	st := process.NewRuntimeState()
	c := New(starter, &probe.Prober{Dial: dialAlways}, nil, discardLogger())
	c.Locate = func() (string, error) { return "/opt/python/2.7.18/bin/python2", nil }

	p := serverPrimary()
	p.Mode = config.ModeLegacy
	if err := c.Run(context.Background(), p, st); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(starter.started) != 1 {
		t.Fatalf("expected one spawn, got %d", len(starter.started))
	}
	env := starter.started[0].Env
	found := false
	for _, kv := range env {
		if kv == "PYTHON=/opt/python/2.7.18/bin/python2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("interpreter not exported, env: %v", env)
	}
}

func TestRunLegacyToolchainMissingSpawnsNothing(t *testing.T) {
	starter := &fakeStarter{}
	c := New(starter, &probe.Prober{Dial: dialAlways}, nil, discardLogger())
	c.Locate = func() (string, error) {
		return "", &ToolchainError{Canonical: "/usr/bin/python2", Versioned: "/opt/python"}
	}

	p := serverPrimary()
	p.Mode = config.ModeLegacy
	err := c.Run(context.Background(), p, process.NewRuntimeState())

	var te *ToolchainError
	if !errors.As(err, &te) {
		t.Fatalf("expected *ToolchainError, got %T: %v", err, err)
	}
	if len(starter.started) != 0 {
		t.Fatalf("nothing may be spawned when the toolchain is missing")
	}
}

func writeExecutable(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLocateToolchainCanonicalWins(t *testing.T) {
	dir := t.TempDir()
	canonical := filepath.Join(dir, "python2")
	writeExecutable(t, canonical)
	root := filepath.Join(dir, "opt")
	writeExecutable(t, filepath.Join(root, "2.7.18", "bin", "python2"))

	got, err := LocateToolchain(canonical, root)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if got != canonical {
		t.Fatalf("expected canonical path, got %s", got)
	}
}

func TestLocateToolchainVersionedFallback(t *testing.T) {
	dir := t.TempDir()
	canonical := filepath.Join(dir, "missing", "python2")
	root := filepath.Join(dir, "opt")
	writeExecutable(t, filepath.Join(root, "2.6.9", "bin", "python2"))
	writeExecutable(t, filepath.Join(root, "2.7.18", "bin", "python2"))

	got, err := LocateToolchain(canonical, root)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if got != filepath.Join(root, "2.7.18", "bin", "python2") {
		t.Fatalf("unexpected pick: %s", got)
	}
}

func TestLocateToolchainMissingEverywhere(t *testing.T) {
	dir := t.TempDir()
	canonical := filepath.Join(dir, "missing", "python2")
	root := filepath.Join(dir, "opt-empty")

	_, err := LocateToolchain(canonical, root)
	var te *ToolchainError
	if !errors.As(err, &te) {
		t.Fatalf("expected *ToolchainError, got %v", err)
	}
	if !strings.Contains(err.Error(), canonical) || !strings.Contains(err.Error(), root) {
		t.Fatalf("error must name both locations: %v", err)
	}
}
