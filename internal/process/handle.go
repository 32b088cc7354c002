package process

import (
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Handle is the orchestrator's view of one spawned background process.
// The orchestrator owns it until handoff or process exit; no other thread
// ever mutates it.
type Handle interface {
	Name() string
	PID() int
	Alive() bool
	Signal(sig os.Signal) error
	// Kill force-terminates the process group and waits up to wait for the
	// process to actually disappear.
	Kill(wait time.Duration) error
}

// OSHandle wraps a started exec.Cmd. A background goroutine reaps the child
// on exit, so Alive never reports a lingering zombie as running.
type OSHandle struct {
	name string
	cmd  *exec.Cmd
	pid  int
}

func (h *OSHandle) Name() string { return h.name }
func (h *OSHandle) PID() int     { return h.pid }

func (h *OSHandle) Alive() bool {
	if h.pid <= 0 {
		return false
	}
	if isZombie(h.pid) {
		return false
	}
	return pidAlive(h.pid)
}

// Signal delivers sig to the child's process group.
func (h *OSHandle) Signal(sig os.Signal) error {
	if h.pid <= 0 {
		return nil
	}
	return signalGroup(h.pid, sig)
}

// Kill sends SIGKILL to the process group, then polls until the process is
// gone or wait elapses. Errors from the signal itself are ignored: the
// child may already have exited.
func (h *OSHandle) Kill(wait time.Duration) error {
	if h.pid <= 0 {
		return nil
	}
	_ = signalGroup(h.pid, os.Kill)
	deadline := time.Now().Add(wait)
	for h.Alive() {
		if time.Now().After(deadline) {
			return fmt.Errorf("process %s (pid %d) still alive %s after kill", h.name, h.pid, wait)
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}
