package handoff

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/loykin/initup/internal/config"
)

const shellPath = "/bin/sh"

// Executor replaces the orchestrator's process image with the primary
// workload command, making the workload the container's terminal foreground
// process. After a successful Exec no orchestrator code runs; an external
// minimal init is assumed to forward signals and reap the children spawned
// earlier.
type Executor struct {
	Logger *slog.Logger
	// ExecFn overrides the exec syscall in tests.
	ExecFn func(argv0 string, argv []string, envv []string) error
}

func New(log *slog.Logger) *Executor { return &Executor{Logger: log} }

// Exec performs the handoff. On unix a successful call never returns.
func (e *Executor) Exec(command string, env []string) error {
	if strings.TrimSpace(command) == "" {
		return &config.ConfigError{
			Reason: config.MissingStartupCommand,
			Detail: "no startup command configured (INITUP_STARTUP_CMD)",
		}
	}
	argv0, argv := execArgv(command)
	e.Logger.Info("handing off to primary workload", "argv0", argv0)
	fn := e.ExecFn
	if fn == nil {
		fn = sysExec
	}
	if err := fn(argv0, argv, env); err != nil {
		return fmt.Errorf("exec %s: %w", argv0, err)
	}
	return nil
}

// execArgv resolves the command into an exec argv. Plain argument vectors
// exec directly; anything with shell syntax (the startup command template
// may carry ${VAR} expansions) goes through /bin/sh -c.
func execArgv(command string) (string, []string) {
	command = strings.TrimSpace(command)
	if strings.ContainsAny(command, "|&;<>*?`$\"'(){}[]~") {
		return shellPath, []string{"sh", "-c", command}
	}
	parts := strings.Fields(command)
	path, err := exec.LookPath(parts[0])
	if err != nil {
		// Let the shell produce the canonical command-not-found diagnostic.
		return shellPath, []string{"sh", "-c", command}
	}
	return path, parts
}
