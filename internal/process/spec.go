package process

import (
	"os/exec"
	"strings"
	"time"

	"github.com/loykin/initup/internal/logger"
)

// Spec describes one service the orchestrator brings up before the primary
// workload. Specs are built once from configuration and never mutated.
type Spec struct {
	Name          string
	Command       string        // command to start the service
	ExtraArgs     string        // appended verbatim as shell text
	Host          string        // bind host the readiness probe targets
	Port          int           // bind port the readiness probe targets
	WorkDir       string        // optional working dir
	Env           []string      // optional extra env (K=V)
	PIDFile       string        // optional pidfile path
	Optional      bool          // skip with a warning when the binary is absent
	CleanLog      bool          // remove pre-existing log files before start
	Log           logger.Config // rotating file logging for the child
	ProbeAttempts int
	ProbeInterval time.Duration
}

// CommandLine returns the full command string including extra args.
func (s *Spec) CommandLine() string {
	if strings.TrimSpace(s.ExtraArgs) == "" {
		return s.Command
	}
	return s.Command + " " + s.ExtraArgs
}

// Binary returns the executable token of the command, used for the
// optional-binary lookup.
func (s *Spec) Binary() string {
	fields := strings.Fields(s.Command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// BuildCommand constructs an *exec.Cmd for the spec's command line.
// Fixed argument lists are exec'd directly; a shell is only involved when
// the command already names one or when metacharacters (typically from the
// extra-args passthrough) require it.
func (s *Spec) BuildCommand() *exec.Cmd {
	return buildShellAwareCommand(s.CommandLine())
}

func buildShellAwareCommand(cmdStr string) *exec.Cmd {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	// If the command already explicitly uses a shell, honor it without
	// adding another layer.
	if afterC, ok := parseExplicitShell(cmdStr); ok {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", afterC)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	name := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.Command(name, args...)
}

// parseExplicitShell detects "sh -c <ARG>" style prefixes and returns the
// script after "-c" with one pair of wrapping quotes stripped, so the shell
// sees the actual script rather than a quoted literal.
func parseExplicitShell(cmdStr string) (string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	candidates := []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "}
	for _, p := range candidates {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return after, true
		}
	}
	return "", false
}
