//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// applySysAttrs detaches the child into its own process group so signals
// sent to the orchestrator do not reach it, and a rollback kill of -pid
// reaches its whole tree.
func applySysAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
