//go:build windows

package process

import (
	"os"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := gopsproc.PidExists(int32(pid))
	return err == nil && ok
}

// signalGroup on Windows falls back to terminating the single process;
// children were created in a new process group but there is no group kill.
func signalGroup(pid int, sig os.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if sig == os.Kill {
		return p.Kill()
	}
	return p.Signal(sig)
}

func isZombie(int) bool { return false }
