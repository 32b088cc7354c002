//go:build !windows

package handoff

import "syscall"

// sysExec replaces the current process image. It only returns on error.
func sysExec(argv0 string, argv []string, envv []string) error {
	return syscall.Exec(argv0, argv, envv)
}
