package process

import (
	"fmt"
	"os"
)

// Starter abstracts detached spawning so pipeline stages can be exercised
// without real processes.
type Starter interface {
	Start(spec Spec) (Handle, error)
}

// ExecStarter spawns real OS processes, each in its own process group so a
// later kill reaches the whole tree.
type ExecStarter struct {
	// BaseEnv replaces the inherited environment when non-nil. Spec.Env
	// entries are appended either way.
	BaseEnv []string
}

func (s *ExecStarter) Start(spec Spec) (Handle, error) {
	cmd := spec.BuildCommand()
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	base := s.BaseEnv
	if base == nil {
		base = os.Environ()
	}
	if len(spec.Env) > 0 {
		env := make([]string, 0, len(base)+len(spec.Env))
		env = append(env, base...)
		env = append(env, spec.Env...)
		cmd.Env = env
	} else if s.BaseEnv != nil {
		cmd.Env = base
	}
	applySysAttrs(cmd)

	if spec.Log.Enabled() {
		if spec.Log.Dir != "" {
			_ = os.MkdirAll(spec.Log.Dir, 0o750)
		}
		outW, errW, _ := spec.Log.Writers(spec.Name)
		if outW != nil {
			cmd.Stdout = outW
		} else {
			cmd.Stdout, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
		}
		if errW != nil {
			cmd.Stderr = errW
		} else {
			cmd.Stderr, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
		}
	} else {
		null, _ := os.OpenFile(os.DevNull, os.O_RDWR, 0)
		cmd.Stdout = null
		cmd.Stderr = null
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Name, err)
	}
	h := &OSHandle{name: spec.Name, cmd: cmd, pid: cmd.Process.Pid}
	if spec.PIDFile != "" {
		WritePIDFile(spec.PIDFile, h.pid)
	}
	// Reap in the background. The orchestrator never restarts children, it
	// only needs liveness and kill.
	go func() { _ = cmd.Wait() }()
	return h, nil
}
