package process

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// pidMeta is the JSON second line of a pidfile. The recorded start time
// lets a later run detect PID reuse before trusting the file.
type pidMeta struct {
	StartUnix int64 `json:"start_unix"`
}

// WritePIDFile writes "<pid>\n<meta-json>\n" best-effort. Pidfiles are an
// aid for debugging and stale-state cleanup, never a correctness input.
func WritePIDFile(path string, pid int) {
	if path == "" || pid <= 0 {
		return
	}
	_ = os.MkdirAll(filepath.Dir(path), 0o750)
	meta, _ := json.Marshal(pidMeta{StartUnix: getProcStartUnix(pid)})
	_ = os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"+string(meta)+"\n"), 0o600)
}

// ReadPIDFile returns the recorded PID and start-time meta. PID 0 means the
// file is absent or malformed.
func ReadPIDFile(path string) (int, int64) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) == 0 {
		return 0, 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || pid <= 0 {
		return 0, 0
	}
	var startUnix int64
	if len(lines) >= 2 {
		var m pidMeta
		if err := json.Unmarshal([]byte(strings.TrimSpace(lines[1])), &m); err == nil {
			startUnix = m.StartUnix
		}
	}
	return pid, startUnix
}

// PIDFileAlive reports whether the pidfile names a live process that is
// still the same incarnation: when start-time meta is present it must match
// the current process start time, otherwise the PID was reused.
func PIDFileAlive(path string) bool {
	pid, metaStart := ReadPIDFile(path)
	if pid <= 0 {
		return false
	}
	if metaStart > 0 {
		if cur := getProcStartUnix(pid); cur > 0 && cur != metaStart {
			return false
		}
	}
	return pidAlive(pid)
}

// RemoveStalePIDFile deletes a pidfile left behind by a previous container
// run when the recorded process is gone or its PID was reused. Best-effort.
func RemoveStalePIDFile(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if !PIDFileAlive(path) {
		_ = os.Remove(path)
	}
}
