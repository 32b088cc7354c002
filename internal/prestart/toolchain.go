package prestart

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	// CanonicalInterpreter is the preferred legacy interpreter location.
	CanonicalInterpreter = "/usr/bin/python2"
	// VersionedInstallRoot holds versioned interpreter trees, e.g.
	// /opt/python/2.7.18/bin/python2.
	VersionedInstallRoot = "/opt/python"
)

// ToolchainError means neither candidate location held a usable legacy
// interpreter. Fatal, and raised before the dependent prestart is spawned.
type ToolchainError struct {
	Canonical string
	Versioned string
}

func (e *ToolchainError) Error() string {
	return fmt.Sprintf("legacy interpreter not found at %s or under %s", e.Canonical, e.Versioned)
}

// LocateToolchain finds the legacy interpreter: the canonical path wins,
// otherwise the newest versioned install tree under versionedRoot.
func LocateToolchain(canonical, versionedRoot string) (string, error) {
	if isExecutable(canonical) {
		return canonical, nil
	}
	if entries, err := os.ReadDir(versionedRoot); err == nil {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
		for _, n := range names {
			p := filepath.Join(versionedRoot, n, "bin", filepath.Base(canonical))
			if isExecutable(p) {
				return p, nil
			}
		}
	}
	return "", &ToolchainError{Canonical: canonical, Versioned: versionedRoot}
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Mode()&0o111 != 0
}
