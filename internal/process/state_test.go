package process

import (
	"os"
	"testing"
	"time"
)

// stubHandle is a minimal in-memory Handle for state bookkeeping tests.
type stubHandle struct {
	name string
	pid  int
}

func (h *stubHandle) Name() string                { return h.name }
func (h *stubHandle) PID() int                    { return h.pid }
func (h *stubHandle) Alive() bool                 { return true }
func (h *stubHandle) Signal(sig os.Signal) error  { return nil }
func (h *stubHandle) Kill(wait time.Duration) error { return nil }

func TestRuntimeStateTrackOrder(t *testing.T) {
	st := NewRuntimeState()
	st.Track(&stubHandle{name: "store", pid: 100})
	st.Track(&stubHandle{name: "broker", pid: 101})

	names := st.Names()
	if len(names) != 2 || names[0] != "store" || names[1] != "broker" {
		t.Fatalf("unexpected order: %v", names)
	}

	h, ok := st.Service("broker")
	if !ok || h.PID() != 101 {
		t.Fatalf("broker lookup failed: %v %v", h, ok)
	}
	if _, ok := st.Service("missing"); ok {
		t.Fatalf("unexpected hit for unknown service")
	}

	// Re-tracking the same name replaces the handle without duplicating the
	// order entry.
	st.Track(&stubHandle{name: "store", pid: 200})
	if names := st.Names(); len(names) != 2 {
		t.Fatalf("duplicate order entry: %v", names)
	}
	h, _ = st.Service("store")
	if h.PID() != 200 {
		t.Fatalf("handle not replaced: pid %d", h.PID())
	}
}

func TestRuntimeStatePrestarted(t *testing.T) {
	st := NewRuntimeState()
	if st.Prestarted() != nil {
		t.Fatalf("expected no prestarted handle initially")
	}
	h := &stubHandle{name: "primary", pid: 300}
	st.SetPrestarted(h)
	if got := st.Prestarted(); got == nil || got.PID() != 300 {
		t.Fatalf("prestarted handle not recorded")
	}
	st.ClearPrestarted()
	if st.Prestarted() != nil {
		t.Fatalf("expected prestarted handle to be cleared")
	}
}
