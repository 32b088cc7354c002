package process

// RuntimeState tracks every process spawned during one bring-up run. It is
// owned solely by the orchestrator: created empty at start, threaded through
// the pipeline stages, and discarded at handoff or failure exit. Nothing is
// persisted.
type RuntimeState struct {
	services   map[string]Handle
	order      []string
	prestarted Handle
}

func NewRuntimeState() *RuntimeState {
	return &RuntimeState{services: make(map[string]Handle)}
}

// Track records a spawned dependency service handle.
func (s *RuntimeState) Track(h Handle) {
	if _, ok := s.services[h.Name()]; !ok {
		s.order = append(s.order, h.Name())
	}
	s.services[h.Name()] = h
}

// Service returns the handle recorded under name.
func (s *RuntimeState) Service(name string) (Handle, bool) {
	h, ok := s.services[name]
	return h, ok
}

// Names returns service names in spawn order.
func (s *RuntimeState) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SetPrestarted records the background-prestarted primary workload.
func (s *RuntimeState) SetPrestarted(h Handle) { s.prestarted = h }

// Prestarted returns the prestarted primary handle, nil when none.
func (s *RuntimeState) Prestarted() Handle { return s.prestarted }

// ClearPrestarted forgets the prestarted primary after a rollback kill.
func (s *RuntimeState) ClearPrestarted() { s.prestarted = nil }
