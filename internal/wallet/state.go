package wallet

import (
	"sync"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// Phase is the connection phase of the shared state.
type Phase int

// Connection phases: Idle -> Connecting(type) -> Connected(type) or back to Idle.
const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseConnected
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	default:
		return "idle"
	}
}

// ChangeFunc observes session snapshot changes.
type ChangeFunc func(old, updated Info)

// State is the single source of truth for the wallet session. At most one
// connect may be in flight across all providers.
type State struct {
	mu         sync.Mutex
	info       Info
	connecting *Type
	nextID     int
	listeners  map[int]ChangeFunc
	order      []int
}

// NewState creates an idle state holding DefaultInfo.
func NewState() *State {
	return &State{
		info:      DefaultInfo(),
		listeners: make(map[int]ChangeFunc),
	}
}

// Info returns the current snapshot.
func (s *State) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Phase returns the current connection phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.connecting != nil:
		return PhaseConnecting
	case s.info.IsConnected:
		return PhaseConnected
	default:
		return PhaseIdle
	}
}

// Connecting returns the wallet whose connect is in flight, if any.
func (s *State) Connecting() (Type, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connecting == nil {
		return "", false
	}
	return *s.connecting, true
}

// BeginConnect moves to Connecting(t). It returns false, changing nothing, when
// another connect is already in flight.
func (s *State) BeginConnect(t Type) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connecting != nil {
		return false
	}
	s.connecting = &t
	return true
}

// SetConnecting overrides the in-flight marker; nil clears it.
func (s *State) SetConnecting(t *Type) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t == nil {
		s.connecting = nil
		return
	}
	v := *t
	s.connecting = &v
}

// Complete records a successful handshake and leaves the Connecting phase.
func (s *State) Complete(info Info) error {
	if !info.Valid() || !info.IsConnected {
		s.SetConnecting(nil)
		return linkerr.ErrInvalidInfo
	}

	s.mu.Lock()
	s.connecting = nil
	s.mu.Unlock()

	return s.SetInfo(info)
}

// Abort leaves the Connecting phase, optionally resetting the snapshot.
func (s *State) Abort(reset bool) {
	s.SetConnecting(nil)
	if reset {
		s.Reset()
	}
}

// SetInfo replaces the snapshot. Snapshots violating the invariant are rejected.
func (s *State) SetInfo(info Info) error {
	if !info.Valid() {
		return linkerr.ErrInvalidInfo
	}

	s.mu.Lock()
	old := s.info
	s.info = info
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	if old != info {
		for _, fn := range listeners {
			fn(old, info)
		}
	}
	return nil
}

// Reset restores DefaultInfo.
func (s *State) Reset() {
	_ = s.SetInfo(DefaultInfo())
}

// OnChange registers fn to run after every snapshot change, outside the lock.
// The returned function removes the listener.
func (s *State) OnChange(fn ChangeFunc) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.order = append(s.order, id)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *State) snapshotListeners() []ChangeFunc {
	out := make([]ChangeFunc, 0, len(s.listeners))
	kept := s.order[:0]
	for _, id := range s.order {
		if fn, ok := s.listeners[id]; ok {
			out = append(out, fn)
			kept = append(kept, id)
		}
	}
	s.order = kept
	return out
}
