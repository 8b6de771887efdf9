package progress

import "sync"

// Signal is a single-slot refresh subscription: the balance display (or any
// other ledger-dependent view) registers a handler, and the tracker pokes it
// after every ledger-affecting mutation. Registering replaces the previous
// handler; notifying with nothing registered is a no-op.
type Signal struct {
	mu      sync.Mutex
	handler func()
}

func NewSignal() *Signal {
	return &Signal{}
}

// Register installs the handler. Last registration wins.
func (s *Signal) Register(handler func()) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

// Unregister drops the current handler, if any.
func (s *Signal) Unregister() {
	s.mu.Lock()
	s.handler = nil
	s.mu.Unlock()
}

// Notify invokes the registered handler. The handler runs outside the lock
// so it may re-register or unregister itself.
func (s *Signal) Notify() {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()
	if handler != nil {
		handler()
	}
}
