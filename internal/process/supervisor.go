package process

import (
	"sync"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/logger"
)

// Supervisor hands out one Runner per tunnel ID and answers questions across
// all of them. It does not restart anything; it only tracks what the user
// started.
type Supervisor struct {
	exePath func() string
	log     logger.Logger

	mu      sync.Mutex
	runners map[string]*Runner
}

func NewSupervisor(exePath func() string, log logger.Logger) *Supervisor {
	return &Supervisor{
		exePath: exePath,
		log:     log,
		runners: make(map[string]*Runner),
	}
}

// Runner returns the runner for the tunnel, creating it on first use. The
// name is refreshed on every call so renames show up in logs.
func (s *Supervisor) Runner(tunnelID, tunnelName string) *Runner {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.runners[tunnelID]; ok {
		r.setName(tunnelName)
		return r
	}
	r := NewRunner(tunnelID, tunnelName, s.exePath(), s.log)
	s.runners[tunnelID] = r
	return r
}

func (s *Supervisor) Lookup(tunnelID string) (*Runner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runners[tunnelID]
	return r, ok
}

func (s *Supervisor) IsRunning(tunnelID string) bool {
	r, ok := s.Lookup(tunnelID)
	return ok && r.IsRunning()
}

// RunningIDs lists tunnels whose process is alive, in no particular order.
func (s *Supervisor) RunningIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, r := range s.runners {
		if r.IsRunning() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Forget drops the runner for a deleted tunnel, stopping it first if needed.
func (s *Supervisor) Forget(tunnelID string) {
	s.mu.Lock()
	r, ok := s.runners[tunnelID]
	delete(s.runners, tunnelID)
	s.mu.Unlock()

	if ok && r.IsRunning() {
		r.Stop()
	}
}

// StopAll terminates every running child. Used on shutdown.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	runners := make([]*Runner, 0, len(s.runners))
	for _, r := range s.runners {
		runners = append(runners, r)
	}
	s.mu.Unlock()

	for _, r := range runners {
		if r.IsRunning() {
			r.Stop()
		}
	}
}

// Shutdown satisfies the shutdown manager.
func (s *Supervisor) Shutdown() {
	s.StopAll()
}
