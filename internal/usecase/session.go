package usecase

import "sync"

// State is what the submission controller needs to decide whether a
// submission may proceed.
type State struct {
	BaseURL string
	Ready   bool
}

// Session owns the endpoint configuration and the readiness flag for one
// console process. The base URL never changes; readiness is only written by
// the ReadinessMonitor.
type Session struct {
	baseURL string

	mu      sync.RWMutex
	ready   bool
	outcome ReadinessOutcome
}

// NewSession starts a session against an already resolved base URL, which
// may be empty.
func NewSession(baseURL string) *Session {
	return &Session{baseURL: baseURL, outcome: OutcomePending}
}

func (s *Session) BaseURL() string {
	return s.baseURL
}

// State returns the current gate inputs.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{BaseURL: s.baseURL, Ready: s.ready}
}

// Outcome returns the readiness outcome, OutcomePending until the check ends.
func (s *Session) Outcome() ReadinessOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

func (s *Session) record(report ReadinessReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcome = report.Outcome
	s.ready = report.Outcome == OutcomeReady
}
