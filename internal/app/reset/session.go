package reset

import (
	"sort"
	"sync"
)

// Session is the process-scoped context that outlives a single game: the personas
// already handed out and a short history of finished hands. It is created at process
// start and cleared by CompleteGameReset.
type Session struct {
	mu           sync.Mutex
	usedPersonas map[string]struct{}
	handHistory  []string
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{usedPersonas: make(map[string]struct{})}
}

// MarkPersonaUsed records that a persona was assigned in the current game.
func (s *Session) MarkPersonaUsed(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usedPersonas[id] = struct{}{}
}

// PersonaUsed reports whether id was already assigned.
func (s *Session) PersonaUsed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.usedPersonas[id]
	return ok
}

// UsedPersonas returns the assigned persona ids in sorted order.
func (s *Session) UsedPersonas() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.usedPersonas))
	for id := range s.usedPersonas {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RecordHand appends a one-line hand summary to the history cache.
func (s *Session) RecordHand(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handHistory = append(s.handHistory, line)
}

// HandHistory returns a copy of the cached hand summaries.
func (s *Session) HandHistory() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.handHistory...)
}

// Clear forgets used personas and the hand history.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usedPersonas = make(map[string]struct{})
	s.handHistory = nil
}
