// Package presence holds the process-wide roster of online users and providers.
//
// A roster is never patched in place. The synchronizer rebuilds it from the
// live connection set and hands the result to Replace, which swaps it in under
// the store lock. Readers always get a copy.
package presence

import (
	"sync"

	"homeservices/backend/internal/models"
)

// Entry is one live, authenticated connection for one role.
type Entry struct {
	SubjectID    int64  `json:"subjectId"`
	ConnectionID string `json:"connectionId"`
}

type Store struct {
	mu      sync.RWMutex
	rosters map[models.Role][]Entry
}

func NewStore() *Store {
	return &Store{rosters: map[models.Role][]Entry{}}
}

// Replace swaps the roster for role with entries.
func (s *Store) Replace(role models.Role, entries []Entry) {
	roster := make([]Entry, len(entries))
	copy(roster, entries)

	s.mu.Lock()
	s.rosters[role] = roster
	s.mu.Unlock()
}

func (s *Store) Snapshot(role models.Role) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roster := s.rosters[role]
	out := make([]Entry, len(roster))
	copy(out, roster)
	return out
}

// Find returns every entry of role whose subject is subjectID.
func (s *Store) Find(role models.Role, subjectID int64) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found []Entry
	for _, entry := range s.rosters[role] {
		if entry.SubjectID == subjectID {
			found = append(found, entry)
		}
	}
	return found
}

func (s *Store) Online(role models.Role, subjectID int64) bool {
	return len(s.Find(role, subjectID)) > 0
}

func (s *Store) Size(role models.Role) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rosters[role])
}

// Clear drops every roster. Called at shutdown once connections are closed.
func (s *Store) Clear() {
	s.mu.Lock()
	s.rosters = map[models.Role][]Entry{}
	s.mu.Unlock()
}
