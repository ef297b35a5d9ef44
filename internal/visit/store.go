package visit

import (
	"errors"
	"sync"
)

var ErrNotFound = errors.New("visit: not found")

// Store is the in-memory Visit Record Store: the single source of truth
// for every view in the system. Visits are never deleted.
//
// Mutation contract: replace-whole-record. Writers build a complete next
// record and Put it in one call, so a concurrent read never observes a
// half-updated visit. All records are deep-copied on the way in and out.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]Visit
	order []string // insertion order, oldest first
}

func NewStore() *Store {
	return &Store{byID: make(map[string]Visit)}
}

// Insert adds a new visit. The id must not already exist.
func (s *Store) Insert(v Visit) error {
	if v.ID == "" {
		return errors.New("visit: id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[v.ID]; ok {
		return errors.New("visit: duplicate id")
	}
	s.byID[v.ID] = v.clone()
	s.order = append(s.order, v.ID)
	return nil
}

// Get returns a copy of the visit.
func (s *Store) Get(id string) (Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byID[id]
	if !ok {
		return Visit{}, ErrNotFound
	}
	return v.clone(), nil
}

// Put replaces an existing record wholesale.
func (s *Store) Put(v Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[v.ID]; !ok {
		return ErrNotFound
	}
	s.byID[v.ID] = v.clone()
	return nil
}

// List returns copies of all visits, newest first.
func (s *Store) List() []Visit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Visit, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.byID[s.order[i]].clone())
	}
	return out
}

// Len returns the number of visits ever recorded.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
