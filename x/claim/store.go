package claim

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound indicates the store holds no claim for the given id.
var ErrNotFound = errors.New("claim: not found")

// Store is an in-memory registry of claim records keyed by claim id.
// It is the single source of truth for orchestrator-local state and is safe
// for concurrent use by submitters, scheduled finalizers, and status queries.
//
// Records do not survive a process restart; durability is a documented gap of
// this deployment shape, acceptable for a single-instance agent.
type Store struct {
	mu     sync.RWMutex
	claims map[string]Claim
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{claims: make(map[string]Claim)}
}

// Put inserts a new claim record. Exactly one record may exist per id.
func (s *Store) Put(c Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := c.ID.Hex()
	if _, exists := s.claims[key]; exists {
		return fmt.Errorf("claim: duplicate id %s", key)
	}
	s.claims[key] = c
	return nil
}

// Get returns a copy of the claim record for id.
func (s *Store) Get(id ID) (Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.claims[id.Hex()]
	if !ok {
		return Claim{}, ErrNotFound
	}
	return c, nil
}

// Update applies mutate to the record for id under the store lock.
func (s *Store) Update(id ID, mutate func(*Claim)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := id.Hex()
	c, ok := s.claims[key]
	if !ok {
		return ErrNotFound
	}
	mutate(&c)
	s.claims[key] = c
	return nil
}

// BeginFinalize atomically claims the right to finalize the record.
// It returns started=true when the caller won the guard, or
// already=true when the record is terminal. A second concurrent caller gets
// started=false, already=false and must treat the attempt as a duplicate.
func (s *Store) BeginFinalize(id ID) (started, already bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := id.Hex()
	c, ok := s.claims[key]
	if !ok {
		return false, false, ErrNotFound
	}
	if c.State == StateFinalized {
		return false, true, nil
	}
	if c.finalizing {
		return false, false, nil
	}
	c.finalizing = true
	s.claims[key] = c
	return true, false, nil
}

// EndFinalize releases the finalize guard without changing state. It is used
// when a finalization attempt fails and the claim must remain Pending.
func (s *Store) EndFinalize(id ID) error {
	return s.Update(id, func(c *Claim) { c.finalizing = false })
}

// CompleteFinalize applies mutate, marks the record finalized, and clears the
// finalize guard in one step. mutate runs before the state transition so it
// cannot regress a finalized record back to pending.
func (s *Store) CompleteFinalize(id ID, mutate func(*Claim)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := id.Hex()
	c, ok := s.claims[key]
	if !ok {
		return ErrNotFound
	}
	mutate(&c)
	c.State = StateFinalized
	c.finalizing = false
	s.claims[key] = c
	return nil
}

// List returns a snapshot of all records in unspecified order.
func (s *Store) List() []Claim {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Claim, 0, len(s.claims))
	for _, c := range s.claims {
		out = append(out, c)
	}
	return out
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.claims)
}
