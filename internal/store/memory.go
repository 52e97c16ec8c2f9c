package store

import (
	"context"
	"sync"
	"time"

	"github.com/dmelnyk/voicegate/internal/domain"
)

type challengeKey struct {
	ns         domain.Namespace
	identifier string
}

// MemoryStore is an in-memory ChallengeStore guarded by a single mutex.
// Challenges are stored by value and returned as copies, so callers never
// hold a reference into the store.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[challengeKey]domain.Challenge
}

// NewMemoryStore creates an empty in-memory challenge store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[challengeKey]domain.Challenge),
	}
}

// AddChallenge stores a new challenge, failing if the key is occupied.
func (s *MemoryStore) AddChallenge(_ context.Context, c *domain.Challenge) error {
	key := challengeKey{ns: c.Namespace, identifier: c.Identifier}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.challenges[key]; ok {
		return ErrChallengeExists
	}
	s.challenges[key] = *c
	return nil
}

// GetChallenge returns a copy of the stored challenge, or (nil, nil).
func (s *MemoryStore) GetChallenge(_ context.Context, ns domain.Namespace, identifier string) (*domain.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[challengeKey{ns: ns, identifier: identifier}]
	if !ok {
		return nil, nil
	}
	out := c
	return &out, nil
}

// UpdateChallenge replaces a stored challenge in place.
func (s *MemoryStore) UpdateChallenge(_ context.Context, c *domain.Challenge) error {
	key := challengeKey{ns: c.Namespace, identifier: c.Identifier}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.challenges[key]; !ok {
		return ErrChallengeNotFound
	}
	s.challenges[key] = *c
	return nil
}

// DeleteChallenge removes a challenge, reporting whether it existed.
func (s *MemoryStore) DeleteChallenge(_ context.Context, ns domain.Namespace, identifier string) (bool, error) {
	key := challengeKey{ns: ns, identifier: identifier}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.challenges[key]; !ok {
		return false, nil
	}
	delete(s.challenges, key)
	return true, nil
}

// SweepExpired removes every challenge expiring strictly before the given
// time, across all namespaces.
func (s *MemoryStore) SweepExpired(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, c := range s.challenges {
		if c.ExpiresAt.Before(before) {
			delete(s.challenges, key)
			removed++
		}
	}
	return removed, nil
}

// ListChallenges returns copies of challenges in the namespace, or in all
// namespaces when ns is empty.
func (s *MemoryStore) ListChallenges(_ context.Context, ns domain.Namespace) ([]*domain.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Challenge
	for key, c := range s.challenges {
		if ns != "" && key.ns != ns {
			continue
		}
		copied := c
		out = append(out, &copied)
	}
	return out, nil
}

// CountChallenges returns the number of live challenges in a namespace, or
// across all namespaces when ns is empty.
func (s *MemoryStore) CountChallenges(_ context.Context, ns domain.Namespace) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.challenges {
		if ns == "" || key.ns == ns {
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
