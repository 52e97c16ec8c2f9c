// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dmelnyk/voicegate/internal/domain"
)

var (
	// ErrChallengeExists is returned by AddChallenge when a live challenge
	// already occupies the (namespace, identifier) key.
	ErrChallengeExists = errors.New("challenge already exists")

	// ErrChallengeNotFound is returned by UpdateChallenge when the key is
	// absent. Callers are expected to Get before Update; hitting this
	// indicates a programming error, not a user-facing condition.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrHomeNotFound is returned when a referenced home does not exist.
	ErrHomeNotFound = errors.New("home not found")

	// ErrHomeExists is returned when creating a home with a taken ID.
	ErrHomeExists = errors.New("home already exists")

	// ErrMappingExists is returned when an Alexa user is already mapped.
	ErrMappingExists = errors.New("alexa mapping already exists")
)

// ChallengeStore holds live voice challenges keyed by (namespace,
// identifier). Implementations must be safe for concurrent use; all mutating
// operations are atomic with respect to each other.
type ChallengeStore interface {
	// AddChallenge stores a new challenge. Returns ErrChallengeExists if a
	// live challenge already exists for the same key.
	AddChallenge(ctx context.Context, c *domain.Challenge) error

	// GetChallenge looks up a challenge. Returns (nil, nil) if absent.
	GetChallenge(ctx context.Context, ns domain.Namespace, identifier string) (*domain.Challenge, error)

	// UpdateChallenge replaces a stored challenge in place. Returns
	// ErrChallengeNotFound if the key is absent.
	UpdateChallenge(ctx context.Context, c *domain.Challenge) error

	// DeleteChallenge removes a challenge, reporting whether it existed.
	DeleteChallenge(ctx context.Context, ns domain.Namespace, identifier string) (bool, error)

	// SweepExpired removes every challenge across all namespaces whose
	// deadline is strictly before the given time. Returns the number removed.
	SweepExpired(ctx context.Context, before time.Time) (int, error)

	// ListChallenges returns challenges for one namespace, or for all
	// namespaces when ns is empty. Introspection only, off the hot path.
	ListChallenges(ctx context.Context, ns domain.Namespace) ([]*domain.Challenge, error)

	// CountChallenges returns the number of live challenges in a namespace,
	// or across all namespaces when ns is empty.
	CountChallenges(ctx context.Context, ns domain.Namespace) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// Repository persists homes and Alexa user mappings.
type Repository interface {
	CreateHome(ctx context.Context, home *domain.Home) error
	GetHome(ctx context.Context, homeID string) (*domain.Home, error)
	ListHomes(ctx context.Context) ([]*domain.Home, error)
	UpdateHome(ctx context.Context, home *domain.Home) error
	DeleteHome(ctx context.Context, homeID string) (bool, error)

	// CreateMapping links an Alexa user to a home. The home must exist.
	CreateMapping(ctx context.Context, m *domain.AlexaMapping) error
	GetMapping(ctx context.Context, alexaUserID string) (*domain.AlexaMapping, error)
	ListMappings(ctx context.Context) ([]*domain.AlexaMapping, error)
	DeleteMapping(ctx context.Context, alexaUserID string) (bool, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	Close() error
}
