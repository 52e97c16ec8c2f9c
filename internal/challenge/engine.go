// Package challenge implements the challenge lifecycle: generation, storage,
// validation with bounded retries and expiry, and cleanup.
package challenge

import (
	"context"
	"fmt"
	"time"

	"github.com/dmelnyk/voicegate/internal/domain"
	"github.com/dmelnyk/voicegate/internal/normalize"
	"github.com/dmelnyk/voicegate/internal/phrase"
	"github.com/dmelnyk/voicegate/internal/store"
)

// Outcome classifies the result of a validation call. Exactly one outcome is
// produced per call; everything except OutcomeVerified is a denial.
type Outcome string

const (
	OutcomeVerified    Outcome = "verified"
	OutcomeNoChallenge Outcome = "no_challenge"
	OutcomeExpired     Outcome = "expired"
	OutcomeMaxAttempts Outcome = "max_attempts"
	OutcomeMismatch    Outcome = "mismatch"
)

// Result is the outcome of validating a spoken response. Denial is an
// expected result, not an error: the error return of Validate is reserved
// for store failures.
type Result struct {
	Valid   bool
	Outcome Outcome
	Message string
	// Intent is the string stored at creation, returned only on success.
	Intent string
	// AttemptsRemaining is meaningful only for OutcomeMismatch.
	AttemptsRemaining int
}

// Engine orchestrates challenge creation, validation, and cleanup over a
// ChallengeStore.
type Engine struct {
	store       store.ChallengeStore
	gen         *phrase.Generator
	expiry      time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewEngine creates an engine with the given store, phrase generator, expiry
// window, and attempt limit.
func NewEngine(cs store.ChallengeStore, gen *phrase.Generator, expiry time.Duration, maxAttempts int) *Engine {
	return NewEngineWithClock(cs, gen, expiry, maxAttempts, time.Now)
}

// NewEngineWithClock is NewEngine with an injected clock, so expiry behavior
// can be tested without sleeping.
func NewEngineWithClock(cs store.ChallengeStore, gen *phrase.Generator, expiry time.Duration, maxAttempts int, now func() time.Time) *Engine {
	return &Engine{
		store:       cs,
		gen:         gen,
		expiry:      expiry,
		maxAttempts: maxAttempts,
		now:         now,
	}
}

// Expiry returns the configured challenge lifetime.
func (e *Engine) Expiry() time.Duration { return e.expiry }

// MaxAttempts returns the configured attempt limit.
func (e *Engine) MaxAttempts() int { return e.maxAttempts }

// Create generates a phrase, normalizes it, and stores a new pending
// challenge under (namespace, identifier). Returns store.ErrChallengeExists
// unchanged if a challenge is already in flight for that key.
func (e *Engine) Create(ctx context.Context, identifier string, ns domain.Namespace, intent string) (*domain.Challenge, error) {
	now := e.now()
	c := &domain.Challenge{
		Identifier: identifier,
		Namespace:  ns,
		Phrase:     normalize.Normalize(e.gen.Generate()),
		Status:     domain.StatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(e.expiry),
		Attempts:   0,
		Intent:     intent,
	}

	if err := e.store.AddChallenge(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks a spoken response against the stored challenge. Ordering
// is fixed: lookup, expiry, attempt budget, phrase comparison. An expired
// challenge is rejected even if the phrase is correct, and the attempt that
// would exceed the budget is rejected before its phrase is compared.
// Terminal outcomes remove the challenge in the same call.
func (e *Engine) Validate(ctx context.Context, identifier string, ns domain.Namespace, spokenResponse string) (*Result, error) {
	c, err := e.store.GetChallenge(ctx, ns, identifier)
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}
	if c == nil {
		return &Result{
			Outcome: OutcomeNoChallenge,
			Message: "No active challenge found. Please start over.",
		}, nil
	}

	if c.IsExpired(e.now()) {
		c.Status = domain.StatusExpired
		if _, err := e.store.DeleteChallenge(ctx, ns, identifier); err != nil {
			return nil, fmt.Errorf("delete expired challenge: %w", err)
		}
		return &Result{
			Outcome: OutcomeExpired,
			Message: "Challenge expired. Please start over.",
		}, nil
	}

	c.Attempts++
	if c.Attempts > e.maxAttempts {
		c.Status = domain.StatusFailed
		if _, err := e.store.DeleteChallenge(ctx, ns, identifier); err != nil {
			return nil, fmt.Errorf("delete failed challenge: %w", err)
		}
		return &Result{
			Outcome: OutcomeMaxAttempts,
			Message: "Maximum attempts exceeded. Please start over.",
		}, nil
	}

	if normalize.Normalize(spokenResponse) == c.Phrase {
		c.Status = domain.StatusValidated
		if _, err := e.store.DeleteChallenge(ctx, ns, identifier); err != nil {
			return nil, fmt.Errorf("delete validated challenge: %w", err)
		}
		return &Result{
			Valid:   true,
			Outcome: OutcomeVerified,
			Message: "Voice verified successfully",
			Intent:  c.Intent,
		}, nil
	}

	remaining := e.maxAttempts - c.Attempts
	if remaining > 0 {
		if err := e.store.UpdateChallenge(ctx, c); err != nil {
			return nil, fmt.Errorf("update challenge attempts: %w", err)
		}
		return &Result{
			Outcome:           OutcomeMismatch,
			Message:           fmt.Sprintf("Incorrect response. %d attempts remaining.", remaining),
			AttemptsRemaining: remaining,
		}, nil
	}

	c.Status = domain.StatusFailed
	if _, err := e.store.DeleteChallenge(ctx, ns, identifier); err != nil {
		return nil, fmt.Errorf("delete failed challenge: %w", err)
	}
	return &Result{
		Outcome: OutcomeMaxAttempts,
		Message: "Maximum attempts exceeded. Please start over.",
	}, nil
}

// Cancel removes a pending challenge unconditionally, reporting whether one
// existed. Cancelling nothing is not an error.
func (e *Engine) Cancel(ctx context.Context, identifier string, ns domain.Namespace) (bool, error) {
	return e.store.DeleteChallenge(ctx, ns, identifier)
}

// Sweep removes every challenge past its deadline, across all namespaces.
// Idempotent and cheap; the platform adapters call it before dispatching.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	return e.store.SweepExpired(ctx, e.now())
}

// GetChallenge returns the live challenge for a key, or nil.
func (e *Engine) GetChallenge(ctx context.Context, identifier string, ns domain.Namespace) (*domain.Challenge, error) {
	return e.store.GetChallenge(ctx, ns, identifier)
}

// ListChallenges returns live challenges in a namespace ("" for all).
func (e *Engine) ListChallenges(ctx context.Context, ns domain.Namespace) ([]*domain.Challenge, error) {
	return e.store.ListChallenges(ctx, ns)
}

// CountChallenges returns the number of live challenges in a namespace
// ("" for all).
func (e *Engine) CountChallenges(ctx context.Context, ns domain.Namespace) (int, error) {
	return e.store.CountChallenges(ctx, ns)
}

// Now returns the engine's current time. The debug status surface uses it so
// elapsed/expired figures agree with validation decisions.
func (e *Engine) Now() time.Time {
	return e.now()
}
