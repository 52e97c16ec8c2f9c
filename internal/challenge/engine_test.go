package challenge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmelnyk/voicegate/internal/domain"
	"github.com/dmelnyk/voicegate/internal/phrase"
	"github.com/dmelnyk/voicegate/internal/store"
)

// fakeClock is a settable clock for expiry tests.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestEngine(t *testing.T, maxAttempts int) (*Engine, *fakeClock) {
	t.Helper()

	gen, err := phrase.NewGenerator([]string{"ocean"}, []string{"four"})
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	clock := &fakeClock{t: time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)}
	return NewEngineWithClock(store.NewMemoryStore(), gen, 60*time.Second, maxAttempts, clock.Now), clock
}

func TestCreateStoresNormalizedPendingChallenge(t *testing.T) {
	t.Parallel()

	e, clock := newTestEngine(t, 3)
	ctx := context.Background()

	c, err := e.Create(ctx, "s1", domain.NamespaceAlexa, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if c.Phrase != "ocean four" {
		t.Fatalf("Phrase = %q, want %q", c.Phrase, "ocean four")
	}
	if c.Status != domain.StatusPending || c.Attempts != 0 {
		t.Fatalf("unexpected challenge state: %+v", c)
	}
	if want := clock.Now().Add(60 * time.Second); !c.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", c.ExpiresAt, want)
	}
}

func TestCreateConflictsWhilePending(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, 3)
	ctx := context.Background()

	if _, err := e.Create(ctx, "s1", domain.NamespaceAlexa, ""); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := e.Create(ctx, "s1", domain.NamespaceAlexa, "")
	if !errors.Is(err, store.ErrChallengeExists) {
		t.Fatalf("expected ErrChallengeExists, got %v", err)
	}

	// Same identifier in the other namespace is independent.
	if _, err := e.Create(ctx, "s1", domain.NamespaceSatellite, "night_scene"); err != nil {
		t.Fatalf("Create in other namespace failed: %v", err)
	}
}

func TestValidateSuccessConsumesChallenge(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, 3)
	ctx := context.Background()

	if _, err := e.Create(ctx, "home-1", domain.NamespaceSatellite, "night_scene"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	res, err := e.Validate(ctx, "home-1", domain.NamespaceSatellite, "ocean 4")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !res.Valid || res.Outcome != OutcomeVerified {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Intent != "night_scene" {
		t.Fatalf("Intent = %q, want night_scene", res.Intent)
	}

	c, err := e.GetChallenge(ctx, "home-1", domain.NamespaceSatellite)
	if err != nil {
		t.Fatalf("GetChallenge failed: %v", err)
	}
	if c != nil {
		t.Fatal("validated challenge should be removed from the store")
	}
}

func TestValidateNoChallenge(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, 3)
	res, err := e.Validate(context.Background(), "unknown", domain.NamespaceAlexa, "ocean four")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if res.Valid || res.Outcome != OutcomeNoChallenge {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestValidateExpiredEvenWithCorrectPhrase(t *testing.T) {
	t.Parallel()

	e, clock := newTestEngine(t, 3)
	ctx := context.Background()

	if _, err := e.Create(ctx, "s1", domain.NamespaceAlexa, ""); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	clock.Advance(61 * time.Second)

	res, err := e.Validate(ctx, "s1", domain.NamespaceAlexa, "ocean four")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if res.Valid || res.Outcome != OutcomeExpired {
		t.Fatalf("unexpected result: %+v", res)
	}

	c, _ := e.GetChallenge(ctx, "s1", domain.NamespaceAlexa)
	if c != nil {
		t.Fatal("expired challenge should be removed by validation")
	}
}

func TestValidateNotExpiredAtExactDeadline(t *testing.T) {
	t.Parallel()

	e, clock := newTestEngine(t, 3)
	ctx := context.Background()

	if _, err := e.Create(ctx, "s1", domain.NamespaceAlexa, ""); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	clock.Advance(60 * time.Second)

	res, err := e.Validate(ctx, "s1", domain.NamespaceAlexa, "ocean four")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !res.Valid {
		t.Fatalf("challenge at exact deadline should still validate, got %+v", res)
	}
}

func TestValidateAttemptSequence(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, 3)
	ctx := context.Background()

	if _, err := e.Create(ctx, "s1", domain.NamespaceAlexa, ""); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// 1st and 2nd wrong answers: mismatch with a shrinking budget.
	for i, wantRemaining := range []int{2, 1} {
		res, err := e.Validate(ctx, "s1", domain.NamespaceAlexa, "wrong phrase")
		if err != nil {
			t.Fatalf("Validate #%d failed: %v", i+1, err)
		}
		if res.Outcome != OutcomeMismatch {
			t.Fatalf("Validate #%d outcome = %v, want mismatch", i+1, res.Outcome)
		}
		if res.AttemptsRemaining != wantRemaining {
			t.Fatalf("Validate #%d remaining = %d, want %d", i+1, res.AttemptsRemaining, wantRemaining)
		}
	}

	// 3rd wrong answer exhausts the budget: max_attempts, entry removed.
	res, err := e.Validate(ctx, "s1", domain.NamespaceAlexa, "wrong phrase")
	if err != nil {
		t.Fatalf("Validate #3 failed: %v", err)
	}
	if res.Outcome != OutcomeMaxAttempts {
		t.Fatalf("Validate #3 outcome = %v, want max_attempts", res.Outcome)
	}

	c, _ := e.GetChallenge(ctx, "s1", domain.NamespaceAlexa)
	if c != nil {
		t.Fatal("challenge should be removed after exhausting attempts")
	}
}

func TestValidateCorrectPhraseAfterBudgetExhausted(t *testing.T) {
	t.Parallel()

	// Single attempt: the 2nd call would be the (max+1)-th attempt and must
	// be rejected before its phrase is even compared. With max_attempts=1
	// the budget-exhausting miss already removes the entry, so the correct
	// follow-up sees no challenge at all.
	e, _ := newTestEngine(t, 1)
	ctx := context.Background()

	if _, err := e.Create(ctx, "s1", domain.NamespaceAlexa, ""); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	res, err := e.Validate(ctx, "s1", domain.NamespaceAlexa, "wrong")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if res.Outcome != OutcomeMaxAttempts {
		t.Fatalf("outcome = %v, want max_attempts", res.Outcome)
	}

	res, err = e.Validate(ctx, "s1", domain.NamespaceAlexa, "ocean four")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if res.Valid || res.Outcome != OutcomeNoChallenge {
		t.Fatalf("unexpected result after exhaustion: %+v", res)
	}
}

func TestValidateDoesNotConsumeOtherNamespace(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, 3)
	ctx := context.Background()

	if _, err := e.Create(ctx, "id-1", domain.NamespaceAlexa, ""); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := e.Create(ctx, "id-1", domain.NamespaceSatellite, "night_scene"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	res, err := e.Validate(ctx, "id-1", domain.NamespaceAlexa, "ocean four")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !res.Valid {
		t.Fatalf("unexpected result: %+v", res)
	}

	c, err := e.GetChallenge(ctx, "id-1", domain.NamespaceSatellite)
	if err != nil {
		t.Fatalf("GetChallenge failed: %v", err)
	}
	if c == nil || c.Attempts != 0 {
		t.Fatalf("satellite challenge affected by alexa validation: %+v", c)
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t, 3)
	ctx := context.Background()

	if _, err := e.Create(ctx, "home-1", domain.NamespaceSatellite, "night_scene"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	cancelled, err := e.Cancel(ctx, "home-1", domain.NamespaceSatellite)
	if err != nil || !cancelled {
		t.Fatalf("Cancel = (%v, %v), want (true, nil)", cancelled, err)
	}

	// Cancelling again is benign.
	cancelled, err = e.Cancel(ctx, "home-1", domain.NamespaceSatellite)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled {
		t.Fatal("second Cancel reported a removal")
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	t.Parallel()

	e, clock := newTestEngine(t, 3)
	ctx := context.Background()

	if _, err := e.Create(ctx, "old", domain.NamespaceAlexa, ""); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	clock.Advance(45 * time.Second)
	if _, err := e.Create(ctx, "fresh", domain.NamespaceSatellite, "night_scene"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	clock.Advance(20 * time.Second) // "old" is now 65s past creation

	removed, err := e.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}

	if c, _ := e.GetChallenge(ctx, "fresh", domain.NamespaceSatellite); c == nil {
		t.Fatal("fresh challenge was swept")
	}

	// Sweeping again is idempotent.
	removed, err = e.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 0 {
		t.Fatalf("second Sweep removed %d, want 0", removed)
	}
}

func TestEndToEndScenario(t *testing.T) {
	t.Parallel()

	// Singleton vocab makes the phrase deterministic: always "ocean four".
	e, _ := newTestEngine(t, 3)
	ctx := context.Background()

	c, err := e.Create(ctx, "s1", domain.NamespaceAlexa, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if c.Phrase != "ocean four" {
		t.Fatalf("Phrase = %q, want %q", c.Phrase, "ocean four")
	}

	res, err := e.Validate(ctx, "s1", domain.NamespaceAlexa, "ocean 4")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !res.Valid || res.Intent != "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	res, err = e.Validate(ctx, "s1", domain.NamespaceAlexa, "ocean four")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if res.Outcome != OutcomeNoChallenge {
		t.Fatalf("outcome after consumption = %v, want no_challenge", res.Outcome)
	}
}
