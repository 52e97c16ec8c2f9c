// Package auth translates challenge engine operations into a
// platform-neutral request/response shape for the voice adapters.
package auth

import (
	"context"
	"fmt"

	"github.com/dmelnyk/voicegate/internal/challenge"
	"github.com/dmelnyk/voicegate/internal/domain"
)

// DenialReason is the closed set of reasons a response can be denied.
// Adapters branch on this to decide whether the user may retry; they must
// never depend on message text.
type DenialReason string

const (
	DenialNoChallenge DenialReason = "no_challenge"
	DenialExpired     DenialReason = "expired"
	DenialMaxAttempts DenialReason = "max_attempts"
	DenialMismatch    DenialReason = "mismatch"
)

// ChallengeGrant is the response to a challenge request: the phrase the user
// must repeat and the full sentence for the assistant to speak.
type ChallengeGrant struct {
	Phrase     string
	SpeechText string
}

// Verdict is the response to a submitted spoken response.
type Verdict struct {
	Accepted   bool
	SpeechText string
	// Intent is the opaque string supplied at request time, returned only
	// when Accepted.
	Intent string
	// Reason is set only when not Accepted.
	Reason DenialReason
	// AttemptsRemaining is meaningful only for DenialMismatch.
	AttemptsRemaining int
}

// Service orchestrates voice authentication flows on top of the engine.
type Service struct {
	engine *challenge.Engine
}

// NewService creates an authentication façade over the given engine.
func NewService(engine *challenge.Engine) *Service {
	return &Service{engine: engine}
}

// RequestChallenge starts an authentication flow: a new challenge is issued
// for (identifier, namespace) and phrased for the requesting platform.
// Propagates store.ErrChallengeExists when one is already in flight.
func (s *Service) RequestChallenge(ctx context.Context, identifier string, ns domain.Namespace, intent string) (*ChallengeGrant, error) {
	c, err := s.engine.Create(ctx, identifier, ns, intent)
	if err != nil {
		return nil, err
	}

	var speech string
	switch ns {
	case domain.NamespaceAlexa:
		speech = "Security check required. Please say: " + c.Phrase
	case domain.NamespaceSatellite:
		speech = "Security check. Please say: " + c.Phrase
	default:
		speech = "Please say: " + c.Phrase
	}

	return &ChallengeGrant{Phrase: c.Phrase, SpeechText: speech}, nil
}

// SubmitResponse verifies a spoken response. Denial is an ordinary outcome
// carried in the Verdict; the error return is reserved for store failures.
func (s *Service) SubmitResponse(ctx context.Context, identifier string, ns domain.Namespace, spokenResponse string) (*Verdict, error) {
	res, err := s.engine.Validate(ctx, identifier, ns, spokenResponse)
	if err != nil {
		return nil, err
	}

	if res.Valid {
		return &Verdict{
			Accepted:   true,
			SpeechText: "Voice verified.",
			Intent:     res.Intent,
		}, nil
	}

	v := &Verdict{}
	switch res.Outcome {
	case challenge.OutcomeNoChallenge:
		v.Reason = DenialNoChallenge
		v.SpeechText = "No active challenge found. Please start over."
	case challenge.OutcomeExpired:
		v.Reason = DenialExpired
		v.SpeechText = "Challenge expired. Please start over."
	case challenge.OutcomeMaxAttempts:
		v.Reason = DenialMaxAttempts
		v.SpeechText = "Maximum attempts exceeded. Please start over."
	case challenge.OutcomeMismatch:
		v.Reason = DenialMismatch
		v.AttemptsRemaining = res.AttemptsRemaining
		v.SpeechText = fmt.Sprintf("That didn't match. Try again. %d attempts remaining.", res.AttemptsRemaining)
	default:
		return nil, fmt.Errorf("unexpected validation outcome %q", res.Outcome)
	}
	return v, nil
}

// CancelChallenge cancels a pending flow, reporting whether one existed.
func (s *Service) CancelChallenge(ctx context.Context, identifier string, ns domain.Namespace) (bool, error) {
	return s.engine.Cancel(ctx, identifier, ns)
}

// Sweep clears expired challenges. Adapters call it before dispatching.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	return s.engine.Sweep(ctx)
}

// Engine exposes the underlying engine for introspection surfaces.
func (s *Service) Engine() *challenge.Engine {
	return s.engine
}
