// Package domain contains core domain types for the VoiceGate application.
package domain

import (
	"fmt"
	"time"
)

// Namespace identifies the independent identifier space a challenge belongs
// to. The same identifier string may hold separate challenges in different
// namespaces.
type Namespace string

const (
	// NamespaceAlexa keys challenges by Alexa session ID.
	NamespaceAlexa Namespace = "alexa"
	// NamespaceSatellite keys challenges by home ID (FutureProof Homes
	// satellite devices talking through Home Assistant).
	NamespaceSatellite Namespace = "futureproofhome"
)

// Namespaces lists every known namespace.
func Namespaces() []Namespace {
	return []Namespace{NamespaceAlexa, NamespaceSatellite}
}

// ParseNamespace converts a wire string into a Namespace.
func ParseNamespace(s string) (Namespace, error) {
	switch Namespace(s) {
	case NamespaceAlexa:
		return NamespaceAlexa, nil
	case NamespaceSatellite:
		return NamespaceSatellite, nil
	default:
		return "", fmt.Errorf("unknown namespace %q", s)
	}
}

// ChallengeStatus is the lifecycle state of a challenge. Terminal statuses
// (validated, expired, failed) are never persisted: the challenge is removed
// from the store in the same operation that assigns them.
type ChallengeStatus string

const (
	StatusPending   ChallengeStatus = "pending"
	StatusValidated ChallengeStatus = "validated"
	StatusExpired   ChallengeStatus = "expired"
	StatusFailed    ChallengeStatus = "failed"
)

// Challenge is a one-time spoken challenge issued to a caller. At most one
// live challenge exists per (Namespace, Identifier) pair.
type Challenge struct {
	// Identifier is caller-defined: an Alexa session ID or a home ID.
	// Opaque to the engine.
	Identifier string          `json:"identifier"`
	Namespace  Namespace       `json:"namespace"`
	Phrase     string          `json:"phrase"` // normalized expected response
	Status     ChallengeStatus `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
	Attempts   int             `json:"attempts"`
	// Intent is returned verbatim to the caller on successful validation.
	Intent string `json:"intent,omitempty"`
}

// IsExpired reports whether the challenge deadline has passed at t.
func (c *Challenge) IsExpired(t time.Time) bool {
	return t.After(c.ExpiresAt)
}

// Elapsed returns the time since the challenge was created.
func (c *Challenge) Elapsed(t time.Time) time.Duration {
	return t.Sub(c.CreatedAt)
}
