package domain

import "time"

// Home represents a physical home with voice devices attached to it.
type Home struct {
	HomeID    string    `json:"home_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}

// AlexaMapping links an Amazon user ID to the home it controls. Alexa
// requests carry no home ID of their own, so the mapping is how a verified
// session gets routed to the right automation backend.
type AlexaMapping struct {
	AlexaUserID string    `json:"alexa_user_id"`
	HomeID      string    `json:"home_id"`
	CreatedAt   time.Time `json:"created_at"`
}
