// Package tracker records Alexa users who reached the skill without a home
// mapping, so an operator can assign them from the admin surface.
package tracker

import (
	"sort"
	"sync"
	"time"
)

// DefaultCapacity bounds the tracker when no capacity is configured.
const DefaultCapacity = 100

// UnmappedUser is one unmapped Alexa user and how often they tried.
type UnmappedUser struct {
	AlexaUserID  string    `json:"alexa_user_id"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
	AttemptCount int       `json:"attempt_count"`
}

// UnmappedTracker is a bounded, time-ordered record of unmapped users. When
// full, the entry with the oldest LastSeen is evicted.
type UnmappedTracker struct {
	mu       sync.Mutex
	capacity int
	users    map[string]*UnmappedUser
	now      func() time.Time
}

// New creates a tracker holding at most capacity entries. A non-positive
// capacity falls back to DefaultCapacity.
func New(capacity int) *UnmappedTracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &UnmappedTracker{
		capacity: capacity,
		users:    make(map[string]*UnmappedUser),
		now:      time.Now,
	}
}

// Record notes an attempt by an unmapped Alexa user.
func (t *UnmappedTracker) Record(alexaUserID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if u, ok := t.users[alexaUserID]; ok {
		u.LastSeen = now
		u.AttemptCount++
		return
	}

	if len(t.users) >= t.capacity {
		t.evictOldestLocked()
	}
	t.users[alexaUserID] = &UnmappedUser{
		AlexaUserID:  alexaUserID,
		FirstSeen:    now,
		LastSeen:     now,
		AttemptCount: 1,
	}
}

func (t *UnmappedTracker) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, u := range t.users {
		if oldestID == "" || u.LastSeen.Before(oldest) {
			oldestID = id
			oldest = u.LastSeen
		}
	}
	delete(t.users, oldestID)
}

// Remove drops a user from the tracker, typically after an operator created
// a mapping for them. Reports whether the user was tracked.
func (t *UnmappedTracker) Remove(alexaUserID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.users[alexaUserID]; !ok {
		return false
	}
	delete(t.users, alexaUserID)
	return true
}

// List returns tracked users, most recently seen first.
func (t *UnmappedTracker) List() []UnmappedUser {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]UnmappedUser, 0, len(t.users))
	for _, u := range t.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out
}

// Len returns the number of tracked users.
func (t *UnmappedTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.users)
}
