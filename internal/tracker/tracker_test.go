package tracker

import (
	"fmt"
	"testing"
	"time"
)

func TestRecordCountsAttempts(t *testing.T) {
	t.Parallel()

	tr := New(10)
	tr.Record("amzn-u1")
	tr.Record("amzn-u1")
	tr.Record("amzn-u2")

	users := tr.List()
	if len(users) != 2 {
		t.Fatalf("List returned %d users, want 2", len(users))
	}

	byID := make(map[string]UnmappedUser)
	for _, u := range users {
		byID[u.AlexaUserID] = u
	}
	if byID["amzn-u1"].AttemptCount != 2 {
		t.Errorf("amzn-u1 attempts = %d, want 2", byID["amzn-u1"].AttemptCount)
	}
	if byID["amzn-u2"].AttemptCount != 1 {
		t.Errorf("amzn-u2 attempts = %d, want 1", byID["amzn-u2"].AttemptCount)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	t.Parallel()

	tr := New(3)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	tr.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for i := 0; i < 3; i++ {
		tr.Record(fmt.Sprintf("amzn-u%d", i))
	}
	// Refresh u0 so u1 becomes the oldest.
	tr.Record("amzn-u0")

	tr.Record("amzn-u3")
	if tr.Len() != 3 {
		t.Fatalf("Len = %d, want 3", tr.Len())
	}

	for _, u := range tr.List() {
		if u.AlexaUserID == "amzn-u1" {
			t.Fatal("oldest entry amzn-u1 should have been evicted")
		}
	}
}

func TestListOrderedByLastSeen(t *testing.T) {
	t.Parallel()

	tr := New(10)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	tr.Record("amzn-a")
	tr.Record("amzn-b")
	tr.Record("amzn-a") // refreshed, now most recent

	users := tr.List()
	if users[0].AlexaUserID != "amzn-a" || users[1].AlexaUserID != "amzn-b" {
		t.Fatalf("unexpected order: %v, %v", users[0].AlexaUserID, users[1].AlexaUserID)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	tr := New(10)
	tr.Record("amzn-u1")

	if !tr.Remove("amzn-u1") {
		t.Error("Remove should report true for a tracked user")
	}
	if tr.Remove("amzn-u1") {
		t.Error("Remove should report false for an untracked user")
	}
	if tr.Len() != 0 {
		t.Errorf("Len = %d, want 0", tr.Len())
	}
}

func TestDefaultCapacity(t *testing.T) {
	t.Parallel()

	tr := New(0)
	for i := 0; i < DefaultCapacity+20; i++ {
		tr.Record(fmt.Sprintf("amzn-u%d", i))
	}
	if tr.Len() != DefaultCapacity {
		t.Fatalf("Len = %d, want %d", tr.Len(), DefaultCapacity)
	}
}
