package watch

import (
	"testing"

	"github.com/emanuelplopu/MongoDB-RAG-Agent-sub000/internal/models"
)

func TestStore_QueueOrdering(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.QueueEntry
		wantIDs []string
	}{
		{
			name: "arrival order without priorities",
			entries: []models.QueueEntry{
				{ID: "a", Profile: "alpha"},
				{ID: "b", Profile: "beta"},
				{ID: "c", Profile: "gamma"},
			},
			wantIDs: []string{"a", "b", "c"},
		},
		{
			name: "priority override sorts ahead",
			entries: []models.QueueEntry{
				{ID: "a", Profile: "alpha"},
				{ID: "b", Profile: "beta", Priority: 5},
				{ID: "c", Profile: "gamma"},
			},
			wantIDs: []string{"b", "a", "c"},
		},
		{
			name: "equal priorities keep arrival order",
			entries: []models.QueueEntry{
				{ID: "a", Priority: 1},
				{ID: "b", Priority: 1},
				{ID: "c"},
			},
			wantIDs: []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.SetQueue(tt.entries)

			got := s.Queue()
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("queue[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestStore_HasPendingProfile(t *testing.T) {
	s := NewStore()
	s.SetQueue([]models.QueueEntry{{ID: "a", Profile: "alpha"}})

	if !s.HasPendingProfile("alpha") {
		t.Error("HasPendingProfile(alpha) = false, want true")
	}
	if s.HasPendingProfile("beta") {
		t.Error("HasPendingProfile(beta) = true, want false")
	}

	s.SetQueue(nil)
	if s.HasPendingProfile("alpha") {
		t.Error("HasPendingProfile(alpha) = true after queue emptied")
	}
}

func TestStore_CopiesAreIndependent(t *testing.T) {
	s := NewStore()
	s.SetQueue([]models.QueueEntry{{ID: "a", Profile: "alpha"}})

	got := s.Queue()
	got[0].Profile = "mutated"

	if s.Queue()[0].Profile != "alpha" {
		t.Error("Queue() must return a copy, not the backing slice")
	}
}
