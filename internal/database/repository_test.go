package database

import (
	"context"
	"testing"
)

// The id columns are UUID typed, so a malformed id would fail parameter
// encoding before the query runs. The repository must resolve such ids as
// absent without touching the pool; the nil pool here panics if it doesn't.
func TestMalformedIDResolvesAsAbsent(t *testing.T) {
	repo := NewRepository(&DB{})
	ctx := context.Background()

	for _, id := range []string{"", "never-existed", "1234", "client-9"} {
		client, err := repo.GetClientByID(ctx, id)
		if err != nil {
			t.Errorf("GetClientByID(%q) error = %v, want nil", id, err)
		}
		if client != nil {
			t.Errorf("GetClientByID(%q) = %+v, want nil", id, client)
		}

		if err := repo.DeleteClient(ctx, id); err != nil {
			t.Errorf("DeleteClient(%q) error = %v, want nil", id, err)
		}
		if err := repo.DeleteEventsForClient(ctx, id); err != nil {
			t.Errorf("DeleteEventsForClient(%q) error = %v, want nil", id, err)
		}

		events, err := repo.ListEventsForClient(ctx, id, 10)
		if err != nil {
			t.Errorf("ListEventsForClient(%q) error = %v, want nil", id, err)
		}
		if len(events) != 0 {
			t.Errorf("ListEventsForClient(%q) = %d events, want none", id, len(events))
		}
	}
}

func TestValidID(t *testing.T) {
	if !validID("a9f0c1de-3b42-4c8a-9f1e-7d2b5c6a8e01") {
		t.Error("well-formed UUID rejected")
	}
	for _, id := range []string{"", "abc", "a9f0c1de-3b42-4c8a-9f1e"} {
		if validID(id) {
			t.Errorf("validID(%q) = true, want false", id)
		}
	}
}
