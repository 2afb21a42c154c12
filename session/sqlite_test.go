package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGetDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "Go testing patterns", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id == "" {
		t.Fatal("Create returned an empty session id")
	}

	ws, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ws.SessionID != id {
		t.Errorf("session id = %q, want %q", ws.SessionID, id)
	}
	if ws.Topic != "Go testing patterns" {
		t.Errorf("topic = %q", ws.Topic)
	}
	if ws.TargetAudience != "" {
		t.Errorf("new session must have no audience, got %q", ws.TargetAudience)
	}
	if ws.Outline == nil || len(ws.Outline) != 0 {
		t.Errorf("new session outline must be empty, got %v", ws.Outline)
	}
	if ws.Content == nil || len(ws.Content) != 0 {
		t.Errorf("new session content must be empty, got %v", ws.Content)
	}
	if ws.CreatedAt.IsZero() || ws.UpdatedAt.IsZero() {
		t.Error("timestamps must be set on create")
	}
	if !ws.CreatedAt.Equal(ws.UpdatedAt) {
		t.Errorf("created_at %v and updated_at %v must match on create", ws.CreatedAt, ws.UpdatedAt)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "initial topic", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	created, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	updated := &WritingSession{
		SessionID:      id,
		Topic:          "revised topic",
		TargetAudience: AudienceBeginner,
		Outline: []OutlineSection{
			{SectionID: "s1", Title: "Intro", Level: 2, Order: 1},
		},
		Content: map[string]string{"s1": "draft text"},
	}
	if err := store.Update(ctx, updated); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get after update failed: %v", err)
	}
	if got.Topic != "revised topic" {
		t.Errorf("topic = %q", got.Topic)
	}
	if got.TargetAudience != AudienceBeginner {
		t.Errorf("audience = %q", got.TargetAudience)
	}
	if len(got.Outline) != 1 || got.Outline[0].SectionID != "s1" {
		t.Errorf("outline = %v", got.Outline)
	}
	if got.Content["s1"] != "draft text" {
		t.Errorf("content = %v", got.Content)
	}

	// Identity fields never move; updated_at strictly advances.
	if got.SessionID != id {
		t.Errorf("session id changed to %q", got.SessionID)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("created_at moved from %v to %v", created.CreatedAt, got.CreatedAt)
	}
	if !got.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("updated_at %v must be strictly after %v", got.UpdatedAt, created.UpdatedAt)
	}
}

func TestUpdateAlwaysAdvancesUpdatedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "t", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ws, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	ws.Outline = []OutlineSection{{SectionID: "s1", Title: "Intro", Level: 2, Order: 1}}
	ws.Content = map[string]string{"s1": "draft"}

	prev := ws.UpdatedAt
	for i := 0; i < 3; i++ {
		if err := store.Update(ctx, ws); err != nil {
			t.Fatalf("Update %d failed: %v", i, err)
		}
		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get %d failed: %v", i, err)
		}
		if !got.UpdatedAt.After(prev) {
			t.Fatalf("update %d: updated_at %v did not advance past %v", i, got.UpdatedAt, prev)
		}
		// Identical updates are idempotent on the data itself.
		if len(got.Outline) != 1 || got.Outline[0].SectionID != "s1" {
			t.Fatalf("update %d: outline drifted to %v", i, got.Outline)
		}
		if len(got.Content) != 1 || got.Content["s1"] != "draft" {
			t.Fatalf("update %d: content drifted to %v", i, got.Content)
		}
		prev = got.UpdatedAt
	}
}

func TestCreatePersistsAudience(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, "t", AudienceBeginner)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ws, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ws.TargetAudience != AudienceBeginner {
		t.Errorf("audience = %q, want %q", ws.TargetAudience, AudienceBeginner)
	}
}

func TestCreateIDCollision(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	store.newID = func() string { return "fixed-id" }

	if _, err := store.Create(ctx, "first", ""); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	_, err := store.Create(ctx, "second", "")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.SessionID != "fixed-id" {
		t.Errorf("conflict session id = %q", conflict.SessionID)
	}
}

func TestGetMissingSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-id")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.SessionID != "no-such-id" {
		t.Errorf("error session id = %q", notFound.SessionID)
	}
}

func TestUpdateMissingSession(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(context.Background(), &WritingSession{SessionID: "no-such-id", Topic: "t"})
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestAudienceValid(t *testing.T) {
	valid := []Audience{"", AudienceBeginner, AudienceIntermediate, AudienceAdvanced}
	for _, a := range valid {
		if !a.Valid() {
			t.Errorf("audience %q must be valid", a)
		}
	}
	for _, a := range []Audience{"expert", "advanced", "novice"} {
		if a.Valid() {
			t.Errorf("audience %q must be rejected", a)
		}
	}
}
