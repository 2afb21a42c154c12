package session

import (
	"context"
	"fmt"
)

// Store defines create/fetch/update of writing sessions keyed by session id.
// Every operation is atomic with respect to one transaction; concurrent
// callers never observe a partially written session.
type Store interface {
	// Create persists a new session with the topic and optional audience
	// populated and returns its generated id. Fails with ConflictError if
	// the generated id already exists.
	Create(ctx context.Context, topic string, audience Audience) (string, error)

	// Get fetches a session by id. Fails with NotFoundError if no session
	// with that id exists.
	Get(ctx context.Context, id string) (*WritingSession, error)

	// Update overwrites topic, audience, outline and content of an
	// existing session and refreshes updated-at. The id and created-at
	// are never changed. Fails with NotFoundError if the id is unknown.
	Update(ctx context.Context, s *WritingSession) error

	// Ping verifies connectivity to the backing database.
	Ping(ctx context.Context) error

	// Close closes the underlying database handle.
	Close() error
}

// NotFoundError reports that no session exists for the requested id.
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.SessionID)
}

// ConflictError reports that a freshly generated session id collided with an
// existing row. Ids are generated locally, so this is a safety check rather
// than an expected race.
type ConflictError struct {
	SessionID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("session id %s already exists", e.SessionID)
}
