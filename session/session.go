// Package session persists per-article writing sessions.
package session

import "time"

// Audience is the target readership of an article.
type Audience string

const (
	AudienceBeginner     Audience = "beginner"
	AudienceIntermediate Audience = "intermediate"
	AudienceAdvanced     Audience = "advance"
)

// Valid reports whether a is one of the known audience values. The empty
// value is allowed; audience is optional until the client sets it.
func (a Audience) Valid() bool {
	switch a {
	case "", AudienceBeginner, AudienceIntermediate, AudienceAdvanced:
		return true
	}
	return false
}

// OutlineSection is one section descriptor of the article outline. Order
// defines document position; Level expresses heading nesting (h1, h2, ...).
type OutlineSection struct {
	SectionID string `json:"section_id"`
	Title     string `json:"title"`
	Level     int    `json:"level"`
	Order     int    `json:"order"`
}

// WritingSession is the persisted state of one in-progress article. The
// session id and created-at are immutable after creation.
type WritingSession struct {
	SessionID      string            `json:"session_id"`
	Topic          string            `json:"topic"`
	TargetAudience Audience          `json:"target_audience"`
	Outline        []OutlineSection  `json:"outline"`
	Content        map[string]string `json:"content"` // section id -> current text
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
