// Package bus mirrors console activity to optional external consumers over
// Redis Streams. The console is fully functional offline; when no Redis URL
// is configured, or the connection fails at startup, a no-op bus takes its
// place and every publish is silently dropped.
package bus

import (
	"context"
	"io"
	"log"
)

// Activity event types.
const (
	EventNoteAdded       = "note.added"
	EventCaseCreated     = "case.created"
	EventCaseDeleted     = "case.deleted"
	EventEvidenceAdded   = "evidence.added"
	EventEvidenceDeleted = "evidence.deleted"
	EventContextChanged  = "context.changed"
	EventExportCreated   = "export.created"
)

// Event is one activity record as it lands on the stream.
type Event struct {
	Type      string `json:"type"`
	CaseID    string `json:"case_id,omitempty"`
	EntityID  string `json:"entity_id,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Actor     string `json:"actor,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Bus defines the interface for activity publishers.
type Bus interface {
	// Publish sends one activity event.
	Publish(ctx context.Context, ev Event) error

	// Close closes the bus connection.
	Close() error
}

// NewBus creates a bus instance based on the Redis URL. An empty URL selects
// the null bus; a URL that cannot be reached degrades to the null bus with a
// logged warning rather than an error.
func NewBus(redisURL string, logger *log.Logger) Bus {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	if redisURL == "" {
		return NewNullBus(logger)
	}

	rb, err := NewRedisBus(redisURL, logger)
	if err != nil {
		logger.Printf("activity bus unavailable, continuing without: %v", err)
		return NewNullBus(logger)
	}
	return rb
}
