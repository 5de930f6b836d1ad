package models

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType categorizes events in the system.
type EventType string

const (
	// Playback events
	EventTypePlaybackStarted   EventType = "playback.started"
	EventTypePlaybackRevealed  EventType = "playback.revealed"
	EventTypePlaybackAdvanced  EventType = "playback.advanced"
	EventTypePlaybackReset     EventType = "playback.reset"
	EventTypePlaybackCompleted EventType = "playback.completed"

	// Signup events
	EventTypeSignupSubmitted EventType = "signup.submitted"
	EventTypeSignupFailed    EventType = "signup.failed"

	// System events
	EventTypeError   EventType = "error"
	EventTypeWarning EventType = "warning"
)

// EntityType identifies the type of entity an event relates to.
type EntityType string

const (
	EntityTypeSession EntityType = "session"
	EntityTypeSignup  EntityType = "signup"
	EntityTypeSystem  EntityType = "system"
)

// Event represents an append-only log entry.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the ID of the related entity.
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Metadata contains additional context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks if the event is valid.
func (e *Event) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(string(e.Type)) == "" {
		validation.AddMessage("type", "event type is required")
	}
	if strings.TrimSpace(string(e.EntityType)) == "" {
		validation.AddMessage("entity_type", "entity_type is required")
	}
	if strings.TrimSpace(e.EntityID) == "" {
		validation.AddMessage("entity_id", "entity_id is required")
	}
	return validation.Err()
}

// PlaybackStartedPayload is the payload for playback.started events.
type PlaybackStartedPayload struct {
	Scenario string `json:"scenario"`
	Messages int    `json:"messages"`
}

// PlaybackRevealedPayload is the payload for playback.revealed events.
type PlaybackRevealedPayload struct {
	Scenario  string `json:"scenario"`
	MessageID int    `json:"message_id"`
	Sender    Sender `json:"sender"`
	Position  int    `json:"position"`
}

// PlaybackAdvancedPayload is the payload for playback.advanced events.
type PlaybackAdvancedPayload struct {
	Scenario string `json:"scenario"`
	Accepted bool   `json:"accepted"`
}

// PlaybackResetPayload is the payload for playback.reset events.
type PlaybackResetPayload struct {
	Scenario string `json:"scenario"`
	Visible  int    `json:"visible"`
}

// SignupSubmittedPayload is the payload for signup.submitted events. The
// event log is readable by any dashboard user, so it carries no contact details.
type SignupSubmittedPayload struct {
	Role Role `json:"role"`
}

// ErrorPayload is the payload for error and signup.failed events.
type ErrorPayload struct {
	Error   string `json:"error"`
	Context string `json:"context,omitempty"`
}

// PlaybackCompletedPayload is the payload for playback.completed events.
type PlaybackCompletedPayload struct {
	Scenario string `json:"scenario"`
	Messages int    `json:"messages"`
}
