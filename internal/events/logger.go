// Package events provides helpers for recording playback and signup events.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vibealong/vibealong/internal/models"
)

// Repository is the minimal interface needed to write events.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
}

func record(ctx context.Context, repo Repository, eventType models.EventType, entityType models.EntityType, entityID string, payload any) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if entityID == "" {
		return fmt.Errorf("%s id is required", entityType)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return repo.Create(ctx, &models.Event{
		Type:       eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    data,
	})
}

// LogPlaybackStarted records that a session began playing a scenario.
func LogPlaybackStarted(ctx context.Context, repo Repository, sessionID, scenario string, messages int) error {
	return record(ctx, repo, models.EventTypePlaybackStarted, models.EntityTypeSession, sessionID,
		models.PlaybackStartedPayload{Scenario: scenario, Messages: messages})
}

// LogMessageRevealed records one message becoming visible.
func LogMessageRevealed(ctx context.Context, repo Repository, sessionID, scenario string, msg models.ScriptedMessage, position int) error {
	return record(ctx, repo, models.EventTypePlaybackRevealed, models.EntityTypeSession, sessionID,
		models.PlaybackRevealedPayload{Scenario: scenario, MessageID: msg.ID, Sender: msg.Sender, Position: position})
}

// LogPlaybackAdvanced records a manual trigger and whether it was accepted.
func LogPlaybackAdvanced(ctx context.Context, repo Repository, sessionID, scenario string, accepted bool) error {
	return record(ctx, repo, models.EventTypePlaybackAdvanced, models.EntityTypeSession, sessionID,
		models.PlaybackAdvancedPayload{Scenario: scenario, Accepted: accepted})
}

// LogPlaybackReset records a reset and how many messages were visible.
func LogPlaybackReset(ctx context.Context, repo Repository, sessionID, scenario string, visible int) error {
	return record(ctx, repo, models.EventTypePlaybackReset, models.EntityTypeSession, sessionID,
		models.PlaybackResetPayload{Scenario: scenario, Visible: visible})
}

// LogPlaybackCompleted records that every message of a scenario is visible.
func LogPlaybackCompleted(ctx context.Context, repo Repository, sessionID, scenario string, messages int) error {
	return record(ctx, repo, models.EventTypePlaybackCompleted, models.EntityTypeSession, sessionID,
		models.PlaybackCompletedPayload{Scenario: scenario, Messages: messages})
}

// LogSignupSubmitted records a stored signup.
func LogSignupSubmitted(ctx context.Context, repo Repository, signupID string, role models.Role) error {
	return record(ctx, repo, models.EventTypeSignupSubmitted, models.EntityTypeSignup, signupID,
		models.SignupSubmittedPayload{Role: role})
}

// LogSignupFailed records a submission the persister rejected. attemptID
// identifies the attempt since no signup exists.
func LogSignupFailed(ctx context.Context, repo Repository, attemptID string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return record(ctx, repo, models.EventTypeSignupFailed, models.EntityTypeSignup, attemptID,
		models.ErrorPayload{Error: msg, Context: "submit"})
}
