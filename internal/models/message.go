package models

import (
	"fmt"
	"strings"
	"time"
)

// Sender identifies which actor authored a scripted message.
type Sender string

const (
	SenderRequester Sender = "requester"
	SenderAssistant Sender = "assistant"
	SenderProvider  Sender = "provider"
	SenderSystem    Sender = "system"
)

// Senders lists the closed set of actor roles.
var Senders = []Sender{SenderRequester, SenderAssistant, SenderProvider, SenderSystem}

// ParseSender normalizes and validates a sender name.
func ParseSender(value string) (Sender, error) {
	s := Sender(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Senders {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown sender %q", value)
}

// ScriptedMessage is one entry of a chat simulation script.
type ScriptedMessage struct {
	// ID is unique within a script.
	ID int `json:"id"`

	// Sender is the actor that "typed" the message.
	Sender Sender `json:"sender"`

	// Content is the display text.
	Content string `json:"content"`

	// Delay is how long to wait after the previous message became visible.
	Delay time.Duration `json:"delay"`

	// Duration keeps the message active for a countdown before auto-advancing.
	// Zero means the message has no countdown.
	Duration time.Duration `json:"duration,omitempty"`

	// RequiresManualAdvance gates the message behind an external trigger.
	RequiresManualAdvance bool `json:"requires_manual_advance,omitempty"`

	// Action is the label of the button that fires the trigger.
	Action string `json:"action,omitempty"`
}

// HasCountdown reports whether the message drives a progress display.
func (m ScriptedMessage) HasCountdown() bool {
	return m.Duration > 0
}

// Manual reports whether the message waits for an external trigger.
func (m ScriptedMessage) Manual() bool {
	return m.RequiresManualAdvance || strings.TrimSpace(m.Action) != ""
}

// Validate checks the message fields in isolation.
func (m ScriptedMessage) Validate() error {
	validation := &ValidationErrors{}
	if m.ID <= 0 {
		validation.AddMessage("id", "id must be positive")
	}
	if _, err := ParseSender(string(m.Sender)); err != nil {
		validation.AddMessage("sender", err.Error())
	}
	if strings.TrimSpace(m.Content) == "" {
		validation.AddMessage("content", "content is required")
	}
	if m.Delay < 0 {
		validation.AddMessage("delay", "delay must be non-negative")
	}
	if m.Duration < 0 {
		validation.AddMessage("duration", "duration must be non-negative")
	}
	return validation.Err()
}
