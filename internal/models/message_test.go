package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSender(t *testing.T) {
	s, err := ParseSender(" Assistant ")
	require.NoError(t, err)
	assert.Equal(t, SenderAssistant, s)

	_, err = ParseSender("robot")
	require.Error(t, err)
}

func TestScriptedMessageManual(t *testing.T) {
	assert.False(t, ScriptedMessage{}.Manual())
	assert.True(t, ScriptedMessage{RequiresManualAdvance: true}.Manual())
	assert.True(t, ScriptedMessage{Action: "Accept offer"}.Manual())
}

func TestScriptedMessageValidate(t *testing.T) {
	valid := ScriptedMessage{ID: 1, Sender: SenderSystem, Content: "hi", Delay: time.Second}
	require.NoError(t, valid.Validate())

	invalid := ScriptedMessage{ID: 0, Sender: "bot", Delay: -time.Second, Duration: -1}
	err := invalid.Validate()
	require.Error(t, err)

	var validation *ValidationErrors
	require.ErrorAs(t, err, &validation)
	fields := validation.Fields()
	for _, field := range []string{"id", "sender", "content", "delay", "duration"} {
		assert.Contains(t, fields, field)
	}
}

func TestListingSearchFields(t *testing.T) {
	l := Listing{Title: "Fix login", Description: "OAuth bug", Tags: []string{"go", "auth"}}
	assert.Equal(t, []string{"Fix login", "OAuth bug", "go", "auth"}, l.SearchFields())
	assert.Equal(t, "", l.FacetValue("platform"))
}

func TestEventValidate(t *testing.T) {
	e := &Event{}
	require.Error(t, e.Validate())

	e = &Event{Type: EventTypePlaybackStarted, EntityType: EntityTypeSession, EntityID: "s-1"}
	require.NoError(t, e.Validate())
}
