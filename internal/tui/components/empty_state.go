// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/vibealong/vibealong/internal/tui/styles"
)

// EmptyState is a placeholder with optional next steps.
type EmptyState struct {
	Icon        string
	Title       string
	Subtitle    string
	Suggestions []Suggestion
}

// Suggestion is a command or key with a short description.
type Suggestion struct {
	Command     string
	Description string
}

// Render renders the empty state with the given styles.
func (e EmptyState) Render(styleSet styles.Styles) string {
	title := e.Title
	if e.Icon != "" {
		title = e.Icon + "  " + title
	}
	lines := []string{styleSet.Muted.Render(title)}
	if e.Subtitle != "" {
		lines = append(lines, styleSet.Muted.Render(e.Subtitle))
	}

	if len(e.Suggestions) > 0 {
		lines = append(lines, "", styleSet.Text.Render("Try:"))
		for _, s := range e.Suggestions {
			line := "  " + styleSet.Accent.Render(s.Command)
			if s.Description != "" {
				line += styleSet.Muted.Render("  # " + s.Description)
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// RenderCompact renders a single line.
func (e EmptyState) RenderCompact(styleSet styles.Styles) string {
	line := e.Title
	if e.Icon != "" {
		line = e.Icon + " " + line
	}
	if len(e.Suggestions) > 0 {
		line += " Try: " + e.Suggestions[0].Command
	}
	return styleSet.Muted.Render(line)
}

// EmptyScripts is shown when no scenario could be loaded.
func EmptyScripts() EmptyState {
	return EmptyState{
		Icon:     "💬",
		Title:    "No scenarios found",
		Subtitle: "Scenarios are YAML scripts of timed chat messages.",
		Suggestions: []Suggestion{
			{Command: "vibealong scripts list", Description: "see which scripts were loaded"},
			{Command: "--scripts-dir <path>", Description: "load scripts from another directory"},
		},
	}
}

// EmptyConversation is shown before the first message appears.
func EmptyConversation(title string) EmptyState {
	return EmptyState{
		Title:    fmt.Sprintf("%s is about to start", title),
		Subtitle: "Messages appear as the scenario plays.",
	}
}

// EmptyListings is shown when a listing query matches nothing.
func EmptyListings(query string) EmptyState {
	return EmptyState{
		Icon:     "🔍",
		Title:    fmt.Sprintf("No listings match '%s'", query),
		Subtitle: "Clear the search or set the facet back to all.",
	}
}
