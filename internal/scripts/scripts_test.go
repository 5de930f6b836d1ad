package scripts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vibealong/vibealong/internal/models"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestLoadScript(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "example.yaml", `name: example
description: Example script
messages:
  - sender: requester
    content: "Hello {{.name}}"
    delay: 1s
  - sender: Assistant
    content: "Working on it"
    delay: 500ms
    duration: 2s
  - sender: system
    content: "Done"
    action: "Confirm"
    delay: 100ms
`)

	script, err := LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if script.Name != "example" {
		t.Fatalf("expected name example, got %q", script.Name)
	}
	if script.Source != path {
		t.Fatalf("expected source %q, got %q", path, script.Source)
	}
	if script.Messages[1].ID != 2 {
		t.Fatalf("expected positional id 2, got %d", script.Messages[1].ID)
	}
	if script.Messages[1].Sender != "assistant" {
		t.Fatalf("expected sender to be normalized, got %q", script.Messages[1].Sender)
	}
	if !script.Messages[2].Manual {
		t.Fatalf("expected action to imply manual advance")
	}
}

func TestLoadScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing name", "messages:\n  - sender: system\n    content: hi\n", "name is required"},
		{"no messages", "name: x\n", "messages are required"},
		{"bad sender", "name: x\nmessages:\n  - sender: robot\n    content: hi\n", "unknown sender"},
		{"empty content", "name: x\nmessages:\n  - sender: system\n", "content is required"},
		{"bad delay", "name: x\nmessages:\n  - sender: system\n    content: hi\n    delay: soon\n", "invalid delay"},
		{"negative duration", "name: x\nmessages:\n  - sender: system\n    content: hi\n    duration: -1s\n", "must not be negative"},
		{"duplicate id", "name: x\nmessages:\n  - id: 1\n    sender: system\n    content: a\n  - id: 1\n    sender: system\n    content: b\n", "duplicate message id"},
		{"duration before manual", "name: x\nmessages:\n  - sender: system\n    content: a\n    duration: 1s\n  - sender: system\n    content: b\n    manual: true\n", "followed by manual"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, t.TempDir(), "bad.yaml", tt.body)
			_, err := LoadScript(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRender(t *testing.T) {
	script := &Script{
		Name: "example",
		Variables: []ScriptVar{
			{Name: "who", Default: "world"},
		},
		Messages: []ScriptMessage{
			{ID: 1, Sender: "assistant", Content: "Hello {{.who}}", Delay: "1s"},
			{ID: 2, Sender: "system", Content: "Bye {{.other | default \"friend\"}}", Duration: "2s"},
		},
	}

	messages, err := Render(script, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Content != "Hello world" {
		t.Fatalf("unexpected content: %q", messages[0].Content)
	}
	if messages[0].Delay != time.Second {
		t.Fatalf("unexpected delay: %v", messages[0].Delay)
	}
	if messages[1].Content != "Bye friend" {
		t.Fatalf("unexpected content: %q", messages[1].Content)
	}
	if messages[1].Duration != 2*time.Second {
		t.Fatalf("unexpected duration: %v", messages[1].Duration)
	}
	if messages[1].Sender != models.SenderSystem {
		t.Fatalf("unexpected sender: %q", messages[1].Sender)
	}
}

func TestRenderRequired(t *testing.T) {
	script := &Script{
		Name:      "required",
		Variables: []ScriptVar{{Name: "who", Required: true}},
		Messages:  []ScriptMessage{{ID: 1, Sender: "system", Content: "Hi {{.who}}"}},
	}

	if _, err := Render(script, map[string]string{}); err == nil {
		t.Fatalf("expected error for missing required variable")
	}
	if _, err := Render(script, map[string]string{"who": "Ana"}); err != nil {
		t.Fatalf("Render with variable: %v", err)
	}
}

func TestLoadBuiltinScripts(t *testing.T) {
	items, err := LoadBuiltinScripts()
	if err != nil {
		t.Fatalf("LoadBuiltinScripts: %v", err)
	}
	if len(items) < 4 {
		t.Fatalf("expected at least 4 builtin scripts, got %d", len(items))
	}
	for _, s := range items {
		if s.Source != "builtin" {
			t.Fatalf("expected builtin source, got %q", s.Source)
		}
		if _, err := Render(s, nil); err != nil {
			t.Fatalf("builtin %q does not render: %v", s.Name, err)
		}
	}
	if Find(items, "BUG-FIX") == nil {
		t.Fatalf("expected case-insensitive lookup of bug-fix")
	}
}

func TestLoadFromSearchPathsPrecedence(t *testing.T) {
	extra := t.TempDir()
	writeScript(t, extra, "bug.yaml", "name: bug-fix\nmessages:\n  - sender: system\n    content: overridden\n")

	items, err := LoadFromSearchPaths("", extra)
	if err != nil {
		t.Fatalf("LoadFromSearchPaths: %v", err)
	}
	s := Find(items, "bug-fix")
	if s == nil {
		t.Fatalf("expected bug-fix to resolve")
	}
	if s.Source == "builtin" {
		t.Fatalf("expected extra dir to take precedence over builtin")
	}
	if Find(items, "consultation") == nil {
		t.Fatalf("expected builtins to fill in remaining scripts")
	}
}

func TestFilterByTags(t *testing.T) {
	items := []*Script{
		{Name: "a", Tags: []string{"task", "debugging"}},
		{Name: "b", Tags: []string{"consultation"}},
		{Name: "c", Tags: nil},
	}

	tests := []struct {
		name     string
		tags     []string
		expected int
	}{
		{"no filter", nil, 3},
		{"task", []string{"TASK"}, 1},
		{"multiple", []string{"task", "consultation"}, 2},
		{"none", []string{"missing"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilterByTags(items, tt.tags); len(got) != tt.expected {
				t.Errorf("FilterByTags() = %d items, want %d", len(got), tt.expected)
			}
		})
	}
}

func TestParseVars(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
		wantErr bool
	}{
		{"single var", []string{"key=value"}, 1, false},
		{"comma separated", []string{"k1=v1,k2=v2"}, 2, false},
		{"empty value", []string{"key="}, 1, false},
		{"missing equals", []string{"invalid"}, 0, true},
		{"empty key", []string{"=value"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars, err := ParseVars(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVars() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(vars) != tt.wantLen {
				t.Fatalf("ParseVars() = %d vars, want %d", len(vars), tt.wantLen)
			}
		})
	}
}
