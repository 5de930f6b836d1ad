package scripts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vibealong/vibealong/internal/models"
)

// LoadScript reads a single script from disk.
func LoadScript(path string) (*Script, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("script path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}

	script, err := parseScript(data)
	if err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	script.Source = path
	return script, nil
}

// LoadScriptsFromDir loads all scripts from a directory. A missing directory
// yields no scripts.
func LoadScriptsFromDir(dir string) ([]*Script, error) {
	if strings.TrimSpace(dir) == "" {
		return []*Script{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Script{}, nil
		}
		return nil, fmt.Errorf("read scripts dir %s: %w", dir, err)
	}

	scripts := make([]*Script, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		script, err := LoadScript(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, script)
	}

	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Name < scripts[j].Name
	})

	return scripts, nil
}

func parseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, err
	}

	script.Name = strings.TrimSpace(script.Name)
	if script.Name == "" {
		return nil, fmt.Errorf("script name is required")
	}
	script.Title = strings.TrimSpace(script.Title)
	script.Description = strings.TrimSpace(script.Description)

	if len(script.Messages) == 0 {
		return nil, fmt.Errorf("script messages are required")
	}

	seenVars := make(map[string]struct{})
	for i := range script.Variables {
		name := strings.TrimSpace(script.Variables[i].Name)
		if name == "" {
			return nil, fmt.Errorf("script variable name is required")
		}
		if _, exists := seenVars[name]; exists {
			return nil, fmt.Errorf("duplicate script variable %q", name)
		}
		seenVars[name] = struct{}{}
		script.Variables[i].Name = name
	}

	for i := range script.Messages {
		if script.Messages[i].ID == 0 {
			script.Messages[i].ID = i + 1
		}
		if err := normalizeMessage(&script.Messages[i]); err != nil {
			return nil, fmt.Errorf("script message %d: %w", i+1, err)
		}
	}

	if _, err := script.Compile(); err != nil {
		return nil, err
	}

	return &script, nil
}

func normalizeMessage(msg *ScriptMessage) error {
	msg.Sender = strings.ToLower(strings.TrimSpace(msg.Sender))
	msg.Content = strings.TrimSpace(msg.Content)
	msg.Delay = strings.TrimSpace(msg.Delay)
	msg.Duration = strings.TrimSpace(msg.Duration)
	msg.Action = strings.TrimSpace(msg.Action)

	if msg.Action != "" {
		msg.Manual = true
	}
	if msg.Content == "" {
		return fmt.Errorf("message content is required")
	}
	if _, err := models.ParseSender(msg.Sender); err != nil {
		return err
	}
	if _, err := parseOptionalDuration("delay", msg.Delay); err != nil {
		return err
	}
	if _, err := parseOptionalDuration("duration", msg.Duration); err != nil {
		return err
	}
	return nil
}

func parseOptionalDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}

// Compile converts the script into scripted messages without rendering
// variables, and checks the cross-message rules: unique IDs, and no duration
// message directly followed by a manual one.
func (s *Script) Compile() ([]models.ScriptedMessage, error) {
	out := make([]models.ScriptedMessage, 0, len(s.Messages))
	ids := make(map[int]struct{}, len(s.Messages))

	for i, raw := range s.Messages {
		delay, err := parseOptionalDuration("delay", raw.Delay)
		if err != nil {
			return nil, fmt.Errorf("script %q message %d: %w", s.Name, i+1, err)
		}
		duration, err := parseOptionalDuration("duration", raw.Duration)
		if err != nil {
			return nil, fmt.Errorf("script %q message %d: %w", s.Name, i+1, err)
		}
		msg := models.ScriptedMessage{
			ID:                    raw.ID,
			Sender:                models.Sender(raw.Sender),
			Content:               raw.Content,
			Delay:                 delay,
			Duration:              duration,
			RequiresManualAdvance: raw.Manual,
			Action:                raw.Action,
		}
		if err := msg.Validate(); err != nil {
			return nil, fmt.Errorf("script %q message %d: %w", s.Name, i+1, err)
		}
		if _, dup := ids[msg.ID]; dup {
			return nil, fmt.Errorf("script %q: duplicate message id %d", s.Name, msg.ID)
		}
		ids[msg.ID] = struct{}{}
		out = append(out, msg)
	}

	if err := CheckTransitions(out); err != nil {
		return nil, fmt.Errorf("script %q: %w", s.Name, err)
	}
	return out, nil
}

// CheckTransitions enforces that a single policy governs each transition.
func CheckTransitions(messages []models.ScriptedMessage) error {
	for i := 0; i+1 < len(messages); i++ {
		if messages[i].HasCountdown() && messages[i+1].Manual() {
			return fmt.Errorf("message %d has a duration and is followed by manual message %d", messages[i].ID, messages[i+1].ID)
		}
	}
	return nil
}
