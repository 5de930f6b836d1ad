// Package scripts provides loading and rendering of chat simulation scripts.
package scripts

import (
	"strings"

	"github.com/vibealong/vibealong/internal/models"
)

// Script is a named, ordered list of scripted messages for one scenario.
type Script struct {
	Name        string          `yaml:"name"`
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Messages    []ScriptMessage `yaml:"messages"`
	Variables   []ScriptVar     `yaml:"variables,omitempty"`
	Tags        []string        `yaml:"tags,omitempty"`
	Source      string          `yaml:"-"` // file path or "builtin"
}

// ScriptMessage is the on-disk form of a scripted message.
type ScriptMessage struct {
	ID       int    `yaml:"id"`
	Sender   string `yaml:"sender"`
	Content  string `yaml:"content"`
	Delay    string `yaml:"delay,omitempty"`
	Duration string `yaml:"duration,omitempty"`
	Manual   bool   `yaml:"manual,omitempty"`
	Action   string `yaml:"action,omitempty"`
}

// ScriptVar describes a variable used in message content.
type ScriptVar struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Default     string `yaml:"default,omitempty"`
	Required    bool   `yaml:"required"`
}

// Find returns the script with the given name, ignoring case.
func Find(items []*Script, name string) *Script {
	name = strings.TrimSpace(name)
	for _, s := range items {
		if strings.EqualFold(s.Name, name) {
			return s
		}
	}
	return nil
}

// FilterByTags returns scripts carrying any of the tags. No tags returns all.
func FilterByTags(items []*Script, tags []string) []*Script {
	if len(tags) == 0 {
		return items
	}
	out := make([]*Script, 0, len(items))
	for _, s := range items {
		if hasAnyTag(s.Tags, tags) {
			out = append(out, s)
		}
	}
	return out
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

// Senders returns the distinct senders in script order.
func (s *Script) Senders() []models.Sender {
	seen := make(map[models.Sender]struct{})
	out := make([]models.Sender, 0, 4)
	for _, m := range s.Messages {
		sender := models.Sender(m.Sender)
		if _, ok := seen[sender]; ok {
			continue
		}
		seen[sender] = struct{}{}
		out = append(out, sender)
	}
	return out
}
