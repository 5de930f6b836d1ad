package scripts

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/vibealong/vibealong/internal/models"
)

// Render compiles the script and applies vars to each message's content.
func Render(script *Script, vars map[string]string) ([]models.ScriptedMessage, error) {
	if script == nil {
		return nil, fmt.Errorf("script is required")
	}

	data := make(map[string]string, len(vars))
	for key, value := range vars {
		data[key] = value
	}

	for _, variable := range script.Variables {
		value := strings.TrimSpace(data[variable.Name])
		if value == "" {
			if variable.Default != "" {
				data[variable.Name] = variable.Default
				continue
			}
			if variable.Required {
				return nil, fmt.Errorf("missing required variable %q", variable.Name)
			}
		}
	}

	messages, err := script.Compile()
	if err != nil {
		return nil, err
	}

	for i := range messages {
		text, err := renderText(script.Name, messages[i].Content, data)
		if err != nil {
			return nil, fmt.Errorf("render script %q message %d: %w", script.Name, messages[i].ID, err)
		}
		messages[i].Content = text
	}
	return messages, nil
}

func renderText(name, content string, data map[string]string) (string, error) {
	if !strings.Contains(content, "{{") {
		return content, nil
	}

	parsed, err := template.New(name).
		Funcs(template.FuncMap{"default": defaultValue}).
		Option("missingkey=zero").
		Parse(content)
	if err != nil {
		return "", fmt.Errorf("parse template %q: %w", name, err)
	}

	var out strings.Builder
	if err := parsed.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}

	return out.String(), nil
}

func defaultValue(def string, value any) string {
	if value == nil {
		return def
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	if text == "" {
		return def
	}
	return text
}

// ParseVars parses key=value pairs; an entry may hold several comma-separated pairs.
func ParseVars(values []string) (map[string]string, error) {
	vars := make(map[string]string)
	for _, entry := range values {
		for _, pair := range strings.Split(entry, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("invalid variable %q (expected key=value)", pair)
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, fmt.Errorf("invalid variable %q (empty key)", pair)
			}
			vars[key] = strings.TrimSpace(value)
		}
	}
	return vars, nil
}
