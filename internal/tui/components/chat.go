package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vibealong/vibealong/internal/models"
	"github.com/vibealong/vibealong/internal/tui/styles"
)

var senderLabels = map[models.Sender]string{
	models.SenderRequester: "You",
	models.SenderAssistant: "VibeAlong",
	models.SenderProvider:  "Provider",
	models.SenderSystem:    "System",
}

// SenderLabel is the display name of a sender.
func SenderLabel(sender models.Sender) string {
	if label, ok := senderLabels[sender]; ok {
		return label
	}
	return string(sender)
}

// RenderMessage renders one chat message wrapped to width. Requester
// messages are right-aligned.
func RenderMessage(styleSet styles.Styles, msg models.ScriptedMessage, width int) string {
	if width <= 0 {
		width = 60
	}
	bubbleWidth := width * 3 / 4
	if bubbleWidth < 20 {
		bubbleWidth = width
	}

	label := styleSet.Sender(msg.Sender).Render(SenderLabel(msg.Sender))
	body := styleSet.Text
	if msg.Sender == models.SenderSystem {
		body = styleSet.Muted.Italic(true)
	}
	bubble := lipgloss.JoinVertical(lipgloss.Left, label, body.Width(bubbleWidth).Render(msg.Content))

	if msg.Sender == models.SenderRequester {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble)
	}
	return bubble
}

// RenderTranscript renders messages separated by blank lines, keeping only
// the last maxLines lines when maxLines is positive.
func RenderTranscript(styleSet styles.Styles, messages []models.ScriptedMessage, width, maxLines int) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, RenderMessage(styleSet, msg, width))
	}
	out := strings.Join(parts, "\n\n")
	if maxLines <= 0 {
		return out
	}
	lines := strings.Split(out, "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n")
}
