package components

import (
	"strings"
	"testing"

	"github.com/vibealong/vibealong/internal/models"
	"github.com/vibealong/vibealong/internal/sequencer"
	"github.com/vibealong/vibealong/internal/tui/styles"
)

func TestEmptyStateRender(t *testing.T) {
	styleSet := styles.DefaultStyles()

	tests := []struct {
		name  string
		state EmptyState
		want  []string
	}{
		{"title only", EmptyState{Title: "Nothing here"}, []string{"Nothing here"}},
		{"icon and subtitle", EmptyState{Icon: "💬", Title: "Quiet", Subtitle: "Check back"}, []string{"💬", "Quiet", "Check back"}},
		{"suggestions", EmptyScripts(), []string{"No scenarios found", "Try:", "vibealong scripts list", "# see which scripts"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.state.Render(styleSet)
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Fatalf("Render() missing %q in %q", want, out)
				}
			}
		})
	}
}

func TestEmptyStateRenderCompact(t *testing.T) {
	out := EmptyScripts().RenderCompact(styles.DefaultStyles())
	if strings.Contains(out, "\n") {
		t.Fatalf("compact render has a newline: %q", out)
	}
	if !strings.Contains(out, "Try: vibealong scripts list") {
		t.Fatalf("compact render missing first suggestion: %q", out)
	}
}

func TestRenderPhaseBadge(t *testing.T) {
	styleSet := styles.DefaultStyles()
	tests := map[sequencer.Phase]string{
		sequencer.PhaseIdle:           "Idle",
		sequencer.PhaseWaiting:        "Playing",
		sequencer.PhaseCounting:       "Working",
		sequencer.PhaseAwaitingManual: "Your turn",
		sequencer.PhaseTerminal:       "Finished",
	}
	for phase, want := range tests {
		if got := RenderPhaseBadge(styleSet, phase); !strings.Contains(got, want) {
			t.Fatalf("RenderPhaseBadge(%s) = %q, want %q", phase, got, want)
		}
	}
}

func TestRenderTranscriptKeepsTail(t *testing.T) {
	styleSet := styles.DefaultStyles()
	messages := []models.ScriptedMessage{
		{ID: 1, Sender: models.SenderRequester, Content: "first"},
		{ID: 2, Sender: models.SenderAssistant, Content: "second"},
		{ID: 3, Sender: models.SenderSystem, Content: "third"},
	}

	full := RenderTranscript(styleSet, messages, 60, 0)
	for _, want := range []string{"You", "VibeAlong", "System", "first", "second", "third"} {
		if !strings.Contains(full, want) {
			t.Fatalf("transcript missing %q", want)
		}
	}

	tail := RenderTranscript(styleSet, messages, 60, 2)
	if strings.Contains(tail, "first") {
		t.Fatalf("tail should drop early lines: %q", tail)
	}
	if !strings.Contains(tail, "third") {
		t.Fatalf("tail should keep the last message: %q", tail)
	}
}

func TestSenderLabelFallback(t *testing.T) {
	if got := SenderLabel("robot"); got != "robot" {
		t.Fatalf("SenderLabel(robot) = %q", got)
	}
}
