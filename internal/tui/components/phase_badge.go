package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/vibealong/vibealong/internal/sequencer"
	"github.com/vibealong/vibealong/internal/tui/styles"
)

// RenderPhaseBadge renders a sequencer phase with icon and color.
func RenderPhaseBadge(styleSet styles.Styles, phase sequencer.Phase) string {
	icon, label, style := phaseDescriptor(styleSet, phase)
	return style.Render(fmt.Sprintf("%s %s", icon, label))
}

func phaseDescriptor(styleSet styles.Styles, phase sequencer.Phase) (string, string, lipgloss.Style) {
	switch phase {
	case sequencer.PhaseWaiting:
		return ">", "Playing", styleSet.Success
	case sequencer.PhaseCounting:
		return "~", "Working", styleSet.Info
	case sequencer.PhaseAwaitingManual:
		return "?", "Your turn", styleSet.Warning
	case sequencer.PhaseTerminal:
		return "OK", "Finished", styleSet.Accent
	default:
		return "-", "Idle", styleSet.Muted
	}
}
