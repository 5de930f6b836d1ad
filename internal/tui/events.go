package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vibealong/vibealong/internal/sequencer"
)

// stateMsg carries a sequencer snapshot into the program.
type stateMsg sequencer.State

// updatesClosedMsg reports that the sequencer stopped publishing.
type updatesClosedMsg struct{}

// waitForState blocks on the next snapshot. Update re-arms it after each
// delivery so exactly one reader is ever pending.
func waitForState(updates <-chan sequencer.State) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return stateMsg(state)
	}
}
