// Package tui implements the VibeAlong chat simulator.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/vibealong/vibealong/internal/clock"
	"github.com/vibealong/vibealong/internal/logging"
	"github.com/vibealong/vibealong/internal/scripts"
	"github.com/vibealong/vibealong/internal/sequencer"
	"github.com/vibealong/vibealong/internal/tui/components"
	"github.com/vibealong/vibealong/internal/tui/styles"
)

// ErrNoScripts is returned when there is nothing to play.
var ErrNoScripts = errors.New("no scenarios to play")

// Options configure the simulator.
type Options struct {
	Scripts      []*scripts.Script
	Scenario     string // initial scenario; empty picks the first
	Vars         map[string]string
	Theme        string
	TickInterval time.Duration
	Clock        clock.Clock
}

// Run launches the simulator and blocks until the user quits.
func Run(opts Options) error {
	m, err := newModel(opts)
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	_, err = program.Run()
	m.seq.Reset()
	return err
}

const (
	minWidth  = 50
	minHeight = 12
)

type model struct {
	styles  styles.Styles
	scripts []*scripts.Script
	vars    map[string]string
	index   int
	title   string
	seq     *sequencer.Sequencer
	state   sequencer.State
	err     error
	logger  zerolog.Logger

	spinner  spinner.Model
	progress progress.Model

	width  int
	height int
}

func newModel(opts Options) (*model, error) {
	if len(opts.Scripts) == 0 {
		return nil, ErrNoScripts
	}
	theme, err := styles.Lookup(opts.Theme)
	if err != nil {
		return nil, err
	}

	index := 0
	if opts.Scenario != "" {
		found := scripts.Find(opts.Scripts, opts.Scenario)
		if found == nil {
			return nil, fmt.Errorf("scenario %q not found", opts.Scenario)
		}
		for i, s := range opts.Scripts {
			if s == found {
				index = i
			}
		}
	}

	styleSet := styles.BuildStyles(theme)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styleSet.Accent

	m := &model{
		styles:   styleSet,
		scripts:  opts.Scripts,
		vars:     opts.Vars,
		index:    index,
		seq:      sequencer.New(sequencer.Config{TickInterval: opts.TickInterval}, opts.Clock),
		logger:   logging.Component("tui"),
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
	return m, nil
}

func (m *model) Init() tea.Cmd {
	m.start()
	return tea.Batch(m.spinner.Tick, waitForState(m.seq.Updates()))
}

// start compiles and plays the current scenario from the beginning.
func (m *model) start() {
	script := m.scripts[m.index]
	m.title = script.Title
	if m.title == "" {
		m.title = script.Name
	}
	messages, err := scripts.Render(script, m.vars)
	if err != nil {
		m.err = err
		return
	}
	m.seq.Reset()
	if err := m.seq.Start(messages); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.state = m.seq.Snapshot()
	m.logger.Debug().Str("scenario", script.Name).Msg("scenario started")
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", " ", "space":
			m.seq.Advance()
		case "r":
			m.seq.Reset()
		case "s":
			if !m.seq.Snapshot().Running() {
				m.start()
			}
		case "tab":
			m.index = (m.index + 1) % len(m.scripts)
			m.start()
		case "shift+tab":
			m.index = (m.index + len(m.scripts) - 1) % len(m.scripts)
			m.start()
		case "q", "esc", "ctrl+c":
			m.seq.Reset()
			return m, tea.Quit
		}
		m.state = m.seq.Snapshot()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = clampInt(msg.Width-20, 10, 60)
	case stateMsg:
		m.state = sequencer.State(msg)
		return m, waitForState(m.seq.Updates())
	case updatesClosedMsg:
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) View() string {
	if m.width > 0 && m.height > 0 && (m.width < minWidth || m.height < minHeight) {
		return strings.Join([]string{
			m.styles.Warning.Render(fmt.Sprintf("Terminal too small (%dx%d).", m.width, m.height)),
			m.styles.Muted.Render(fmt.Sprintf("Resize to at least %dx%d.", minWidth, minHeight)),
			m.styles.Muted.Render("Press q to quit."),
		}, "\n") + "\n"
	}

	width := m.width
	if width == 0 {
		width = 80
	}

	header := fmt.Sprintf("%s  %s  %s",
		m.styles.Title.Render(m.title),
		components.RenderPhaseBadge(m.styles, m.state.Phase),
		m.styles.Muted.Render(fmt.Sprintf("%d/%d", len(m.state.Visible), len(m.state.Script))),
	)
	lines := []string{header, ""}

	if len(m.state.Visible) == 0 && m.state.Phase != sequencer.PhaseIdle {
		lines = append(lines, components.EmptyConversation(m.title).RenderCompact(m.styles))
	} else {
		maxLines := 0
		if m.height > 0 {
			maxLines = m.height - 8
		}
		lines = append(lines, components.RenderTranscript(m.styles, m.state.Visible, width, maxLines))
	}

	lines = append(lines, "", m.statusLine())
	if m.err != nil {
		lines = append(lines, m.styles.Error.Render(m.err.Error()))
	}
	lines = append(lines, "", m.styles.Muted.Render("enter advance | r reset | s start | tab next scenario | q quit"))
	return strings.Join(lines, "\n") + "\n"
}

// statusLine shows what the conversation is waiting for.
func (m *model) statusLine() string {
	next, hasNext := m.state.Pending()
	switch m.state.Phase {
	case sequencer.PhaseWaiting:
		if m.state.Typing() {
			return fmt.Sprintf("%s %s is typing...", m.spinner.View(), components.SenderLabel(next.Sender))
		}
		return m.styles.Muted.Render("...")
	case sequencer.PhaseCounting:
		return fmt.Sprintf("%s %s",
			m.progress.ViewAs(m.state.Progress()/100),
			m.styles.Muted.Render(fmt.Sprintf("%.1fs left", m.state.Remaining().Seconds())))
	case sequencer.PhaseAwaitingManual:
		label := "Continue"
		if hasNext && next.Action != "" {
			label = next.Action
		}
		return m.styles.Button.Render(label) + m.styles.Muted.Render("  press enter")
	case sequencer.PhaseTerminal:
		return m.styles.Success.Render("Scenario complete.") + m.styles.Muted.Render(" s replay, tab next")
	default:
		return m.styles.Muted.Render("Idle. Press s to start.")
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
