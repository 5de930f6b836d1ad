package sequencer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibealong/vibealong/internal/clock"
	"github.com/vibealong/vibealong/internal/models"
)

func newTestSequencer(t *testing.T) (*Sequencer, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(Config{TickInterval: 100 * time.Millisecond}, fake), fake
}

func visibleContents(s State) []string {
	out := make([]string, 0, len(s.Visible))
	for _, m := range s.Visible {
		out = append(out, m.Content)
	}
	return out
}

func visibleIDs(s State) []int {
	out := make([]int, 0, len(s.Visible))
	for _, m := range s.Visible {
		out = append(out, m.ID)
	}
	return out
}

func scenarioScript() []models.ScriptedMessage {
	return []models.ScriptedMessage{
		{ID: 1, Sender: models.SenderRequester, Content: "A", Delay: 1000 * time.Millisecond},
		{ID: 2, Sender: models.SenderAssistant, Content: "B", Delay: 500 * time.Millisecond, RequiresManualAdvance: true},
		{ID: 3, Sender: models.SenderAssistant, Content: "C", Delay: 200 * time.Millisecond},
	}
}

func TestSequencerManualScenario(t *testing.T) {
	seq, fake := newTestSequencer(t)
	require.NoError(t, seq.Start(scenarioScript()))

	fake.Advance(999 * time.Millisecond)
	require.Empty(t, seq.Snapshot().Visible)

	fake.Advance(1 * time.Millisecond)
	require.Equal(t, []string{"A"}, visibleContents(seq.Snapshot()))
	require.Equal(t, PhaseAwaitingManual, seq.Snapshot().Phase)

	// Idle: time passing reveals nothing.
	fake.Advance(10 * time.Second)
	require.Equal(t, []string{"A"}, visibleContents(seq.Snapshot()))
	require.Zero(t, fake.Pending())

	require.True(t, seq.Advance())
	require.Equal(t, []string{"A", "B"}, visibleContents(seq.Snapshot()))

	fake.Advance(199 * time.Millisecond)
	require.Equal(t, []string{"A", "B"}, visibleContents(seq.Snapshot()))
	fake.Advance(1 * time.Millisecond)
	require.Equal(t, []string{"A", "B", "C"}, visibleContents(seq.Snapshot()))
	require.True(t, seq.Snapshot().IsTerminal())
}

func TestSequencerExtraAdvancesAreNoOps(t *testing.T) {
	scripts := map[string][]models.ScriptedMessage{
		"plain": {
			{ID: 1, Sender: models.SenderSystem, Content: "1", Delay: 100 * time.Millisecond},
			{ID: 2, Sender: models.SenderSystem, Content: "2", Delay: 0},
			{ID: 3, Sender: models.SenderSystem, Content: "3", Delay: 300 * time.Millisecond},
		},
		"manual": scenarioScript(),
		"countdown": {
			{ID: 10, Sender: models.SenderSystem, Content: "x", Delay: 50 * time.Millisecond, Duration: 350 * time.Millisecond},
			{ID: 11, Sender: models.SenderProvider, Content: "y", Delay: 50 * time.Millisecond},
			{ID: 12, Sender: models.SenderSystem, Content: "z", Action: "Go"},
			{ID: 13, Sender: models.SenderSystem, Content: "w", Duration: 120 * time.Millisecond},
		},
		"manual first": {
			{ID: 1, Sender: models.SenderSystem, Content: "start", RequiresManualAdvance: true},
			{ID: 2, Sender: models.SenderSystem, Content: "next", Delay: 10 * time.Millisecond},
		},
	}

	for name, script := range scripts {
		t.Run(name, func(t *testing.T) {
			seq, fake := newTestSequencer(t)
			require.NoError(t, seq.Start(script))

			for i := 0; i < 1000 && !seq.Snapshot().IsTerminal(); i++ {
				if seq.Snapshot().Phase == PhaseAwaitingManual {
					require.True(t, seq.Advance())
					continue
				}
				require.False(t, seq.Advance(), "advance must be ignored outside awaiting_manual")
				require.False(t, seq.Advance())
				fake.Advance(10 * time.Millisecond)
			}

			final := seq.Snapshot()
			require.True(t, final.IsTerminal())
			want := make([]int, 0, len(script))
			for _, m := range script {
				want = append(want, m.ID)
			}
			require.Equal(t, want, visibleIDs(final))
			require.Equal(t, int64(len(script)), seq.Stats().MessagesRevealed)
		})
	}
}

func TestSequencerResetMidCountdown(t *testing.T) {
	script := []models.ScriptedMessage{
		{ID: 1, Sender: models.SenderSystem, Content: "counting", Delay: 100 * time.Millisecond, Duration: time.Second},
		{ID: 2, Sender: models.SenderAssistant, Content: "after", Delay: 100 * time.Millisecond},
	}
	seq, fake := newTestSequencer(t)
	require.NoError(t, seq.Start(script))

	fake.Advance(450 * time.Millisecond)
	mid := seq.Snapshot()
	require.Equal(t, PhaseCounting, mid.Phase)
	require.InDelta(t, 30.0, mid.Progress(), 0.001)

	seq.Reset()
	reset := seq.Snapshot()
	require.Equal(t, PhaseIdle, reset.Phase)
	require.Empty(t, reset.Visible)
	require.Zero(t, reset.Cursor)
	require.Zero(t, fake.Pending(), "reset cancels pending timers")

	require.NoError(t, seq.Start(script))
	fake.Advance(100 * time.Millisecond)
	require.Equal(t, []string{"counting"}, visibleContents(seq.Snapshot()))
	require.InDelta(t, 0.0, seq.Snapshot().Progress(), 0.001)

	fake.Advance(1100 * time.Millisecond)
	require.Equal(t, []string{"counting", "after"}, visibleContents(seq.Snapshot()))
	require.True(t, seq.Snapshot().IsTerminal())
}

func TestSequencerStartWhileRunning(t *testing.T) {
	seq, fake := newTestSequencer(t)
	require.NoError(t, seq.Start(scenarioScript()))
	require.ErrorIs(t, seq.Start(scenarioScript()), ErrAlreadyRunning)

	fake.Advance(time.Second)
	require.True(t, seq.Advance())
	fake.Advance(time.Second)
	require.True(t, seq.Snapshot().IsTerminal())

	require.NoError(t, seq.Start(scenarioScript()), "a finished run can be restarted")
	require.Empty(t, seq.Snapshot().Visible)
}

func TestSequencerEmptyScript(t *testing.T) {
	seq, _ := newTestSequencer(t)
	require.ErrorIs(t, seq.Start(nil), ErrEmptyScript)
}

func TestSequencerResetIsSafeAnytime(t *testing.T) {
	seq, _ := newTestSequencer(t)
	seq.Reset()
	seq.Reset()
	assert.Equal(t, PhaseIdle, seq.Snapshot().Phase)
	assert.False(t, seq.Advance())
}

func TestSequencerHooksAndUpdates(t *testing.T) {
	seq, fake := newTestSequencer(t)

	var mu sync.Mutex
	var revealed []int
	var positions []int
	completed := 0
	seq.SetHooks(Hooks{
		OnReveal: func(m models.ScriptedMessage, position int) {
			mu.Lock()
			defer mu.Unlock()
			revealed = append(revealed, m.ID)
			positions = append(positions, position)
		},
		OnComplete: func(State) {
			mu.Lock()
			defer mu.Unlock()
			completed++
		},
	})

	require.NoError(t, seq.Start(scenarioScript()))
	fake.Advance(time.Second)
	seq.Advance()
	fake.Advance(time.Second)

	mu.Lock()
	assert.Equal(t, []int{1, 2, 3}, revealed)
	assert.Equal(t, []int{0, 1, 2}, positions)
	assert.Equal(t, 1, completed)
	mu.Unlock()

	var last State
	for drained := false; !drained; {
		select {
		case st := <-seq.Updates():
			last = st
		default:
			drained = true
		}
	}
	assert.True(t, last.IsTerminal())

	stats := seq.Stats()
	assert.Equal(t, int64(1), stats.RunsStarted)
	assert.Equal(t, int64(1), stats.RunsCompleted)
	assert.Equal(t, int64(1), stats.ManualAdvances)
}

func TestSequencerRealClock(t *testing.T) {
	seq := New(Config{TickInterval: 5 * time.Millisecond}, nil)
	script := []models.ScriptedMessage{
		{ID: 1, Sender: models.SenderSystem, Content: "a", Delay: 5 * time.Millisecond},
		{ID: 2, Sender: models.SenderSystem, Content: "b", Delay: 5 * time.Millisecond, Duration: 20 * time.Millisecond},
		{ID: 3, Sender: models.SenderSystem, Content: "c", Delay: 5 * time.Millisecond},
	}
	require.NoError(t, seq.Start(script))

	require.Eventually(t, func() bool {
		return seq.Snapshot().IsTerminal()
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, []int{1, 2, 3}, visibleIDs(seq.Snapshot()))
}
