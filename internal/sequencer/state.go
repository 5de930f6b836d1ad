// Package sequencer reveals scripted chat messages on a timeline.
//
// The timeline is a pure transition function, Reduce, over State and Event.
// Reduce never touches a clock; it returns Effects that a driver (Sequencer)
// turns into timers. Every scheduled timer carries the Generation it was
// issued under, and Reduce ignores timer events from older generations, so a
// timer that races a Reset or a new Start can never reveal a message twice.
package sequencer

import (
	"time"

	"github.com/vibealong/vibealong/internal/models"
)

// Phase is the sequencer's position in its lifecycle.
type Phase string

const (
	// PhaseIdle means no run is in progress.
	PhaseIdle Phase = "idle"
	// PhaseWaiting means a reveal timer is pending for the message at Cursor.
	PhaseWaiting Phase = "waiting"
	// PhaseCounting means the last revealed message is counting down.
	PhaseCounting Phase = "counting"
	// PhaseAwaitingManual means the message at Cursor waits for ManualAdvance.
	PhaseAwaitingManual Phase = "awaiting_manual"
	// PhaseTerminal means every message has been revealed.
	PhaseTerminal Phase = "terminal"
)

// DefaultTickInterval is the countdown refresh period.
const DefaultTickInterval = 100 * time.Millisecond

// State is a snapshot of one playback run. Slices are never mutated in
// place, so a State value can be shared freely once returned.
type State struct {
	Script         []models.ScriptedMessage `json:"-"`
	Visible        []models.ScriptedMessage `json:"visible"`
	Cursor         int                      `json:"cursor"`
	Phase          Phase                    `json:"phase"`
	Countdown      time.Duration            `json:"countdown"`
	CountdownTotal time.Duration            `json:"countdown_total"`
	TickInterval   time.Duration            `json:"tick_interval"`
	Generation     uint64                   `json:"generation"`
}

// Event drives a transition.
type Event interface{ isEvent() }

// Start begins a run over Script.
type Start struct {
	Script       []models.ScriptedMessage
	TickInterval time.Duration
}

// TimerFired reports that a reveal delay elapsed.
type TimerFired struct{ Generation uint64 }

// CountdownTick reports that one countdown period elapsed.
type CountdownTick struct{ Generation uint64 }

// ManualAdvance is the external trigger, e.g. a button click.
type ManualAdvance struct{}

// Reset abandons the run.
type Reset struct{}

func (Start) isEvent()         {}
func (TimerFired) isEvent()    {}
func (CountdownTick) isEvent() {}
func (ManualAdvance) isEvent() {}
func (Reset) isEvent()         {}

// Effect is a side effect requested by a transition.
type Effect interface{ isEffect() }

// ScheduleReveal asks for a TimerFired after the delay.
type ScheduleReveal struct {
	After      time.Duration
	Generation uint64
}

// ScheduleTick asks for a CountdownTick after the period.
type ScheduleTick struct {
	After      time.Duration
	Generation uint64
}

// CancelTimers asks for every pending timer to be stopped.
type CancelTimers struct{}

func (ScheduleReveal) isEffect() {}
func (ScheduleTick) isEffect()   {}
func (CancelTimers) isEffect()   {}

// Running reports whether a run is in progress and not finished.
func (s State) Running() bool {
	return s.Phase != PhaseIdle && s.Phase != PhaseTerminal && s.Phase != ""
}

// IsTerminal reports whether the cursor has passed the last message.
func (s State) IsTerminal() bool {
	return s.Phase == PhaseTerminal
}

// Pending returns the next message to reveal, if any.
func (s State) Pending() (models.ScriptedMessage, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Script) {
		return models.ScriptedMessage{}, false
	}
	return s.Script[s.Cursor], true
}

// Typing reports whether a non-requester message is about to appear.
func (s State) Typing() bool {
	if s.Phase != PhaseWaiting {
		return false
	}
	next, ok := s.Pending()
	return ok && next.Sender != models.SenderRequester
}

// Progress returns the countdown progress of the active message, 0 to 100.
func (s State) Progress() float64 {
	if s.Phase != PhaseCounting || s.CountdownTotal <= 0 {
		return 0
	}
	elapsed := s.CountdownTotal - s.Countdown
	return 100 * float64(elapsed) / float64(s.CountdownTotal)
}

// Remaining returns the time left on the active countdown.
func (s State) Remaining() time.Duration {
	if s.Phase != PhaseCounting {
		return 0
	}
	return s.Countdown
}

// Active returns the message whose countdown is running.
func (s State) Active() (models.ScriptedMessage, bool) {
	if s.Phase != PhaseCounting || len(s.Visible) == 0 {
		return models.ScriptedMessage{}, false
	}
	return s.Visible[len(s.Visible)-1], true
}

// Reduce applies ev to s. Events that are invalid in the current phase, and
// timer events from a stale generation, return s unchanged with no effects.
func Reduce(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Start:
		if s.Running() {
			return s, nil
		}
		tick := e.TickInterval
		if tick <= 0 {
			tick = DefaultTickInterval
		}
		next := State{
			Script:       e.Script,
			Phase:        PhaseIdle,
			TickInterval: tick,
			Generation:   s.Generation + 1,
		}
		next, effects := scheduleNext(next)
		return next, append([]Effect{CancelTimers{}}, effects...)

	case TimerFired:
		if e.Generation != s.Generation || s.Phase != PhaseWaiting {
			return s, nil
		}
		return reveal(s)

	case CountdownTick:
		if e.Generation != s.Generation || s.Phase != PhaseCounting {
			return s, nil
		}
		step := s.TickInterval
		if step > s.Countdown {
			step = s.Countdown
		}
		s.Countdown -= step
		if s.Countdown <= 0 {
			s.Countdown = 0
			s.CountdownTotal = 0
			return scheduleNext(s)
		}
		s.Generation++
		return s, []Effect{ScheduleTick{After: minDuration(s.TickInterval, s.Countdown), Generation: s.Generation}}

	case ManualAdvance:
		if s.Phase != PhaseAwaitingManual {
			return s, nil
		}
		return reveal(s)

	case Reset:
		return State{
			Phase:        PhaseIdle,
			TickInterval: s.TickInterval,
			Generation:   s.Generation + 1,
		}, []Effect{CancelTimers{}}
	}

	return s, nil
}

// reveal appends the message at Cursor and decides how to leave it.
func reveal(s State) (State, []Effect) {
	msg, ok := s.Pending()
	if !ok {
		s.Phase = PhaseTerminal
		return s, nil
	}

	if !containsID(s.Visible, msg.ID) {
		visible := make([]models.ScriptedMessage, len(s.Visible), len(s.Visible)+1)
		copy(visible, s.Visible)
		s.Visible = append(visible, msg)
	}
	s.Cursor++

	if msg.HasCountdown() {
		s.Phase = PhaseCounting
		s.Countdown = msg.Duration
		s.CountdownTotal = msg.Duration
		s.Generation++
		return s, []Effect{ScheduleTick{After: minDuration(s.TickInterval, s.Countdown), Generation: s.Generation}}
	}

	return scheduleNext(s)
}

// scheduleNext arranges the reveal of the message at Cursor.
func scheduleNext(s State) (State, []Effect) {
	next, ok := s.Pending()
	if !ok {
		s.Phase = PhaseTerminal
		return s, nil
	}
	if next.Manual() {
		s.Phase = PhaseAwaitingManual
		return s, nil
	}
	s.Phase = PhaseWaiting
	s.Generation++
	return s, []Effect{ScheduleReveal{After: next.Delay, Generation: s.Generation}}
}

func containsID(messages []models.ScriptedMessage, id int) bool {
	for _, m := range messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
