package sequencer

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vibealong/vibealong/internal/clock"
	"github.com/vibealong/vibealong/internal/logging"
	"github.com/vibealong/vibealong/internal/models"
)

// Sequencer errors.
var (
	ErrAlreadyRunning = errors.New("sequencer already running")
	ErrEmptyScript    = errors.New("script has no messages")
)

// Config contains sequencer configuration.
type Config struct {
	// TickInterval is how often a countdown refreshes.
	// Default: 100 milliseconds.
	TickInterval time.Duration

	// UpdateBuffer is the capacity of the Updates channel.
	// Default: 64.
	UpdateBuffer int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval: DefaultTickInterval,
		UpdateBuffer: 64,
	}
}

// Hooks receive notifications after a transition commits. They run on the
// goroutine that caused the transition, outside the sequencer lock.
type Hooks struct {
	OnReveal   func(msg models.ScriptedMessage, position int)
	OnComplete func(state State)
}

// Stats contains sequencer statistics.
type Stats struct {
	RunsStarted      int64
	RunsCompleted    int64
	MessagesRevealed int64
	ManualAdvances   int64
	IgnoredAdvances  int64
	StaleTimers      int64
}

// Sequencer drives Reduce from a clock. It is safe for concurrent use.
type Sequencer struct {
	config Config
	clock  clock.Clock
	hooks  Hooks
	logger zerolog.Logger

	mu      sync.Mutex
	state   State
	timer   clock.Timer
	stats   Stats
	updates chan State
}

// New creates a Sequencer. A nil clock uses real time.
func New(config Config, clk clock.Clock) *Sequencer {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultConfig().TickInterval
	}
	if config.UpdateBuffer <= 0 {
		config.UpdateBuffer = DefaultConfig().UpdateBuffer
	}
	if clk == nil {
		clk = clock.Real()
	}

	return &Sequencer{
		config:  config,
		clock:   clk,
		logger:  logging.Component("sequencer"),
		state:   State{Phase: PhaseIdle, TickInterval: config.TickInterval},
		updates: make(chan State, config.UpdateBuffer),
	}
}

// SetHooks installs transition hooks. Call before Start.
func (s *Sequencer) SetHooks(h Hooks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = h
}

// Start begins revealing script. A run that has not reached its terminal
// message must be Reset first.
func (s *Sequencer) Start(script []models.ScriptedMessage) error {
	if len(script) == 0 {
		return ErrEmptyScript
	}

	s.mu.Lock()
	if s.state.Running() {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.stats.RunsStarted++
	s.mu.Unlock()

	s.logger.Debug().Int("messages", len(script)).Msg("sequencer starting")
	s.dispatch(Start{Script: script, TickInterval: s.config.TickInterval})
	return nil
}

// Advance fires the manual trigger. It reports false, and does nothing, unless
// the sequencer is waiting for exactly this trigger.
func (s *Sequencer) Advance() bool {
	accepted := s.dispatch(ManualAdvance{})

	s.mu.Lock()
	if accepted {
		s.stats.ManualAdvances++
	} else {
		s.stats.IgnoredAdvances++
	}
	s.mu.Unlock()

	if !accepted {
		s.logger.Debug().Msg("advance ignored")
	}
	return accepted
}

// Reset cancels pending timers and clears the run. It is safe at any point.
func (s *Sequencer) Reset() {
	s.dispatch(Reset{})
}

// Snapshot returns the current state.
func (s *Sequencer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns sequencer statistics.
func (s *Sequencer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Updates returns a channel of state snapshots, one per accepted transition.
// When the consumer falls behind the oldest snapshot is dropped.
func (s *Sequencer) Updates() <-chan State {
	return s.updates
}

// dispatch applies ev and reports whether it changed the state.
func (s *Sequencer) dispatch(ev Event) bool {
	s.mu.Lock()
	prev := s.state
	next, effects := Reduce(prev, ev)
	changed := !sameState(prev, next)
	if !changed {
		if _, isTimer := ev.(TimerFired); isTimer {
			s.stats.StaleTimers++
		}
		if _, isTick := ev.(CountdownTick); isTick {
			s.stats.StaleTimers++
		}
		s.mu.Unlock()
		return false
	}

	s.state = next
	for _, effect := range effects {
		s.applyEffect(effect)
	}

	var revealed []models.ScriptedMessage
	if _, isStart := ev.(Start); !isStart && len(next.Visible) > len(prev.Visible) {
		revealed = next.Visible[len(prev.Visible):]
	}
	s.stats.MessagesRevealed += int64(len(revealed))
	completed := next.IsTerminal() && !prev.IsTerminal()
	if completed {
		s.stats.RunsCompleted++
	}
	hooks := s.hooks
	s.publish(next)
	s.mu.Unlock()

	for i, msg := range revealed {
		position := len(next.Visible) - len(revealed) + i
		s.logger.Debug().
			Int("message_id", msg.ID).
			Str("sender", string(msg.Sender)).
			Uint64("generation", next.Generation).
			Msg("message revealed")
		if hooks.OnReveal != nil {
			hooks.OnReveal(msg, position)
		}
	}
	if completed {
		s.logger.Debug().Int("visible", len(next.Visible)).Msg("sequencer completed")
		if hooks.OnComplete != nil {
			hooks.OnComplete(next)
		}
	}
	return true
}

// applyEffect turns an effect into timer operations. Caller holds s.mu.
func (s *Sequencer) applyEffect(effect Effect) {
	switch e := effect.(type) {
	case CancelTimers:
		s.stopTimer()
	case ScheduleReveal:
		s.stopTimer()
		gen := e.Generation
		s.timer = s.clock.AfterFunc(e.After, func() { s.dispatch(TimerFired{Generation: gen}) })
	case ScheduleTick:
		s.stopTimer()
		gen := e.Generation
		s.timer = s.clock.AfterFunc(e.After, func() { s.dispatch(CountdownTick{Generation: gen}) })
	}
}

func (s *Sequencer) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// publish sends a snapshot without blocking. Caller holds s.mu.
func (s *Sequencer) publish(state State) {
	select {
	case s.updates <- state:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- state:
	default:
	}
}

func sameState(a, b State) bool {
	return a.Generation == b.Generation &&
		a.Phase == b.Phase &&
		a.Cursor == b.Cursor &&
		a.Countdown == b.Countdown &&
		len(a.Visible) == len(b.Visible)
}
