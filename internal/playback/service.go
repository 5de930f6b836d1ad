// Package playback runs scripted chat scenarios for many concurrent viewers.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vibealong/vibealong/internal/clock"
	"github.com/vibealong/vibealong/internal/events"
	"github.com/vibealong/vibealong/internal/logging"
	"github.com/vibealong/vibealong/internal/models"
	"github.com/vibealong/vibealong/internal/scripts"
	"github.com/vibealong/vibealong/internal/sequencer"
)

// Service errors.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrTooManySessions  = errors.New("too many open sessions")
)

// Config contains playback service configuration.
type Config struct {
	// MaxSessions caps concurrently open sessions.
	// Default: 256.
	MaxSessions int

	// TickInterval is the countdown refresh period for every session.
	// Default: 100 milliseconds.
	TickInterval time.Duration

	// SubscriberBuffer is the per-subscriber channel capacity.
	// Default: 16.
	SubscriberBuffer int

	// IdleTimeout is how long an unwatched session may go untouched before
	// Sweep closes it. Reveals count as activity.
	// Default: 15 minutes.
	IdleTimeout time.Duration

	// SweepInterval is how often RunJanitor sweeps.
	// Default: 1 minute.
	SweepInterval time.Duration
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxSessions:      256,
		TickInterval:     sequencer.DefaultTickInterval,
		SubscriberBuffer: 16,
		IdleTimeout:      15 * time.Minute,
		SweepInterval:    time.Minute,
	}
}

// Service owns playback sessions.
type Service struct {
	config  Config
	scripts []*scripts.Script
	events  events.Repository
	clock   clock.Clock
	logger  zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a playback service. repo may be nil to skip the event
// log; clk may be nil to use real time.
func NewService(config Config, library []*scripts.Script, repo events.Repository, clk clock.Clock) *Service {
	defaults := DefaultConfig()
	if config.MaxSessions <= 0 {
		config.MaxSessions = defaults.MaxSessions
	}
	if config.TickInterval <= 0 {
		config.TickInterval = defaults.TickInterval
	}
	if config.SubscriberBuffer <= 0 {
		config.SubscriberBuffer = defaults.SubscriberBuffer
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = defaults.IdleTimeout
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{
		config:   config,
		scripts:  library,
		events:   repo,
		clock:    clk,
		logger:   logging.Component("playback"),
		sessions: make(map[string]*Session),
	}
}

// Scripts returns the scenarios the service can play.
func (s *Service) Scripts() []*scripts.Script {
	return s.scripts
}

// Start opens a session and begins playing scenario.
func (s *Service) Start(ctx context.Context, scenario string) (*Session, error) {
	script, messages, err := s.compile(scenario)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	session := &Session{
		ID:          uuid.New().String(),
		CreatedAt:   now,
		lastActive:  now,
		scenario:    script.Name,
		title:       script.Title,
		subscribers: make(map[int]chan sequencer.State),
		done:        make(chan struct{}),
	}
	session.seq = sequencer.New(sequencer.Config{TickInterval: s.config.TickInterval}, s.clock)
	session.seq.SetHooks(s.hooksFor(session))

	s.mu.Lock()
	if len(s.sessions) >= s.config.MaxSessions {
		s.mu.Unlock()
		s.Sweep()
		s.mu.Lock()
	}
	if len(s.sessions) >= s.config.MaxSessions {
		s.mu.Unlock()
		return nil, ErrTooManySessions
	}
	s.sessions[session.ID] = session
	s.mu.Unlock()

	sessionsActive.Inc()
	go session.fanOut()

	if err := s.begin(ctx, session, script.Name, messages); err != nil {
		_ = s.Close(session.ID)
		return nil, err
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Str("script", script.Name).
		Int("messages", len(messages)).
		Msg("playback session started")
	return session, nil
}

// Get returns a session.
func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns open sessions, oldest first.
func (s *Service) List() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Advance fires the manual trigger of a session. It reports whether the
// trigger was accepted; a rejected trigger is not an error.
func (s *Service) Advance(ctx context.Context, id string) (bool, error) {
	session, err := s.Get(id)
	if err != nil {
		return false, err
	}

	session.touch(s.clock.Now())
	accepted := session.seq.Advance()
	result := "ignored"
	if accepted {
		result = "accepted"
	}
	advancesTotal.WithLabelValues(result).Inc()
	s.record(ctx, "advance", func(repo events.Repository) error {
		return events.LogPlaybackAdvanced(ctx, repo, id, session.Scenario(), accepted)
	})
	return accepted, nil
}

// Reset clears a session's run. The session stays open and idle.
func (s *Service) Reset(ctx context.Context, id string) error {
	session, err := s.Get(id)
	if err != nil {
		return err
	}
	session.touch(s.clock.Now())
	visible := len(session.Snapshot().Visible)
	session.seq.Reset()
	resetsTotal.Inc()
	s.record(ctx, "reset", func(repo events.Repository) error {
		return events.LogPlaybackReset(ctx, repo, id, session.Scenario(), visible)
	})
	return nil
}

// Restart resets a session and plays its current scenario from the top.
func (s *Service) Restart(ctx context.Context, id string) error {
	session, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.Switch(ctx, id, session.Scenario())
}

// Switch resets a session and starts another scenario in it.
func (s *Service) Switch(ctx context.Context, id, scenario string) error {
	session, err := s.Get(id)
	if err != nil {
		return err
	}
	script, messages, err := s.compile(scenario)
	if err != nil {
		return err
	}
	if err := s.Reset(ctx, id); err != nil {
		return err
	}
	session.setScenario(script.Name, script.Title)
	return s.begin(ctx, session, script.Name, messages)
}

// Subscribe returns a channel of state snapshots for a session and a function
// that cancels the subscription. Slow subscribers miss intermediate states.
func (s *Service) Subscribe(id string) (<-chan sequencer.State, func(), error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe(s.config.SubscriberBuffer, s.clock.Now)
	return ch, cancel, nil
}

// Close stops a session and releases its timers.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.release(session)
	return nil
}

// Sweep closes sessions that have no subscribers and have not been touched
// for IdleTimeout. It returns how many sessions it closed.
func (s *Service) Sweep() int {
	cutoff := s.clock.Now().Add(-s.config.IdleTimeout)

	s.mu.Lock()
	var stale []*Session
	for id, session := range s.sessions {
		if session.idleSince(cutoff) {
			delete(s.sessions, id)
			stale = append(stale, session)
		}
	}
	s.mu.Unlock()

	for _, session := range stale {
		s.release(session)
		sessionsReapedTotal.Inc()
	}
	if len(stale) > 0 {
		s.logger.Info().Int("sessions", len(stale)).Msg("idle playback sessions closed")
	}
	return len(stale)
}

// RunJanitor calls Sweep every SweepInterval until ctx is canceled.
func (s *Service) RunJanitor(ctx context.Context) {
	for {
		fired := make(chan struct{})
		timer := s.clock.AfterFunc(s.config.SweepInterval, func() { close(fired) })
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-fired:
			s.Sweep()
		}
	}
}

// release stops a session already removed from the map.
func (s *Service) release(session *Session) {
	session.seq.Reset()
	if session.close() {
		sessionsActive.Dec()
	}
	s.logger.Debug().Str("session_id", session.ID).Msg("playback session closed")
}

// Shutdown closes every session.
func (s *Service) Shutdown() {
	for _, session := range s.List() {
		_ = s.Close(session.ID)
	}
}

func (s *Service) compile(scenario string) (*scripts.Script, []models.ScriptedMessage, error) {
	script := scripts.Find(s.scripts, scenario)
	if script == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, scenario)
	}
	messages, err := scripts.Render(script, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("render %s: %w", script.Name, err)
	}
	return script, messages, nil
}

func (s *Service) begin(ctx context.Context, session *Session, scenario string, messages []models.ScriptedMessage) error {
	if err := session.seq.Start(messages); err != nil {
		return err
	}
	sessionsStartedTotal.WithLabelValues(scenario).Inc()
	s.record(ctx, "start", func(repo events.Repository) error {
		return events.LogPlaybackStarted(ctx, repo, session.ID, scenario, len(messages))
	})
	return nil
}

// hooksFor wires sequencer transitions to metrics and the event log. Hooks
// fire on timer goroutines, so they log with a background context.
func (s *Service) hooksFor(session *Session) sequencer.Hooks {
	return sequencer.Hooks{
		OnReveal: func(msg models.ScriptedMessage, position int) {
			session.touch(s.clock.Now())
			scenario := session.Scenario()
			messagesRevealedTotal.WithLabelValues(scenario, string(msg.Sender)).Inc()
			s.record(context.Background(), "reveal", func(repo events.Repository) error {
				return events.LogMessageRevealed(context.Background(), repo, session.ID, scenario, msg, position)
			})
		},
		OnComplete: func(state sequencer.State) {
			scenario := session.Scenario()
			completedTotal.WithLabelValues(scenario).Inc()
			s.record(context.Background(), "complete", func(repo events.Repository) error {
				return events.LogPlaybackCompleted(context.Background(), repo, session.ID, scenario, len(state.Visible))
			})
		},
	}
}

func (s *Service) record(_ context.Context, what string, write func(events.Repository) error) {
	if s.events == nil {
		return
	}
	if err := write(s.events); err != nil {
		s.logger.Warn().Err(err).Str("event", what).Msg("failed to record playback event")
	}
}
