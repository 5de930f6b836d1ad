package playback

import (
	"sync"
	"time"

	"github.com/vibealong/vibealong/internal/models"
	"github.com/vibealong/vibealong/internal/sequencer"
)

// Session is one viewer's playback of a scenario.
type Session struct {
	ID        string
	CreatedAt time.Time

	seq *sequencer.Sequencer

	mu          sync.Mutex
	scenario    string
	title       string
	lastActive  time.Time
	subscribers map[int]chan sequencer.State
	nextSubID   int
	closed      bool
	done        chan struct{}
}

// Scenario returns the scenario currently loaded.
func (s *Session) Scenario() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scenario
}

// Snapshot returns the sequencer state.
func (s *Session) Snapshot() sequencer.State {
	return s.seq.Snapshot()
}

// View returns the render-ready form of the session.
func (s *Session) View() View {
	s.mu.Lock()
	scenario, title := s.scenario, s.title
	s.mu.Unlock()
	return NewView(s.ID, scenario, title, s.seq.Snapshot())
}

func (s *Session) setScenario(name, title string) {
	s.mu.Lock()
	s.scenario = name
	s.title = title
	s.mu.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastActive) {
		s.lastActive = now
	}
	s.mu.Unlock()
}

// idleSince reports whether nobody watches the session and it was last
// touched at or before cutoff.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers) == 0 && !s.lastActive.After(cutoff)
}

// subscribe registers a subscriber. Subscribing and cancelling both count as
// activity, so a session's idle time starts when its last viewer leaves.
func (s *Session) subscribe(buffer int, now func() time.Time) (<-chan sequencer.State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := now(); t.After(s.lastActive) {
		s.lastActive = t
	}

	ch := make(chan sequencer.State, buffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
			if t := now(); t.After(s.lastActive) {
				s.lastActive = t
			}
		})
	}
}

// fanOut copies sequencer updates to subscribers until the session closes.
func (s *Session) fanOut() {
	updates := s.seq.Updates()
	for {
		select {
		case <-s.done:
			return
		case state := <-updates:
			s.mu.Lock()
			for _, ch := range s.subscribers {
				offer(ch, state)
			}
			s.mu.Unlock()
		}
	}
}

func (s *Session) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.done)
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
	return true
}

// offer sends without blocking, replacing the oldest queued state when full.
func offer(ch chan sequencer.State, state sequencer.State) {
	select {
	case ch <- state:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- state:
	default:
	}
}

// View is the JSON shape of a session for UIs.
type View struct {
	ID          string                   `json:"id"`
	Scenario    string                   `json:"scenario"`
	Title       string                   `json:"title,omitempty"`
	Phase       sequencer.Phase          `json:"phase"`
	Visible     []models.ScriptedMessage `json:"visible"`
	Total       int                      `json:"total"`
	Typing      bool                     `json:"typing"`
	TypingAs    models.Sender            `json:"typing_as,omitempty"`
	Progress    float64                  `json:"progress"`
	RemainingMS int64                    `json:"remaining_ms"`
	Action      string                   `json:"action,omitempty"`
	Terminal    bool                     `json:"terminal"`
	Generation  uint64                   `json:"generation"`
}

// NewView derives a View from a sequencer state.
func NewView(id, scenario, title string, state sequencer.State) View {
	v := View{
		ID:          id,
		Scenario:    scenario,
		Title:       title,
		Phase:       state.Phase,
		Visible:     state.Visible,
		Total:       len(state.Script),
		Typing:      state.Typing(),
		Progress:    state.Progress(),
		RemainingMS: state.Remaining().Milliseconds(),
		Terminal:    state.IsTerminal(),
		Generation:  state.Generation,
	}
	if v.Visible == nil {
		v.Visible = []models.ScriptedMessage{}
	}
	if next, ok := state.Pending(); ok {
		if v.Typing {
			v.TypingAs = next.Sender
		}
		if state.Phase == sequencer.PhaseAwaitingManual {
			v.Action = next.Action
			if v.Action == "" {
				v.Action = "Continue"
			}
		}
	}
	return v
}
