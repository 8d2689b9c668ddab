package dishola

import (
	"fmt"
	"slices"
	"time"
)

// State is the lifecycle phase of a search.
type State string

// Search states.
const (
	StateIdle      State = "idle"
	StateSearching State = "searching" // request sent, no event yet
	StateStreaming State = "streaming"
	StateComplete  State = "complete"
	StateError     State = "error"
	StateCancelled State = "cancelled"
)

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateIdle:      {StateSearching},
	StateSearching: {StateStreaming, StateError, StateCancelled},
	StateStreaming: {StateComplete, StateError, StateCancelled},
	StateComplete:  {StateSearching},
	StateError:     {StateSearching},
	StateCancelled: {StateSearching},
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// Terminal reports whether no more events are accepted in s.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError || s == StateCancelled
}

// Snapshot is the merged view of a search at one point in time.
type Snapshot struct {
	State       State
	HasSearched bool

	RequestID string
	Location  string
	Cached    bool

	DB []Dish
	AI []Dish

	Progress *Progress
	// AIError is the last non-fatal AI failure, if any.
	AIError *AIError
	Summary *Summary
	Err     error

	// FirstDishLatency is the time from request to the first dish of either source.
	FirstDishLatency time.Duration
}

// IsSearching reports whether the search is still in flight.
func (s Snapshot) IsSearching() bool {
	return s.State == StateSearching || s.State == StateStreaming
}

// Dishes returns database dishes followed by AI dishes.
func (s Snapshot) Dishes() []Dish {
	out := make([]Dish, 0, len(s.DB)+len(s.AI))
	out = append(out, s.DB...)
	return append(out, s.AI...)
}

// tracker folds events into a Snapshot and enforces the transition table.
type tracker struct {
	snap      Snapshot
	startedAt time.Time
	sawAIDish bool
	now       func() time.Time
}

func newTracker() *tracker {
	return &tracker{snap: Snapshot{State: StateIdle}, now: time.Now}
}

func (t *tracker) transition(to State) error {
	if !CanTransition(t.snap.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.snap.State, to)
	}
	t.snap.State = to
	return nil
}

// begin resets everything but HasSearched.
func (t *tracker) begin() error {
	if err := t.transition(StateSearching); err != nil {
		return err
	}
	t.snap = Snapshot{State: StateSearching, HasSearched: true}
	t.startedAt = t.now()
	t.sawAIDish = false
	return nil
}

func (t *tracker) apply(ev Event) error {
	if t.snap.State == StateSearching {
		if err := t.transition(StateStreaming); err != nil {
			return err
		}
	}
	if t.snap.State != StateStreaming {
		return fmt.Errorf("%w: %s event in %s", ErrInvalidTransition, ev.Type, t.snap.State)
	}

	switch d := ev.Data.(type) {
	case *Metadata:
		t.snap.RequestID = d.RequestID
		t.snap.Location = d.Location
		t.snap.Cached = d.Cached
	case *Results:
		if ev.Type == EventDBResults {
			t.snap.DB = d.Results
		} else if !t.sawAIDish {
			t.snap.AI = slices.Clone(d.Results)
		}
		t.markFirstDish(len(d.Results))
	case *Progress:
		t.snap.Progress = d
	case *DishEvent:
		t.sawAIDish = true
		t.snap.AI = append(slices.DeleteFunc(t.snap.AI, isPlaceholder), d.Dish)
		t.markFirstDish(1)
	case *AIError:
		t.snap.AIError = d
		if len(t.snap.AI) == 0 && len(d.Placeholder) > 0 {
			t.snap.AI = slices.Clone(d.Placeholder)
		}
	case *StreamError:
		t.snap.Err = d
		return t.transition(StateError)
	case *Summary:
		t.snap.Summary = d
		t.snap.Cached = t.snap.Cached || d.Cached
		return t.transition(StateComplete)
	}
	return nil
}

func (t *tracker) markFirstDish(n int) {
	if n > 0 && t.snap.FirstDishLatency == 0 {
		t.snap.FirstDishLatency = t.now().Sub(t.startedAt)
	}
}

// fail moves a live search to Error. Terminal states are left alone.
func (t *tracker) fail(err error) {
	if t.snap.State.Terminal() {
		return
	}
	t.snap.Err = err
	t.snap.State = StateError
}

// cancel moves a live search to Cancelled. Partial results are kept.
func (t *tracker) cancel() {
	if t.snap.State.Terminal() {
		return
	}
	t.snap.State = StateCancelled
}

// snapshot returns a copy that later events cannot mutate.
func (t *tracker) snapshot() Snapshot {
	s := t.snap
	s.DB = slices.Clone(s.DB)
	s.AI = slices.Clone(s.AI)
	return s
}

// PlaceholderID marks the stand-in card shown when AI results are unavailable.
const PlaceholderID = "ai-unavailable-0"

func isPlaceholder(d Dish) bool { return d.ID == PlaceholderID }
