package search

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dishola/dishola/internal/domain/search/event"
	"github.com/dishola/dishola/internal/metrics"
)

// State is the lifecycle of one search stream.
type State int

// Stream states. Pending covers both recommenders being in flight.
const (
	StateInit State = iota
	StateMetadataSent
	StatePending
	StateComplete
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateMetadataSent:
		return "metadata_sent"
	case StatePending:
		return "pending"
	case StateComplete:
		return "complete"
	case StateErrored:
		return "errored"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrStreamClosed is returned for events emitted after a terminal event.
	ErrStreamClosed = errors.New("stream closed")
	// ErrOutOfOrder is returned for any event emitted before metadata.
	ErrOutOfOrder = errors.New("event before metadata")
)

// stream serializes concurrent producers onto one Emitter and enforces
// metadata-first, terminal-last ordering. The first write error is sticky.
type stream struct {
	mu    sync.Mutex
	out   Emitter
	state State
	err   error
}

func newStream(out Emitter) *stream {
	return &stream{out: out}
}

func (s *stream) emit(ev event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	switch {
	case s.state == StateComplete || s.state == StateErrored:
		return ErrStreamClosed
	case s.state == StateInit && ev.Type != event.Metadata && ev.Type != event.Error:
		return ErrOutOfOrder
	}

	if err := s.out.Emit(ev); err != nil {
		s.err = fmt.Errorf("emit %s: %w", ev.Type, err)
		return s.err
	}
	metrics.SearchEventsTotal.WithLabelValues(string(ev.Type)).Inc()

	switch ev.Type {
	case event.Metadata:
		s.state = StateMetadataSent
	case event.Complete:
		s.state = StateComplete
	case event.Error:
		s.state = StateErrored
	default:
		s.state = StatePending
	}
	return nil
}

// broken reports whether the client can no longer be written to.
func (s *stream) broken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err != nil
}

func (s *stream) current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
