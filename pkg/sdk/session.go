package dishola

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Session runs at most one search at a time. Starting a search cancels the
// one in flight, and the cancelled search returns quietly in StateCancelled.
type Session struct {
	client *Client

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewSession creates a Session bound to c.
func (c *Client) NewSession() *Session {
	return &Session{client: c}
}

// Search supersedes any running search and starts a new one. The handler is
// only called while this search is the current one. Cancellation, from a
// newer search or from ctx, is not reported as an error.
func (s *Session) Search(ctx context.Context, p Params, fn Handler) (Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.gen == gen {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}()

	snap, err := s.client.Search(ctx, p, func(ev Event, snap Snapshot) {
		if fn != nil && s.current(gen) {
			fn(ev, snap)
		}
	})
	if snap.State == StateCancelled && errors.Is(err, context.Canceled) {
		return snap, nil
	}
	return snap, err
}

// Cancel stops the running search, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// DefaultDebounce is the quiet period before a keystroke-driven search fires.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer runs only the last of a burst of calls, once the burst has been
// quiet for the configured delay.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a Debouncer. A non-positive delay means DefaultDebounce.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, replacing anything scheduled and not yet run.
// It reports whether a pending call was dropped.
func (d *Debouncer) Trigger(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	dropped := d.timer != nil && d.timer.Stop()
	d.timer = time.AfterFunc(d.delay, fn)
	return dropped
}

// Stop drops the pending call and reports whether there was one.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	dropped := d.timer.Stop()
	d.timer = nil
	return dropped
}
