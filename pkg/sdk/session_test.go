package dishola

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// A superseded request is cancelled before it completes, quietly, and its
// handler stops firing.
func TestSession_SupersededSearchIsCancelled(t *testing.T) {
	firstStarted := make(chan struct{})
	firstDone := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "first" {
			streamHandler(metadataLine)(w, r)
			close(firstStarted)
			<-r.Context().Done()
			close(firstDone)
			return
		}
		streamHandler(metadataLine, dbLine, completeLine)(w, r)
	}))
	sess := c.NewSession()

	var firstEvents atomic.Int32
	var (
		wg        sync.WaitGroup
		firstSnap Snapshot
		firstErr  error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstSnap, firstErr = sess.Search(context.Background(), Params{Query: "first", Lat: "1", Long: "2"},
			func(Event, Snapshot) { firstEvents.Add(1) })
	}()

	select {
	case <-firstStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("first search never reached the server")
	}

	second, err := sess.Search(context.Background(), Params{Query: "second", Lat: "1", Long: "2"}, nil)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if second.State != StateComplete {
		t.Errorf("second state = %s, want complete", second.State)
	}

	wg.Wait()
	if firstErr != nil {
		t.Errorf("superseded search returned error: %v", firstErr)
	}
	if firstSnap.State != StateCancelled {
		t.Errorf("first state = %s, want cancelled", firstSnap.State)
	}
	if firstSnap.Summary != nil {
		t.Error("superseded search must not reach complete")
	}

	select {
	case <-firstDone:
	case <-time.After(5 * time.Second):
		t.Error("server never saw the first request cancelled")
	}
	if n := firstEvents.Load(); n > 1 {
		t.Errorf("first handler fired %d times, want at most the metadata event", n)
	}
}

func TestSession_Cancel(t *testing.T) {
	started := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamHandler(metadataLine)(w, r)
		close(started)
		<-r.Context().Done()
	}))
	sess := c.NewSession()

	go func() {
		<-started
		sess.Cancel()
	}()
	snap, err := sess.Search(context.Background(), Params{Query: "ramen", Lat: "1", Long: "2"}, nil)
	if err != nil {
		t.Fatalf("cancelled search returned error: %v", err)
	}
	if snap.State != StateCancelled {
		t.Errorf("state = %s, want cancelled", snap.State)
	}
}

func TestDebouncer_RunsLastOnly(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	got := make(chan int, 3)
	dropped := 0
	for i := 1; i <= 3; i++ {
		if d.Trigger(func() { got <- i }) {
			dropped++
		}
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}

	select {
	case v := <-got:
		if v != 3 {
			t.Errorf("ran call %d, want 3", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debounced call never ran")
	}
	select {
	case v := <-got:
		t.Errorf("unexpected extra call %d", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	ran := make(chan struct{}, 1)
	d.Trigger(func() { ran <- struct{}{} })
	if !d.Stop() {
		t.Error("Stop reported no pending call")
	}

	select {
	case <-ran:
		t.Error("stopped call ran")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNewDebouncer_Default(t *testing.T) {
	if d := NewDebouncer(0); d.delay != DefaultDebounce {
		t.Errorf("delay = %v, want %v", d.delay, DefaultDebounce)
	}
}
