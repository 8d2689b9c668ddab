// Package dishola is a Go client for the Dishola search API.
//
// A search is a single streamed response of newline-delimited JSON events.
// The client reads it incrementally and folds every event into a Snapshot
// that a UI can render at any point:
//
//	client, _ := dishola.New(dishola.WithBaseURL("http://localhost:8080"))
//	snap, err := client.Search(ctx, dishola.Params{
//	    Query: "ramen",
//	    Lat:   "37.7749",
//	    Long:  "-122.4194",
//	}, func(ev dishola.Event, s dishola.Snapshot) {
//	    fmt.Println(ev.Type, len(s.Dishes()))
//	})
//
// # Sessions
//
// Interactive callers should go through a Session. Starting a new search on
// a session cancels the previous one, and a cancelled search finishes in the
// Cancelled state without an error:
//
//	sess := client.NewSession()
//	deb := dishola.NewDebouncer(0)
//	deb.Trigger(func() { sess.Search(ctx, params, render) })
//
// Every search is bounded by a hard timeout (60s by default, see WithTimeout).
package dishola
