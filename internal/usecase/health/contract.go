package health

import "context"

// Pinger is the dish catalog, or anything else answering a cheap round trip.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probe is an optional dependency checked next to the catalog, such as the
// LLM gateway or the shared search cache.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}
