package locate

import "context"

// Reverser resolves coordinates to a human-readable place over the network.
type Reverser interface {
	Reverse(ctx context.Context, lat, long float64) (string, error)
}
