package chi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dishola/dishola/internal/domain/search/event"
)

// NDJSON stream headers.
const (
	ContentTypeNDJSON = "application/x-ndjson"
)

// ndjsonEmitter writes one JSON object per line and flushes after each.
// The orchestrator serializes calls, so no locking here.
type ndjsonEmitter struct {
	enc     *json.Encoder
	flusher http.Flusher
}

func newNDJSONEmitter(w http.ResponseWriter, f http.Flusher) *ndjsonEmitter {
	return &ndjsonEmitter{enc: json.NewEncoder(w), flusher: f}
}

// Emit encodes ev followed by a newline.
func (e *ndjsonEmitter) Emit(ev event.Event) error {
	if err := e.enc.Encode(ev); err != nil {
		return fmt.Errorf("write %s event: %w", ev.Type, err)
	}
	e.flusher.Flush()
	return nil
}

func startStream(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", ContentTypeNDJSON)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}
