package dishola

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// maxLineBytes bounds a single event line.
const maxLineBytes = 1 << 20

var (
	ssePrefix = []byte("data:")
	doneFrame = []byte("[DONE]")
)

// readStream calls fn for every event in r until EOF, an fn error or a read error.
// Lines that fail to decode go to onBad and are skipped.
func readStream(r io.Reader, fn func(Event) error, onBad func(line []byte, err error)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		ev, ok, err := parseLine(sc.Bytes())
		if err != nil {
			if onBad != nil {
				onBad(sc.Bytes(), err)
			}
			continue
		}
		if !ok {
			continue
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return sc.Err()
}

// parseLine decodes one line. It accepts raw NDJSON and "data: " SSE frames;
// blank lines, SSE comments and the [DONE] sentinel yield ok=false.
func parseLine(line []byte) (Event, bool, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] == ':' {
		return Event{}, false, nil
	}
	if bytes.HasPrefix(line, ssePrefix) {
		line = bytes.TrimSpace(line[len(ssePrefix):])
	}
	if len(line) == 0 || bytes.Equal(line, doneFrame) {
		return Event{}, false, nil
	}

	var raw struct {
		Type EventType       `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		return Event{}, false, fmt.Errorf("decode event: %w", err)
	}
	if raw.Type == "" {
		return Event{}, false, fmt.Errorf("decode event: missing type")
	}

	ev := Event{Type: raw.Type}
	var data any
	switch raw.Type {
	case EventMetadata:
		data = &Metadata{}
	case EventDBResults, EventAIResults:
		data = &Results{}
	case EventAIProgress:
		data = &Progress{}
	case EventAIDish:
		data = &DishEvent{}
	case EventAIError:
		data = &AIError{}
	case EventError:
		data = &StreamError{}
	case EventComplete:
		data = &Summary{}
	default:
		return ev, true, nil
	}
	if len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			return Event{}, false, fmt.Errorf("decode %s payload: %w", raw.Type, err)
		}
	}
	ev.Data = data
	return ev, true, nil
}
