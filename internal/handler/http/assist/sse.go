package assist

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"rss-coordinator/internal/usecase/stream"
)

// sseWriter emits session events in text/event-stream framing, flushing
// after every event so chunks reach the client as they arrive. Headers are
// written lazily on the first event, so failures before the session starts
// can still answer with a regular HTTP status.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &sseWriter{w: w, flusher: flusher}, true
}

// Started reports whether any event frame has been written.
func (s *sseWriter) Started() bool {
	return s.started
}

// Emit writes one event frame. A write error means the client is gone.
func (s *sseWriter) Emit(ev stream.Event) error {
	if !s.started {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.Header().Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// collector buffers session events for the non-streaming response mode.
type collector struct {
	events []stream.Event
	text   strings.Builder
}

func (c *collector) Emit(ev stream.Event) error {
	c.events = append(c.events, ev)
	switch ev.Type {
	case stream.EventContent, stream.EventContentTranslation:
		if delta, ok := ev.Data["text"].(string); ok {
			c.text.WriteString(delta)
		}
	}
	return nil
}
