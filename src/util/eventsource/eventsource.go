package eventsource

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// An EventSource writes server-sent events to a client.
type EventSource struct {
	w       http.ResponseWriter
	flusher http.Flusher
	id      int
}

// Begin writes the event stream headers. The connection stays open until the
// handler returns.
func Begin(w http.ResponseWriter, r *http.Request) (*EventSource, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("could not start event source: response writer can not flush")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &EventSource{w: w, flusher: flusher}, nil
}

// Event writes a single named event.
func (es *EventSource) Event(event, body string) error {
	es.id++
	if _, err := fmt.Fprintf(es.w, "id: %d\nevent: %s\ndata: %s\n\n", es.id, event, body); err != nil {
		return err
	}
	es.flusher.Flush()
	return nil
}

// EventJSON writes a named event with a JSON encoded body.
func (es *EventSource) EventJSON(event string, body interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		log.Errorf("Could not marshal event %q: %v", event, err)
		return nil
	}
	return es.Event(event, string(b))
}
