package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/michael-freling/selective-read-mode/internal/rules"
)

// EventType identifies an inbound host notification.
type EventType string

const (
	// EventActiveFileChanged is sent whenever the host's active file changes.
	EventActiveFileChanged EventType = "active-file-changed"
)

var ErrUnknownEvent = errors.New("unknown event type")

// Event is a notification from the host. A nil or empty Path on an
// active-file-changed event means no file is active.
type Event struct {
	Type EventType `json:"type"`
	Path *string   `json:"path"`
}

// HasFile reports whether the event names an active file.
func (e *Event) HasFile() bool {
	return e.Path != nil && rules.NormalizePath(*e.Path) != ""
}

// EventDecoder reads a stream of JSON events.
type EventDecoder struct {
	decoder *json.Decoder
}

// NewEventDecoder creates a decoder reading events from reader.
func NewEventDecoder(reader io.Reader) *EventDecoder {
	return &EventDecoder{
		decoder: json.NewDecoder(reader),
	}
}

// Next returns the next event. It returns io.EOF when the stream ends.
// A malformed event is reported as an error; the stream cannot be resumed
// after invalid JSON, but it can after an unknown event type.
func (d *EventDecoder) Next() (*Event, error) {
	var event Event
	if err := d.decoder.Decode(&event); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	if event.Type == "" {
		return nil, fmt.Errorf("%w: type is required", ErrUnknownEvent)
	}
	if event.Type != EventActiveFileChanged {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, event.Type)
	}

	return &event, nil
}
