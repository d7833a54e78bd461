package trigger

//go:generate mockgen -source=host.go -destination=mock_host.go -package=trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Host is the application that owns the views.
type Host interface {
	// SetReadMode switches the view showing path to read mode without
	// touching navigation history. Calling it on a view already in read
	// mode is a no-op for the host.
	SetReadMode(ctx context.Context, path string) error
}

const (
	commandSetViewMode = "set-view-mode"
	viewModePreview    = "preview"
)

// Command is an outbound instruction written to the host.
type Command struct {
	Command string `json:"command"`
	Mode    string `json:"mode"`
	Path    string `json:"path"`
}

// streamHost sends commands to the host as JSON lines.
type streamHost struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewStreamHost creates a Host writing one JSON command per line to writer.
func NewStreamHost(writer io.Writer) Host {
	return &streamHost{
		encoder: json.NewEncoder(writer),
	}
}

func (h *streamHost) SetReadMode(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.encoder.Encode(Command{
		Command: commandSetViewMode,
		Mode:    viewModePreview,
		Path:    path,
	}); err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}
	return nil
}
