// Package audit implements the append-only structured event sink used
// across C3-C7 to record validation outcomes, build attempts, install
// decisions, and routing changes.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes an audit record.
type EventType string

const (
	EventValidation EventType = "VALIDATION"
	EventBuild      EventType = "BUILD_ATTEMPT"
	EventInstall    EventType = "INSTALL"
	EventRouting    EventType = "ROUTING"
	EventCheckpoint EventType = "CHECKPOINT"
	EventSystem     EventType = "SYSTEM"
)

// Event is a single structured audit record, written as one JSON
// object per line.
type Event struct {
	ID        string         `json:"id"`
	OrgID     string         `json:"org_id"`
	Type      EventType      `json:"type"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Logger records audit events.
type Logger interface {
	Record(ctx context.Context, eventType EventType, action, resource string, metadata map[string]any) error
}

type jsonlLogger struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewLogger creates a Logger writing newline-delimited JSON to stdout.
func NewLogger() Logger {
	return NewLoggerWithWriter(os.Stdout)
}

// NewLoggerWithWriter writes to an arbitrary sink — a file for
// production deployments, a bytes.Buffer in tests.
func NewLoggerWithWriter(w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	return &jsonlLogger{writer: w}
}

type orgKey struct{}

// WithOrgID attaches the acting org to ctx so Record can stamp events
// without threading an explicit parameter through every call site.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgKey{}, orgID)
}

func orgFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(orgKey{}).(string); ok && v != "" {
		return v
	}
	return "system"
}

func (l *jsonlLogger) Record(ctx context.Context, eventType EventType, action, resource string, metadata map[string]any) error {
	event := Event{
		ID:        uuid.New().String(),
		OrgID:     orgFromContext(ctx),
		Type:      eventType,
		Action:    action,
		Resource:  resource,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}

	encoded, err := json.Marshal(event)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.writer.Write(append(encoded, '\n'))
	return err
}
