package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// OrphanPayload describes a principal that exists on the identity peer without a
// local credential row. Operators use it to reconcile the two sides by hand.
type OrphanPayload struct {
	Kind        string
	PrincipalID string
	Username    string
	Error       string
	ErrorClass  string
	Severity    string
	OccurredAt  time.Time
	Metadata    map[string]string
}

// DedupKey identifies the orphan across repeated alerts.
func (p OrphanPayload) DedupKey() string {
	return "orphan:" + p.Kind + ":" + p.PrincipalID
}

// Sink describes a destination capable of consuming orphan notifications.
type Sink interface {
	SendOrphan(ctx context.Context, payload OrphanPayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload OrphanPayload) error

// SendOrphan implements the Sink interface.
func (f SinkFunc) SendOrphan(ctx context.Context, payload OrphanPayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
