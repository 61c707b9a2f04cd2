package metrics

import (
	"sync"
	"time"

	obserrors "github.com/target/principal-auth/internal/observability/errors"
	"github.com/target/principal-auth/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	// ResultRejected marks an expected refusal such as a wrong password or a revoked token.
	ResultRejected = "rejected"
	ResultError    = "error"
)

// AuthMetric captures one auth operation for metric emission.
type AuthMetric struct {
	Kind      string
	Operation string
	Result    string
	// Reason names the domain outcome for rejected operations.
	Reason   string
	Duration time.Duration
	Err      error
}

// EmitAuthOperation emits standardised auth operation metrics.
func EmitAuthOperation(sink statsd.Sink, in AuthMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"kind":      in.Kind,
		"operation": in.Operation,
		"result":    in.Result,
	}
	if in.Reason != "" {
		tags["reason"] = in.Reason
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("auth.operation", 1, tags)

	if in.Duration > 0 {
		sink.Timing("auth.duration", in.Duration, CloneTags(tags))
	}
}

// EmitOrphanedPrincipal counts a principal left on the identity peer without a credential row.
func EmitOrphanedPrincipal(sink statsd.Sink, kind string, compensated bool) {
	if sink == nil {
		return
	}
	outcome := "recorded"
	if compensated {
		outcome = "compensated"
	}
	sink.Count("auth.registration.orphan", 1, map[string]string{"kind": kind, "outcome": outcome})
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// RecordedMetric is a single call captured by RecordingSink.
type RecordedMetric struct {
	Type  string
	Name  string
	Value float64
	Tags  map[string]string
}

// RecordingSink is an in-memory statsd.Sink for tests.
type RecordingSink struct {
	mu      sync.Mutex
	metrics []RecordedMetric
}

var _ statsd.Sink = (*RecordingSink)(nil)

func (r *RecordingSink) record(typ, name string, value float64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, RecordedMetric{Type: typ, Name: name, Value: value, Tags: CloneTags(tags)})
}

func (r *RecordingSink) Count(name string, value int64, tags map[string]string) {
	r.record("count", name, float64(value), tags)
}

func (r *RecordingSink) Timing(name string, value time.Duration, tags map[string]string) {
	r.record("timing", name, float64(value)/float64(time.Millisecond), tags)
}

// Metrics returns a copy of everything recorded so far.
func (r *RecordingSink) Metrics() []RecordedMetric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedMetric(nil), r.metrics...)
}

// Counts returns the recorded counters named name.
func (r *RecordingSink) Counts(name string) []RecordedMetric {
	var out []RecordedMetric
	for _, m := range r.Metrics() {
		if m.Type == "count" && m.Name == name {
			out = append(out, m)
		}
	}
	return out
}
