package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dialError struct{}

func (dialError) Error() string { return "dial" }

func TestEmitAuthOperation(t *testing.T) {
	sink := &RecordingSink{}

	EmitAuthOperation(sink, AuthMetric{
		Kind:      "user",
		Operation: "login",
		Result:    ResultRejected,
		Reason:    "invalid_credentials",
		Duration:  12 * time.Millisecond,
	})

	got := sink.Metrics()
	require.Len(t, got, 2)
	assert.Equal(t, RecordedMetric{
		Type:  "count",
		Name:  "auth.operation",
		Value: 1,
		Tags:  map[string]string{"kind": "user", "operation": "login", "result": "rejected", "reason": "invalid_credentials"},
	}, got[0])
	assert.Equal(t, "timing", got[1].Type)
	assert.InDelta(t, 12.0, got[1].Value, 0.001)
}

func TestEmitAuthOperation_ErrorClass(t *testing.T) {
	sink := &RecordingSink{}

	EmitAuthOperation(sink, AuthMetric{Kind: "merchant", Operation: "verify", Result: ResultError, Err: dialError{}})
	EmitAuthOperation(sink, AuthMetric{Kind: "merchant", Operation: "verify", Result: ResultSuccess, Err: errors.New("ignored")})

	counts := sink.Counts("auth.operation")
	require.Len(t, counts, 2)
	assert.Equal(t, "metrics_dialerror", counts[0].Tags["error_class"])
	assert.NotContains(t, counts[1].Tags, "error_class")
}

func TestEmitOrphanedPrincipal(t *testing.T) {
	sink := &RecordingSink{}

	EmitOrphanedPrincipal(sink, "user", true)
	EmitOrphanedPrincipal(sink, "user", false)
	EmitOrphanedPrincipal(nil, "user", false)

	counts := sink.Counts("auth.registration.orphan")
	require.Len(t, counts, 2)
	assert.Equal(t, "compensated", counts[0].Tags["outcome"])
	assert.Equal(t, "recorded", counts[1].Tags["outcome"])
}
