package tracecontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapHeaders map[string]string

func (m mapHeaders) Get(key string) string { return m[key] }
func (m mapHeaders) Set(key, value string) { m[key] = value }

func TestGenerate_TraceIDShape(t *testing.T) {
	tc := Generate()
	assert.Len(t, tc.TraceID, 32)
	assert.Len(t, tc.RequestID, 12)
	assert.NotZero(t, tc.TimestampMs)
	assert.NotEqual(t, "00000000000000000000000000000000", tc.TraceID)
}

func TestInjectThenExtract_RoundTrips(t *testing.T) {
	tc := Generate()
	h := mapHeaders{}
	Inject(h, tc)

	got := Extract(h)
	assert.Equal(t, tc, got)
}

func TestExtract_MaterializesMissingFields(t *testing.T) {
	h := mapHeaders{}
	got := Extract(h)

	assert.Len(t, got.TraceID, 32)
	assert.Len(t, got.RequestID, 12)
	assert.NotZero(t, got.TimestampMs)
}

func TestExtract_PartialHeadersFillOnlyMissing(t *testing.T) {
	h := mapHeaders{HeaderTraceID: "abc123"}
	got := Extract(h)

	require.Equal(t, "abc123", got.TraceID)
	assert.Len(t, got.RequestID, 12)
}

func TestNextOutbound_PreservesTraceIDRegeneratesRequestID(t *testing.T) {
	inbound := Generate()
	ctx := BindAmbient(context.Background(), inbound)

	outbound := NextOutbound(ctx)

	assert.Equal(t, inbound.TraceID, outbound.TraceID)
	assert.NotEqual(t, inbound.RequestID, outbound.RequestID)
}

func TestFromContext_WithoutBindingProducesValidTrace(t *testing.T) {
	tc := FromContext(context.Background())
	assert.Len(t, tc.TraceID, 32)
}
