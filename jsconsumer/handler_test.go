package jsconsumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arc-self/messaging-core/endpoint"
	"github.com/arc-self/messaging-core/invoker"
	"github.com/arc-self/messaging-core/natsclient"
	"github.com/arc-self/messaging-core/result"
)

// fakeMessage is a hand-rolled Message for driving Handler.Handle without a
// broker connection. It records every Ack/NakWithDelay call so tests can
// assert the "acked at most once" invariant.
type fakeMessage struct {
	subject      string
	numDelivered uint64

	acks  int
	naks  int
	delay time.Duration
}

func (f *fakeMessage) Subject() string        { return f.subject }
func (f *fakeMessage) Headers() nats.Header   { return nats.Header{} }
func (f *fakeMessage) Data() []byte           { return nil }
func (f *fakeMessage) NumDelivered() uint64   { return f.numDelivered }

func (f *fakeMessage) Ack() error {
	f.acks++
	return nil
}

func (f *fakeMessage) NakWithDelay(delay time.Duration) error {
	f.naks++
	f.delay = delay
	return nil
}

// dispatchReturning builds an invoker.Dispatch whose handler always yields
// err (nil for success).
func dispatchReturning(err error) invoker.Dispatch {
	d := endpoint.Descriptor{
		ControllerName: "orders",
		MethodName:     "process",
		Version:        "1",
		SubjectPattern: "[controller].v{version}.process",
		Handler: func(ctx context.Context, request any, binding map[string]string) (any, error) {
			return nil, err
		},
	}
	return invoker.NewDispatch(d, natsclient.JSONCodec{})
}

func newTestHandler(t *testing.T, dispatchErr error, opts Options) (*Handler, *fakeMessage) {
	t.Helper()
	h := NewHandler(dispatchReturning(dispatchErr), nil, opts, zap.NewNop())
	msg := &fakeMessage{subject: "orders.v1.process", numDelivered: 1}
	return h, msg
}

func TestHandle_SuccessAcksOnce(t *testing.T) {
	h, msg := newTestHandler(t, nil, Options{MaxRedeliveries: 3})

	h.Handle(context.Background(), msg)

	assert.Equal(t, 1, msg.acks)
	assert.Equal(t, 0, msg.naks)
}

func TestHandle_TransientErrorUnderCapNaks(t *testing.T) {
	// spec.md §8 scenario 3: MaxRedeliveries=3 NAKs deliveries 1-3.
	for attempt := uint64(1); attempt <= 3; attempt++ {
		h, msg := newTestHandler(t, result.Transient("ORD-001", errors.New("db timeout")), Options{MaxRedeliveries: 3})
		msg.numDelivered = attempt

		h.Handle(context.Background(), msg)

		assert.Equalf(t, 1, msg.naks, "delivery %d should NAK", attempt)
		assert.Equalf(t, 0, msg.acks, "delivery %d should not ack", attempt)
	}
}

func TestHandle_TransientErrorPastCapRoutesToAck(t *testing.T) {
	// Delivery 4 exceeds MaxRedeliveries=3: DLQ (skipped here since dlq is
	// nil) then exactly one ack, never a NAK.
	h, msg := newTestHandler(t, result.Transient("ORD-001", errors.New("db timeout")), Options{MaxRedeliveries: 3})
	msg.numDelivered = 4

	h.Handle(context.Background(), msg)

	assert.Equal(t, 1, msg.acks)
	assert.Equal(t, 0, msg.naks)
}

func TestHandle_TerminalErrorAlwaysRoutesToAckRegardlessOfDeliveryCount(t *testing.T) {
	for _, attempt := range []uint64{1, 2, 5} {
		h, msg := newTestHandler(t, result.Validation("ORD-002", "invalid order payload"), Options{MaxRedeliveries: 3})
		msg.numDelivered = attempt

		h.Handle(context.Background(), msg)

		assert.Equalf(t, 1, msg.acks, "delivery %d should ack", attempt)
		assert.Equalf(t, 0, msg.naks, "delivery %d should not nak", attempt)
	}
}

func TestHandle_NonResultErrorTreatedAsTerminal(t *testing.T) {
	h, msg := newTestHandler(t, errors.New("unclassified failure"), Options{MaxRedeliveries: 3})

	h.Handle(context.Background(), msg)

	assert.Equal(t, 1, msg.acks)
	assert.Equal(t, 0, msg.naks)
}

func TestHandle_ExactlyOneOutcomePerMessage(t *testing.T) {
	cases := []struct {
		name         string
		err          error
		numDelivered uint64
	}{
		{"success", nil, 1},
		{"transient under cap", result.Transient("ORD-001", errors.New("boom")), 2},
		{"transient over cap", result.Transient("ORD-001", errors.New("boom")), 9},
		{"terminal", result.Conflict("ORD-003", "duplicate order"), 1},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			h, msg := newTestHandler(t, tc.err, Options{MaxRedeliveries: 3})
			msg.numDelivered = tc.numDelivered

			h.Handle(context.Background(), msg)

			require.Equal(t, 1, msg.acks+msg.naks, "exactly one ack-or-nak outcome")
			assert.False(t, msg.acks == 1 && msg.naks == 1, "never both acked and nacked")
		})
	}
}
