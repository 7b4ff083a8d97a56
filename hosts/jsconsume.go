package hosts

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/arc-self/messaging-core/endpoint"
	"github.com/arc-self/messaging-core/invoker"
	"github.com/arc-self/messaging-core/jsconsumer"
	"github.com/arc-self/messaging-core/natsclient"
)

// JSConsumeHost binds every ModeJSConsume endpoint to a continuous pull
// consumer, using the jetstream v2 client's Consume iterator rather than
// the legacy Fetch-loop — the broker pushes messages to the client as soon
// as they're available, instead of the client polling for batches.
type JSConsumeHost struct {
	js  jetstream.JetStream
	log *zap.Logger

	consumeCtxs []jetstream.ConsumeContext
}

// NewJSConsumeHost wraps client's underlying connection in a jetstream v2
// client.
func NewJSConsumeHost(client *natsclient.Client, log *zap.Logger) (*JSConsumeHost, error) {
	js, err := jetstream.New(client.Conn)
	if err != nil {
		return nil, fmt.Errorf("jetstream consume host: %w", err)
	}
	return &JSConsumeHost{js: js, log: log}, nil
}

// Start opens one durable pull consumer and a continuous Consume loop per
// descriptor. handlerFor builds the ack/NAK/DLQ-aware jsconsumer.Handler
// for each descriptor's dispatch.
func (h *JSConsumeHost) Start(ctx context.Context, descriptors []endpoint.Descriptor, dispatchFor func(endpoint.Descriptor) invoker.Dispatch, handlerFor func(invoker.Dispatch) *jsconsumer.Handler) error {
	for _, d := range descriptors {
		d := d
		cons, err := h.js.Consumer(ctx, d.StreamName, d.ConsumerName)
		if err != nil {
			return fmt.Errorf("jetstream consume %s/%s: %w", d.StreamName, d.ConsumerName, err)
		}

		handler := handlerFor(dispatchFor(d))

		cc, err := cons.Consume(func(msg jetstream.Msg) {
			go h.handle(ctx, handler, msg)
		})
		if err != nil {
			return fmt.Errorf("jetstream consume start %s/%s: %w", d.StreamName, d.ConsumerName, err)
		}
		h.consumeCtxs = append(h.consumeCtxs, cc)
		h.log.Info("jetstream consume endpoint online", zap.String("stream", d.StreamName), zap.String("consumer", d.ConsumerName))
	}
	return nil
}

func (h *JSConsumeHost) handle(ctx context.Context, handler *jsconsumer.Handler, msg jetstream.Msg) {
	handler.Handle(ctx, jsconsumer.WrapJetstream(msg))
}

// Stop drains every consume iterator this host opened.
func (h *JSConsumeHost) Stop() {
	for _, cc := range h.consumeCtxs {
		cc.Stop()
	}
}
