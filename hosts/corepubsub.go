package hosts

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/arc-self/messaging-core/endpoint"
	"github.com/arc-self/messaging-core/invoker"
	"github.com/arc-self/messaging-core/natsclient"
	"github.com/arc-self/messaging-core/tracecontext"
)

// CorePubSubHost binds every ModeCorePubSub endpoint to a plain core NATS
// subscription: fire-and-forget, no queue grouping, no acking, no
// redelivery — every connected subscriber receives every message.
type CorePubSubHost struct {
	client *natsclient.Client
	log    *zap.Logger
	subs   []*nats.Subscription
}

// NewCorePubSubHost builds a host bound to client.
func NewCorePubSubHost(client *natsclient.Client, log *zap.Logger) *CorePubSubHost {
	return &CorePubSubHost{client: client, log: log}
}

// Start subscribes one subscription per descriptor and dispatches each
// inbound message on its own goroutine, so a slow or blocking handler never
// delays delivery of the next message.
func (h *CorePubSubHost) Start(descriptors []endpoint.Descriptor, dispatchFor func(endpoint.Descriptor) invoker.Dispatch, resolve func(endpoint.Descriptor) string) error {
	for _, d := range descriptors {
		dispatch := dispatchFor(d)
		subject := resolve(d)

		sub, err := h.client.Conn.Subscribe(subject, func(msg *nats.Msg) {
			go h.handle(dispatch, msg)
		})
		if err != nil {
			return fmt.Errorf("core pub-sub subscribe %q: %w", subject, err)
		}
		h.subs = append(h.subs, sub)
		h.log.Info("core pub-sub endpoint online", zap.String("subject", subject))
	}
	return nil
}

func (h *CorePubSubHost) handle(dispatch invoker.Dispatch, msg *nats.Msg) {
	tc := tracecontext.ExtractFromMsg(msg)
	ctx := tracecontext.BindAmbient(context.Background(), tc)

	if _, err := dispatch.Invoke(ctx, msg.Subject, tracecontext.NatsHeader{H: msg.Header}, msg.Data); err != nil {
		h.log.Error("core pub-sub handler failed", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

// Stop unsubscribes every subscription this host opened.
func (h *CorePubSubHost) Stop() {
	for _, sub := range h.subs {
		_ = sub.Unsubscribe()
	}
}
