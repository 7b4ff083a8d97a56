// Package hosts implements Component F, the four long-running
// subscription-host topologies: request-reply, core pub-sub, JetStream
// continuous consume, and JetStream batch fetch.
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

// RequestReplyHost binds every ModeRequestReply endpoint on one connection
// to a queue-group subscription: messages are load-balanced across every
// process sharing the queue name, each reply goes only to its requester,
// and there is no ack/NAK — the request/response round trip is the whole
// unit of delivery.
type RequestReplyHost struct {
	client *natsclient.Client
	log    *zap.Logger
	subs   []*nats.Subscription
}

// NewRequestReplyHost builds a host bound to client.
func NewRequestReplyHost(client *natsclient.Client, log *zap.Logger) *RequestReplyHost {
	return &RequestReplyHost{client: client, log: log}
}

// Start subscribes one queue-group subscription per descriptor, grouped by
// the descriptor's controller name (mirroring "each connection hosts a
// service grouped by controller name"). resolve turns the descriptor's
// pattern into a concrete subscribe-time subject.
func (h *RequestReplyHost) Start(descriptors []endpoint.Descriptor, dispatchFor func(endpoint.Descriptor) invoker.Dispatch, resolve func(endpoint.Descriptor) string) error {
	for _, d := range descriptors {
		d := d
		dispatch := dispatchFor(d)
		subject := resolve(d)
		queue := d.ControllerName

		sub, err := h.client.Conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
			h.handle(dispatch, msg)
		})
		if err != nil {
			return fmt.Errorf("request-reply subscribe %q: %w", subject, err)
		}
		h.subs = append(h.subs, sub)
		h.log.Info("request-reply endpoint online", zap.String("subject", subject), zap.String("queue", queue))
	}
	return nil
}

func (h *RequestReplyHost) handle(dispatch invoker.Dispatch, msg *nats.Msg) {
	tc := tracecontext.ExtractFromMsg(msg)
	ctx := tracecontext.BindAmbient(context.Background(), tc)

	resp, err := dispatch.Invoke(ctx, msg.Subject, tracecontext.NatsHeader{H: msg.Header}, msg.Data)
	if err != nil {
		h.log.Error("request-reply handler failed", zap.String("subject", msg.Subject), zap.Error(err))
		if repErr := msg.Respond([]byte(fmt.Sprintf(`{"code":500,"message":%q}`, err.Error()))); repErr != nil {
			h.log.Error("failed to send error reply", zap.Error(repErr))
		}
		return
	}

	payload, err := dispatch.EncodeResponse(resp)
	if err != nil {
		h.log.Error("failed to encode response", zap.String("subject", msg.Subject), zap.Error(err))
		payload = nil
	}
	if err := msg.Respond(payload); err != nil {
		h.log.Error("failed to send reply", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

// Stop unsubscribes every queue-group subscription this host opened.
func (h *RequestReplyHost) Stop() {
	for _, sub := range h.subs {
		_ = sub.Unsubscribe()
	}
}
