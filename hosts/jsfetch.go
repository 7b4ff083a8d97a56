package hosts

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/arc-self/messaging-core/endpoint"
	"github.com/arc-self/messaging-core/invoker"
	"github.com/arc-self/messaging-core/jsconsumer"
	"github.com/arc-self/messaging-core/natsclient"
)

const (
	fetchBatchSize  = 10
	fetchMaxWait    = 5 * time.Second
	fetchErrorDelay = time.Second
)

// JSFetchHost binds every ModeJSFetch endpoint to a pull-batch loop:
// fetch up to fetchBatchSize messages with a fetchMaxWait expiry, dispatch
// each, and on a fetch error back off fetchErrorDelay before retrying.
// Suitable for on-demand or scheduled workloads where immediate,
// push-style consumption isn't required.
type JSFetchHost struct {
	client *natsclient.Client
	log    *zap.Logger
}

// NewJSFetchHost builds a host bound to client.
func NewJSFetchHost(client *natsclient.Client, log *zap.Logger) *JSFetchHost {
	return &JSFetchHost{client: client, log: log}
}

// Start launches one fetch loop goroutine per descriptor; each loop exits
// when ctx is cancelled.
func (h *JSFetchHost) Start(ctx context.Context, descriptors []endpoint.Descriptor, dispatchFor func(endpoint.Descriptor) invoker.Dispatch, handlerFor func(invoker.Dispatch) *jsconsumer.Handler) error {
	for _, d := range descriptors {
		d := d
		sub, err := h.client.JS.PullSubscribe(d.SubjectPattern, d.ConsumerName, nats.BindStream(d.StreamName))
		if err != nil {
			return err
		}
		handler := handlerFor(dispatchFor(d))
		go h.loop(ctx, sub, handler, d)
		h.log.Info("jetstream fetch endpoint online", zap.String("stream", d.StreamName), zap.String("consumer", d.ConsumerName))
	}
	return nil
}

func (h *JSFetchHost) loop(ctx context.Context, sub *nats.Subscription, handler *jsconsumer.Handler, d endpoint.Descriptor) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := sub.Fetch(fetchBatchSize, nats.MaxWait(fetchMaxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			h.log.Warn("jetstream fetch error, retrying",
				zap.String("stream", d.StreamName), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchErrorDelay):
			}
			continue
		}

		for _, msg := range msgs {
			handler.Handle(ctx, jsconsumer.WrapLegacy(msg))
		}
	}
}
