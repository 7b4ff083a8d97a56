package hosts

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/arc-self/messaging-core/endpoint"
	"github.com/arc-self/messaging-core/invoker"
	"github.com/arc-self/messaging-core/jsconsumer"
	"github.com/arc-self/messaging-core/natsclient"
)

// Supervisor owns all four subscription hosts for one client and brings
// them up/down together: the JetStream fetch loops observe the ctx passed
// to Start, and Stop unsubscribes every core subscription and stops every
// consume iterator.
type Supervisor struct {
	RequestReply *RequestReplyHost
	CorePubSub   *CorePubSubHost
	JSConsume    *JSConsumeHost
	JSFetch      *JSFetchHost

	log *zap.Logger
}

// NewSupervisor builds the four hosts bound to client.
func NewSupervisor(client *natsclient.Client, log *zap.Logger) (*Supervisor, error) {
	jsConsume, err := NewJSConsumeHost(client, log)
	if err != nil {
		return nil, err
	}
	return &Supervisor{
		RequestReply: NewRequestReplyHost(client, log),
		CorePubSub:   NewCorePubSubHost(client, log),
		JSConsume:    jsConsume,
		JSFetch:      NewJSFetchHost(client, log),
		log:          log,
	}, nil
}

// Start partitions catalog by mode and brings each host online against its
// slice, using resolve to turn a Descriptor's pattern into a concrete
// subject and dispatchFor/handlerFor to build the per-descriptor
// invoker.Dispatch and jsconsumer.Handler.
func (s *Supervisor) Start(
	ctx context.Context,
	catalog *endpoint.Catalog,
	resolve func(endpoint.Descriptor) string,
	dispatchFor func(endpoint.Descriptor) invoker.Dispatch,
	handlerFor func(invoker.Dispatch) *jsconsumer.Handler,
) error {
	if err := s.RequestReply.Start(catalog.ByMode(endpoint.ModeRequestReply), dispatchFor, resolve); err != nil {
		return err
	}
	if err := s.CorePubSub.Start(catalog.ByMode(endpoint.ModeCorePubSub), dispatchFor, resolve); err != nil {
		return err
	}
	if err := s.JSConsume.Start(ctx, catalog.ByMode(endpoint.ModeJSConsume), dispatchFor, handlerFor); err != nil {
		return err
	}
	if err := s.JSFetch.Start(ctx, catalog.ByMode(endpoint.ModeJSFetch), dispatchFor, handlerFor); err != nil {
		return err
	}
	return nil
}

// Stop unsubscribes the two core-NATS hosts and stops every JetStream
// consume iterator. The Fetch host's loops exit on their own once ctx
// (passed to Start) is cancelled.
func (s *Supervisor) Stop() {
	s.RequestReply.Stop()
	s.CorePubSub.Stop()
	s.JSConsume.Stop()
}

// RunUntilSignal returns a context derived from parent that is cancelled on
// SIGINT/SIGTERM, plus its stop function. It neither blocks nor stops any
// host: callers pass the context into Start so the Fetch/Consume loops
// observe cancellation directly, and call Stop themselves on shutdown.
func RunUntilSignal(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
