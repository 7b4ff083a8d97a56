package jsconsumer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/arc-self/messaging-core/invoker"
	"github.com/arc-self/messaging-core/result"
	"github.com/arc-self/messaging-core/tracecontext"
)

// Options configures the ack/NAK/DLQ policy around one dispatch.
type Options struct {
	MaxRedeliveries int           // default 5
	NakDelay        time.Duration // default 5s
	EnableDlq       bool          // false (the zero value) disables the DLQ; config.Defaults sets true
	DlqSuffix       string        // not read by Handler; the suffix is set on the DlqRouter (default "-dlq")
}

func (o Options) withDefaults() Options {
	if o.MaxRedeliveries == 0 {
		o.MaxRedeliveries = 5
	}
	if o.NakDelay == 0 {
		o.NakDelay = 5 * time.Second
	}
	return o
}

// Handler applies the error-classification/ack policy (§4.G) around a
// single invoker.Dispatch: on success, ack; on a transient error under the
// redelivery cap, NAK with a fixed delay; on a transient error past the
// cap, or any terminal error, route to the DLQ (if enabled) and ack —
// every message this Handle processes is acked, NAK'd, or acked-after-DLQ
// exactly once, never left unacknowledged.
type Handler struct {
	dispatch invoker.Dispatch
	dlq      *DlqRouter
	opts     Options
	log      *zap.Logger
}

// NewHandler builds a Handler. dlq may be nil when opts.EnableDlq is false.
func NewHandler(dispatch invoker.Dispatch, dlq *DlqRouter, opts Options, log *zap.Logger) *Handler {
	return &Handler{dispatch: dispatch, dlq: dlq, opts: opts.withDefaults(), log: log}
}

// Handle invokes the dispatch against msg and applies the ack/NAK/DLQ
// decision. It never returns an error — every terminal outcome (including
// a failed Ack/Nak call itself) is logged, matching the "leak nothing to
// the caller" shape of a JetStream message callback.
func (h *Handler) Handle(ctx context.Context, msg Message) {
	headerBag := tracecontext.NatsHeader{H: msg.Headers()}
	tc := tracecontext.Extract(headerBag)
	deliveryAttempt := msg.NumDelivered()

	_, err := h.dispatch.Invoke(ctx, msg.Subject(), headerBag, msg.Data())
	if err == nil {
		h.ack(msg)
		return
	}

	var appErr *result.Error
	transient := errors.As(err, &appErr) && appErr.Transient

	if transient && deliveryAttempt <= uint64(h.opts.MaxRedeliveries) {
		h.log.Warn("transient error, nacking for redelivery",
			zap.String("subject", msg.Subject()),
			zap.Uint64("deliveryAttempt", deliveryAttempt),
			zap.Error(err),
		)
		if nakErr := msg.NakWithDelay(h.opts.NakDelay); nakErr != nil {
			h.log.Error("nak failed", zap.Error(nakErr))
		}
		return
	}

	h.log.Error("error exceeded redelivery budget or is terminal, routing to DLQ",
		zap.String("subject", msg.Subject()),
		zap.Uint64("deliveryAttempt", deliveryAttempt),
		zap.Bool("transient", transient),
		zap.Error(err),
	)
	if h.opts.EnableDlq && h.dlq != nil {
		h.dlq.Send(msg.Subject(), msg.Data(), err, tc)
	}
	h.ack(msg)
}

func (h *Handler) ack(msg Message) {
	if err := msg.Ack(); err != nil {
		h.log.Error("ack failed", zap.String("subject", msg.Subject()), zap.Error(err))
	}
}
