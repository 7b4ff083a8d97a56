// Package jsconsumer implements Component G, the JetStream message
// handler: ack/NAK policy, redelivery caps, and dead-letter routing around
// a decoded invocation.
package jsconsumer

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/arc-self/messaging-core/tracecontext"
)

const (
	HeaderDlqError     = "X-Dlq-Error"
	HeaderDlqSubject   = "X-Dlq-Subject"
	HeaderDlqTimestamp = "X-Dlq-Timestamp"
)

// DlqRouter publishes exhausted/terminal messages to a per-stream
// dead-letter stream.
//
// The source framework derives the DLQ subject as `{originalSubject}.dlq`
// but declares the DLQ stream's filter as the literal `*.dlq`, which only
// matches single-segment original subjects (REDESIGN FLAG in the error
// handling design). This implementation instead derives the DLQ subject
// from the original subject's first token (`{prefix}.dlq`) and sets the DLQ
// stream's filter to `{prefix}.>`, so an original subject of any depth
// still routes to a subject the filter matches; the full original subject
// travels in the X-Dlq-Subject header.
type DlqRouter struct {
	js     nats.JetStreamContext
	log    *zap.Logger
	suffix string // default "-dlq"
}

// NewDlqRouter builds a DlqRouter. suffix defaults to "-dlq" when empty.
func NewDlqRouter(js nats.JetStreamContext, log *zap.Logger, suffix string) *DlqRouter {
	if suffix == "" {
		suffix = "-dlq"
	}
	return &DlqRouter{js: js, log: log, suffix: suffix}
}

// StreamName returns the DLQ stream name for an original stream.
func (r *DlqRouter) StreamName(originalStream string) string {
	return originalStream + r.suffix
}

// Subject returns the DLQ subject a message originally published on
// originalSubject is redirected to.
func (r *DlqRouter) Subject(originalSubject string) string {
	return dlqPrefix(originalSubject) + ".dlq"
}

// dlqPrefix is the first subject token, used both to build the DLQ subject
// and the DLQ stream's wildcard filter, so the filter always matches every
// subject the stream's originals can produce.
func dlqPrefix(originalSubject string) string {
	for i := 0; i < len(originalSubject); i++ {
		if originalSubject[i] == '.' {
			return originalSubject[:i]
		}
	}
	return originalSubject
}

// EnsureDlqStream idempotently provisions the DLQ stream for
// originalStream/originalSubject, with a 30-day age limit and a
// `{prefix}.>` filter that accepts the `{prefix}.dlq` subject Subject
// derives for this original subject.
func (r *DlqRouter) EnsureDlqStream(originalStream, originalSubject string) error {
	name := r.StreamName(originalStream)
	filter := dlqPrefix(originalSubject) + ".>"

	info, err := r.js.StreamInfo(name)
	if err == nil {
		for _, s := range info.Config.Subjects {
			if s == filter {
				return nil
			}
		}
		cfg := info.Config
		cfg.Subjects = append(cfg.Subjects, filter)
		_, err := r.js.UpdateStream(&cfg)
		return err
	}

	_, err = r.js.AddStream(&nats.StreamConfig{
		Name:      name,
		Subjects:  []string{filter},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    30 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("provision DLQ stream %q: %w", name, err)
	}
	r.log.Info("DLQ stream provisioned", zap.String("stream", name), zap.String("filter", filter))
	return nil
}

// Send redirects payload to the DLQ subject derived from originalSubject,
// stamping the standard DLQ headers plus the original trace context so the
// dead-lettered message can still be correlated. Publish failures are
// logged and swallowed — a sideline DLQ outage must never block
// acknowledgement of the source message.
func (r *DlqRouter) Send(originalSubject string, payload []byte, cause error, tc tracecontext.TraceContext) {
	msg := &nats.Msg{
		Subject: r.Subject(originalSubject),
		Data:    payload,
		Header:  nats.Header{},
	}
	msg.Header.Set(HeaderDlqError, cause.Error())
	msg.Header.Set(HeaderDlqSubject, originalSubject)
	msg.Header.Set(HeaderDlqTimestamp, time.Now().UTC().Format(time.RFC3339))
	tracecontext.InjectIntoMsg(msg, tc)

	if _, err := r.js.PublishMsg(msg); err != nil {
		r.log.Error("DLQ publish failed, source message still acked",
			zap.String("originalSubject", originalSubject),
			zap.Error(err),
		)
	}
}
