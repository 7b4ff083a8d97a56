// Package publish implements Component H, the resilient publish client:
// trace-header injection on every outbound message, plus a retry +
// circuit-breaker pipeline wrapping JetStream publishes.
package publish

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/arc-self/messaging-core/natsclient"
	"github.com/arc-self/messaging-core/tracecontext"
)

// ResilienceConfig tunes the retry + circuit-breaker pipeline wrapping
// JsPublish.
type ResilienceConfig struct {
	MaxAttempts  uint          // default 3
	BaseInterval time.Duration // default 1s

	FailureRatio   float64       // default 0.5
	SamplingWindow time.Duration // default 30s
	BreakDuration  time.Duration // default 30s
	MinThroughput  uint32        // default 10
}

func (c ResilienceConfig) withDefaults() ResilienceConfig {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.BaseInterval == 0 {
		c.BaseInterval = time.Second
	}
	if c.FailureRatio == 0 {
		c.FailureRatio = 0.5
	}
	if c.SamplingWindow == 0 {
		c.SamplingWindow = 30 * time.Second
	}
	if c.BreakDuration == 0 {
		c.BreakDuration = 30 * time.Second
	}
	if c.MinThroughput == 0 {
		c.MinThroughput = 10
	}
	return c
}

// Client is a per-connection resilient publish client: Publish/Request use
// the connection directly, JsPublish goes through the retry+breaker
// pipeline.
type Client struct {
	name    string
	conn    *natsclient.Client
	codec   natsclient.Codec
	log     *zap.Logger
	breaker *gobreaker.CircuitBreaker
	cfg     ResilienceConfig
}

// NewClient builds a resilient publish client over conn. name identifies
// the connection for logging and the circuit breaker's name.
func NewClient(name string, conn *natsclient.Client, codec natsclient.Codec, cfg ResilienceConfig, log *zap.Logger) *Client {
	cfg = cfg.withDefaults()

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.SamplingWindow,
		Timeout:     cfg.BreakDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinThroughput {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &Client{name: name, conn: conn, codec: codec, log: log, breaker: cb, cfg: cfg}
}

// Publish is a core NATS fire-and-forget publish, with trace headers
// auto-injected from ctx's ambient TraceContext.
func (c *Client) Publish(ctx context.Context, subject string, value any) error {
	msg, err := c.buildMsg(ctx, subject, value)
	if err != nil {
		return err
	}
	return c.conn.Conn.PublishMsg(msg)
}

// Request issues a synchronous request-reply publish. A zero timeout uses
// ctx's own deadline/cancellation only; a positive timeout is linked
// on top of ctx.
func (c *Client) Request(ctx context.Context, subject string, value any, timeout time.Duration) (*nats.Msg, error) {
	msg, err := c.buildMsg(ctx, subject, value)
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.conn.Conn.RequestMsgWithContext(ctx, msg)
}

// JsPublish publishes msg to JetStream, wrapped in retry (exponential
// backoff, default 3 attempts / 1s base) composed with a circuit breaker
// (default failure ratio 0.5 over a 30s window, 30s break). When the
// circuit is open the call fails fast without attempting a publish.
func (c *Client) JsPublish(ctx context.Context, subject string, value any) (*nats.PubAck, error) {
	msg, err := c.buildMsg(ctx, subject, value)
	if err != nil {
		return nil, err
	}

	var ack *nats.PubAck
	op := func() error {
		result, err := c.breaker.Execute(func() (any, error) {
			return c.conn.JS.PublishMsg(msg)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return backoff.Permanent(err)
			}
			return err
		}
		ack = result.(*nats.PubAck)
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.BaseInterval
	bo := backoff.WithMaxRetries(exp, uint64(c.cfg.MaxAttempts-1))
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return ack, nil
}

func (c *Client) buildMsg(ctx context.Context, subject string, value any) (*nats.Msg, error) {
	data, err := c.codec.Marshal(value)
	if err != nil {
		return nil, err
	}

	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	tc := tracecontext.NextOutbound(ctx)
	tracecontext.InjectIntoMsg(msg, tc)
	return msg, nil
}

// BreakerState reports the circuit breaker's current state, for health
// checks / the outbox processor's "skip tick if open" rule.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}
