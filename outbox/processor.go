package outbox

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Publisher is the resilient publish capability the processor needs —
// publish.Client satisfies this structurally.
type Publisher interface {
	JsPublish(ctx context.Context, subject string, value any) (*nats.PubAck, error)
	BreakerState() gobreaker.State
}

// Config tunes the processor's poll loop.
type Config struct {
	Interval        time.Duration // default 5s
	BatchSize       int           // default 100
	MaxRetries      int           // default 5
	RetentionPeriod time.Duration // default 7d (applied when 0); a negative value disables pruning
}

func (c Config) withDefaults() Config {
	if c.Interval == 0 {
		c.Interval = 5 * time.Second
	}
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.RetentionPeriod == 0 {
		c.RetentionPeriod = 7 * 24 * time.Hour
	}
	return c
}

// Processor is the background poll-publish-mark loop.
type Processor struct {
	store     Store
	publisher Publisher
	cfg       Config
	log       *zap.Logger
}

// NewProcessor builds a Processor polling store and publishing through
// publisher.
func NewProcessor(store Store, publisher Publisher, cfg Config, log *zap.Logger) *Processor {
	return &Processor{store: store, publisher: publisher, cfg: cfg.withDefaults(), log: log}
}

// Run blocks, ticking every cfg.Interval until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs one poll-publish-mark cycle, plus retention pruning. If the
// publisher's breaker is open, the entire tick is skipped with a log
// line — "skip rather than burn a full batch failing fast".
func (p *Processor) tick(ctx context.Context) {
	if p.publisher.BreakerState() == gobreaker.StateOpen {
		p.log.Info("outbox tick skipped, circuit breaker open")
		return
	}

	messages, err := p.store.FetchBatch(ctx, p.cfg.BatchSize)
	if err != nil {
		p.log.Error("outbox fetch batch failed", zap.Error(err))
		return
	}

	for _, msg := range messages {
		p.process(ctx, msg)
	}

	if p.cfg.RetentionPeriod > 0 {
		cutoff := time.Now().Add(-p.cfg.RetentionPeriod)
		if n, err := p.store.PruneProcessed(ctx, cutoff); err != nil {
			p.log.Error("outbox prune failed", zap.Error(err))
		} else if n > 0 {
			p.log.Info("outbox pruned processed rows", zap.Int64("count", n))
		}
	}
}

func (p *Processor) process(ctx context.Context, msg Message) {
	_, err := p.publisher.JsPublish(ctx, msg.Type, msg.Payload)
	if err == nil {
		if markErr := p.store.MarkProcessed(ctx, msg.ID, time.Now().UTC()); markErr != nil {
			p.log.Error("outbox mark processed failed", zap.String("id", msg.ID), zap.Error(markErr))
		}
		return
	}

	retryCount := msg.RetryCount + 1
	if retryCount >= p.cfg.MaxRetries {
		p.log.Error("outbox message exceeded retry budget, dead-lettering",
			zap.String("id", msg.ID), zap.Int("retryCount", retryCount), zap.Error(err))
		if markErr := p.store.MarkDeadLettered(ctx, msg.ID, err.Error()); markErr != nil {
			p.log.Error("outbox mark dead-lettered failed", zap.String("id", msg.ID), zap.Error(markErr))
		}
		return
	}

	nextRetryAt := time.Now().Add(nextRetryDelay(retryCount))
	p.log.Warn("outbox publish failed, scheduling retry",
		zap.String("id", msg.ID), zap.Int("retryCount", retryCount), zap.Time("nextRetryAt", nextRetryAt), zap.Error(err))
	if markErr := p.store.MarkRetry(ctx, msg.ID, retryCount, nextRetryAt, err.Error()); markErr != nil {
		p.log.Error("outbox mark retry failed", zap.String("id", msg.ID), zap.Error(markErr))
	}
}
