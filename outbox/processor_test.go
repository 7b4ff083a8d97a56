package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	batch       []Message
	processed   []string
	retried     []Message
	deadLetters []string
}

func (f *fakeStore) Insert(ctx context.Context, tx pgx.Tx, msg Message) error {
	return nil
}
func (f *fakeStore) FetchBatch(ctx context.Context, limit int) ([]Message, error) { return f.batch, nil }
func (f *fakeStore) MarkProcessed(ctx context.Context, id string, processedAt time.Time) error {
	f.processed = append(f.processed, id)
	return nil
}
func (f *fakeStore) MarkRetry(ctx context.Context, id string, retryCount int, nextRetryAt time.Time, cause string) error {
	f.retried = append(f.retried, Message{ID: id, RetryCount: retryCount, NextRetryAt: &nextRetryAt})
	return nil
}
func (f *fakeStore) MarkDeadLettered(ctx context.Context, id string, cause string) error {
	f.deadLetters = append(f.deadLetters, id)
	return nil
}
func (f *fakeStore) PruneProcessed(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, nil
}

type fakePublisher struct {
	fail  bool
	state gobreaker.State
}

func (f *fakePublisher) JsPublish(ctx context.Context, subject string, value any) (*nats.PubAck, error) {
	if f.fail {
		return nil, errors.New("publish failed")
	}
	return &nats.PubAck{}, nil
}
func (f *fakePublisher) BreakerState() gobreaker.State { return f.state }

func TestProcessor_SuccessMarksProcessed(t *testing.T) {
	store := &fakeStore{batch: []Message{{ID: "1", Type: "employee.created"}}}
	pub := &fakePublisher{}
	p := NewProcessor(store, pub, Config{}, zap.NewNop())

	p.tick(context.Background())

	assert.Equal(t, []string{"1"}, store.processed)
	assert.Empty(t, store.retried)
}

func TestProcessor_FailureUnderMaxRetriesReschedules(t *testing.T) {
	store := &fakeStore{batch: []Message{{ID: "1", Type: "employee.created", RetryCount: 0}}}
	pub := &fakePublisher{fail: true}
	p := NewProcessor(store, pub, Config{MaxRetries: 5}, zap.NewNop())

	p.tick(context.Background())

	require.Len(t, store.retried, 1)
	assert.Equal(t, 1, store.retried[0].RetryCount)
	assert.Empty(t, store.deadLetters)
}

func TestProcessor_FailureAtMaxRetriesDeadLetters(t *testing.T) {
	store := &fakeStore{batch: []Message{{ID: "1", Type: "employee.created", RetryCount: 4}}}
	pub := &fakePublisher{fail: true}
	p := NewProcessor(store, pub, Config{MaxRetries: 5}, zap.NewNop())

	p.tick(context.Background())

	assert.Equal(t, []string{"1"}, store.deadLetters)
	assert.Empty(t, store.retried)
}

func TestProcessor_SkipsTickWhenBreakerOpen(t *testing.T) {
	store := &fakeStore{batch: []Message{{ID: "1", Type: "employee.created"}}}
	pub := &fakePublisher{state: gobreaker.StateOpen}
	p := NewProcessor(store, pub, Config{}, zap.NewNop())

	p.tick(context.Background())

	assert.Empty(t, store.processed)
	assert.Empty(t, store.retried)
}

func TestMessage_Due(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, Message{Status: StatusPending}.Due(now))
	assert.True(t, Message{Status: StatusPending, NextRetryAt: &past}.Due(now))
	assert.False(t, Message{Status: StatusPending, NextRetryAt: &future}.Due(now))
	assert.False(t, Message{Status: StatusProcessed}.Due(now))
}

func TestNextRetryDelay_Schedule(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextRetryDelay(1))
	assert.Equal(t, 4*time.Second, nextRetryDelay(2))
	assert.Equal(t, 8*time.Second, nextRetryDelay(3))
}
