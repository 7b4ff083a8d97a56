package eventualconsistency

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCommitter struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeCommitter) Commit(ctx context.Context) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeCommitter) Rollback(ctx context.Context) error {
	f.rolledBack = true
	return nil
}

type fakePublisher struct {
	published []DomainEvent
	failOn    string
}

func (f *fakePublisher) Publish(ctx context.Context, subject string, value any) error {
	if subject == f.failOn {
		return errors.New("publish failed")
	}
	f.published = append(f.published, DomainEvent{Subject: subject, Payload: value})
	return nil
}

func TestAfterResponse_PublishesThenCommits(t *testing.T) {
	recorder := newRecorder()
	recorder.events = []DomainEvent{
		{Subject: "item.created", Payload: map[string]string{"id": "1"}},
		{Subject: "item.updated", Payload: map[string]string{"id": "1"}},
	}

	pub := &fakePublisher{}
	tx := &fakeCommitter{}
	h := &Hook{publisher: pub, log: zap.NewNop()}

	h.afterResponse(context.Background(), tx, recorder)

	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	require.Len(t, pub.published, 2)
	assert.Equal(t, "item.created", pub.published[0].Subject)
	assert.Empty(t, recorder.events, "drain must clear the recorder")
}

func TestAfterResponse_PublishFailureRollsBackAndSkipsCommit(t *testing.T) {
	recorder := newRecorder()
	recorder.events = []DomainEvent{
		{Subject: "item.created", Payload: nil},
		{Subject: "item.updated", Payload: nil},
	}

	pub := &fakePublisher{failOn: "item.created"}
	tx := &fakeCommitter{}
	h := &Hook{publisher: pub, log: zap.NewNop()}

	h.afterResponse(context.Background(), tx, recorder)

	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	assert.Empty(t, pub.published, "no event publishes once an earlier one fails")
}

func TestAfterResponse_NoEventsStillCommits(t *testing.T) {
	recorder := newRecorder()
	pub := &fakePublisher{}
	tx := &fakeCommitter{}
	h := &Hook{publisher: pub, log: zap.NewNop()}

	h.afterResponse(context.Background(), tx, recorder)

	assert.True(t, tx.committed)
}

func TestAfterResponse_CommitErrorIsSwallowed(t *testing.T) {
	recorder := newRecorder()
	pub := &fakePublisher{}
	tx := &fakeCommitter{commitErr: errors.New("connection reset")}
	h := &Hook{publisher: pub, log: zap.NewNop()}

	assert.NotPanics(t, func() {
		h.afterResponse(context.Background(), tx, recorder)
	})
}

func TestRecord_NoRecorderBoundIsNoOp(t *testing.T) {
	assert.NotPanics(t, func() {
		Record(context.Background(), DomainEvent{Subject: "x"})
	})
}

func TestRecord_AppendsToBoundRecorder(t *testing.T) {
	recorder := newRecorder()
	ctx := context.WithValue(context.Background(), recorderKey{}, recorder)

	Record(ctx, DomainEvent{Subject: "a"})
	Record(ctx, DomainEvent{Subject: "b"})

	drained := recorder.drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "a", drained[0].Subject)
	assert.Equal(t, "b", drained[1].Subject)
}
