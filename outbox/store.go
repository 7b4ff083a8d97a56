package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the persistence boundary the processor polls against. In the
// pgx implementation below, Insert runs on the caller's transaction (the
// one that also carries the domain write); fetch-batch, mark and prune
// each run as a single SQL statement directly against a pgxpool.Pool.
type Store interface {
	// Insert writes a new Pending message as part of tx — called from the
	// same transaction as the domain write that produced the event.
	Insert(ctx context.Context, tx pgx.Tx, msg Message) error
	// FetchBatch returns up to limit Pending, due messages ordered by
	// createdAt ascending.
	FetchBatch(ctx context.Context, limit int) ([]Message, error)
	MarkProcessed(ctx context.Context, id string, processedAt time.Time) error
	MarkRetry(ctx context.Context, id string, retryCount int, nextRetryAt time.Time, cause string) error
	MarkDeadLettered(ctx context.Context, id string, cause string) error
	// PruneProcessed deletes Processed rows with processedAt older than
	// olderThan.
	PruneProcessed(ctx context.Context, olderThan time.Time) (int64, error)
}

// PgStore is the pgx/v5-backed Store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore builds a PgStore over pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore { return &PgStore{pool: pool} }

const insertSQL = `
INSERT INTO outbox_messages (id, type, payload, status, created_at, retry_count)
VALUES ($1, $2, $3, $4, $5, 0)
`

func (s *PgStore) Insert(ctx context.Context, tx pgx.Tx, msg Message) error {
	if msg.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate outbox id: %w", err)
		}
		msg.ID = id.String()
	}
	_, err := tx.Exec(ctx, insertSQL, msg.ID, msg.Type, msg.Payload, StatusPending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

const fetchBatchSQL = `
SELECT id, type, payload, status, created_at, processed_at, next_retry_at, retry_count, error
FROM outbox_messages
WHERE status = $1 AND (next_retry_at IS NULL OR next_retry_at <= $2)
ORDER BY created_at ASC
LIMIT $3
`

func (s *PgStore) FetchBatch(ctx context.Context, limit int) ([]Message, error) {
	rows, err := s.pool.Query(ctx, fetchBatchSQL, StatusPending, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox batch: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Type, &m.Payload, &m.Status, &m.CreatedAt, &m.ProcessedAt, &m.NextRetryAt, &m.RetryCount, &m.Error); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const markProcessedSQL = `
UPDATE outbox_messages SET status = $1, processed_at = $2, error = NULL, next_retry_at = NULL WHERE id = $3
`

func (s *PgStore) MarkProcessed(ctx context.Context, id string, processedAt time.Time) error {
	_, err := s.pool.Exec(ctx, markProcessedSQL, StatusProcessed, processedAt, id)
	return err
}

const markRetrySQL = `
UPDATE outbox_messages SET retry_count = $1, next_retry_at = $2, error = $3 WHERE id = $4
`

func (s *PgStore) MarkRetry(ctx context.Context, id string, retryCount int, nextRetryAt time.Time, cause string) error {
	_, err := s.pool.Exec(ctx, markRetrySQL, retryCount, nextRetryAt, cause, id)
	return err
}

const markDeadLetteredSQL = `
UPDATE outbox_messages SET status = $1, error = $2, next_retry_at = NULL WHERE id = $3
`

func (s *PgStore) MarkDeadLettered(ctx context.Context, id string, cause string) error {
	_, err := s.pool.Exec(ctx, markDeadLetteredSQL, StatusDeadLettered, cause, id)
	return err
}

const prunProcessedSQL = `
DELETE FROM outbox_messages WHERE status = $1 AND processed_at < $2
`

func (s *PgStore) PruneProcessed(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, prunProcessedSQL, StatusProcessed, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune processed outbox rows: %w", err)
	}
	return tag.RowsAffected(), nil
}
