// Package outbox implements Component I, the transactional outbox: a
// persist-then-publish loop that guarantees a domain event is never lost
// between the database write that produced it and its publish to
// JetStream, by writing it in the same transaction as the domain change
// and replaying it from a background poller until it publishes.
package outbox

import "time"

// Status is OutboxMessage's lifecycle state.
type Status string

const (
	StatusPending      Status = "Pending"
	StatusProcessed    Status = "Processed"
	StatusDeadLettered Status = "DeadLettered"
)

// Message is one row of the outbox table: a domain event captured
// alongside the transaction that produced it, replayed until it
// publishes or exhausts its retry budget.
type Message struct {
	ID          string
	Type        string // doubles as the publish subject
	Payload     []byte
	Status      Status
	CreatedAt   time.Time
	ProcessedAt *time.Time
	NextRetryAt *time.Time
	RetryCount  int
	Error       string
}

// Due reports whether m is eligible for this tick: Pending, and either
// never retried or past its scheduled retry time.
func (m Message) Due(now time.Time) bool {
	if m.Status != StatusPending {
		return false
	}
	return m.NextRetryAt == nil || !m.NextRetryAt.After(now)
}

// nextRetryDelay implements the `now + 2^retryCount seconds` schedule.
func nextRetryDelay(retryCount int) time.Duration {
	return (1 << uint(retryCount)) * time.Second
}
