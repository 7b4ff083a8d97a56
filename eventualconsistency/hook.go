// Package eventualconsistency implements Component L, the
// eventual-consistency hook: an HTTP middleware that defers in-request
// domain events until after the response has been written, wraps the
// whole unit of work in a database transaction, and publishes the
// deferred events through the in-process publisher before committing.
//
// This is the one core component that lives on the HTTP side rather than
// the messaging side — it is the bridge between a synchronous request
// handler and Component H's resilient publish client. Outbound
// cross-service events still go through the outbox (Component I); this
// hook only concerns in-process domain events raised during a request.
package eventualconsistency

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// DomainEvent is one event recorded during a request, queued for publish
// once the response has been sent.
type DomainEvent struct {
	Subject string
	Payload any
}

// Publisher is the in-process publish capability the hook needs after a
// response completes; publish.Client satisfies this structurally.
type Publisher interface {
	Publish(ctx context.Context, subject string, value any) error
}

// Recorder is the per-request slot the persistence layer appends to on
// save, per §3's "TraceContext is owned by the task executing the current
// request" ownership model extended to recorded domain events.
type Recorder struct {
	mu     sync.Mutex
	events []DomainEvent
}

func newRecorder() *Recorder { return &Recorder{} }

// Record appends event to the recorder bound to ctx. Called by the
// persistence layer at the point a domain write is saved — out of core
// scope, but this is the interface it calls into.
func Record(ctx context.Context, event DomainEvent) {
	if r, ok := ctx.Value(recorderKey{}).(*Recorder); ok {
		r.mu.Lock()
		r.events = append(r.events, event)
		r.mu.Unlock()
	}
}

func (r *Recorder) drain() []DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events
	r.events = nil
	return events
}

type recorderKey struct{}
type txKey struct{}

// TxFromContext returns the transaction the hook began for this request,
// for handlers/services that need to perform their writes inside it.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// committer is the narrow slice of pgx.Tx the after-response callback
// needs; pgx.Tx satisfies it structurally. Narrowing to this interface
// (rather than depending on pgx.Tx directly in afterResponse) is what
// lets the commit/rollback decision be exercised in tests without a real
// database connection.
type committer interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

const skipTransactionKey = "eventualconsistency.skip"

// SkipTransaction marks c's endpoint as carrying the "skip transaction"
// marker (§4.L): the hook passes such requests through untouched, for
// read-only endpoints that never record domain events.
func SkipTransaction(c echo.Context) {
	c.Set(skipTransactionKey, true)
}

func isSkipped(c echo.Context) bool {
	v, _ := c.Get(skipTransactionKey).(bool)
	return v
}

// Hook wraps HTTP handlers in the persist-then-publish-then-commit unit
// of work described in §4.L.
type Hook struct {
	pool      *pgxpool.Pool
	publisher Publisher
	log       *zap.Logger
}

// New builds a Hook persisting through pool and publishing through
// publisher.
func New(pool *pgxpool.Pool, publisher Publisher, log *zap.Logger) *Hook {
	return &Hook{pool: pool, publisher: publisher, log: log}
}

// Middleware returns the echo.MiddlewareFunc implementing §4.L: pass
// through if the endpoint carries the skip-transaction marker; otherwise
// begin a transaction, bind it and a fresh Recorder into the request
// context, run the handler, and register a response-completion callback
// that drains the recorder, publishes each event through the in-process
// publisher, and commits — swallowing (but still disposing of the
// transaction on) any failure in that callback so a publish or commit
// error never propagates back into the HTTP response that already went
// out.
//
// Ordering note (flagged, not resolved, per the REDESIGN FLAGS in §9):
// publish happens before commit, exactly as the source does it, so a
// publish failure logs but the transaction is still rolled back rather
// than committed — the source's own exception-swallowing in this path
// leaves it ambiguous whether that was the intended behavior.
func (h *Hook) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isSkipped(c) {
				return next(c)
			}

			ctx := c.Request().Context()
			tx, err := h.pool.Begin(ctx)
			if err != nil {
				return err
			}

			recorder := newRecorder()
			ctx = context.WithValue(ctx, recorderKey{}, recorder)
			ctx = context.WithValue(ctx, txKey{}, tx)
			c.SetRequest(c.Request().WithContext(ctx))

			c.Response().After(func() {
				h.afterResponse(ctx, tx, recorder)
			})

			return next(c)
		}
	}
}

// afterResponse drains the recorder, publishes every event, and commits.
// Any panic or error in this path is logged and swallowed — the HTTP
// response has already been written and cannot be changed — but the
// transaction is always explicitly disposed of (rolled back on failure,
// committed on success), never left open.
func (h *Hook) afterResponse(ctx context.Context, tx committer, recorder *Recorder) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("eventual-consistency callback panicked, rolling back", zap.Any("panic", r))
			_ = tx.Rollback(context.Background())
		}
	}()

	for _, event := range recorder.drain() {
		if err := h.publisher.Publish(ctx, event.Subject, event.Payload); err != nil {
			h.log.Error("eventual-consistency publish failed before commit, rolling back",
				zap.String("subject", event.Subject), zap.Error(err))
			_ = tx.Rollback(context.Background())
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		h.log.Error("eventual-consistency commit failed", zap.Error(err))
	}
}
