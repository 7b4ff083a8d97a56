package invoker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arc-self/messaging-core/endpoint"
	"github.com/arc-self/messaging-core/tracecontext"
)

// AuditLogging is the standard middleware every endpoint gets by default
// (§4.E): it logs dispatch start, completion with elapsed time, and
// failure, scoped to the message's trace/request IDs, and rethrows any
// handler error unchanged after logging it.
func AuditLogging(logger *zap.Logger) Middleware {
	return func(next endpoint.HandlerFunc) endpoint.HandlerFunc {
		return func(ctx context.Context, request any, binding map[string]string) (any, error) {
			tc := tracecontext.FromContext(ctx)
			scope := ScopeFromContext(ctx)
			log := logger.With(
				zap.String("traceId", tc.TraceID),
				zap.String("requestId", tc.RequestID),
				zap.String("subject", scope.Subject),
			)

			log.Debug("dispatch start")
			start := time.Now()

			resp, err := next(ctx, request, binding)

			elapsed := time.Since(start)
			if err != nil {
				log.Error("dispatch failed",
					zap.Duration("elapsed", elapsed),
					zap.Error(err),
				)
				return resp, err
			}

			log.Debug("dispatch completed", zap.Duration("elapsed", elapsed))
			return resp, nil
		}
	}
}

// Recover is an optional middleware converting a handler panic into an
// error (an unexported panicError, not a *result.Error, so the JetStream
// handler classifies it as terminal) rather than crashing the host goroutine —
// grounded in the source framework's top-level per-message recovery around
// subscription callbacks.
func Recover(logger *zap.Logger) Middleware {
	return func(next endpoint.HandlerFunc) endpoint.HandlerFunc {
		return func(ctx context.Context, request any, binding map[string]string) (resp any, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic recovered", zap.Any("panic", r))
					err = &panicError{r}
				}
			}()
			return next(ctx, request, binding)
		}
	}
}

type panicError struct{ v any }

func (p *panicError) Error() string { return "handler panic" }
