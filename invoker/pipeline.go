// Package invoker implements Component E: deserializing the payload,
// binding subject placeholders and cancellation into handler arguments,
// running the middleware chain, and returning the handler's result.
package invoker

import (
	"context"

	"github.com/arc-self/messaging-core/endpoint"
)

// Middleware wraps a terminal (or already-wrapped) Handler.
type Middleware func(next endpoint.HandlerFunc) endpoint.HandlerFunc

// Build assembles a single Func(Context) → Task-shaped Handler from a
// terminal frame and a list of middlewares, applied outermost-first. Per
// the Design Notes ("prefer a single-pass builder that assembles the chain
// at startup rather than reducing at each invocation"), call Build once
// per endpoint at startup; the result is immutable and safe for
// concurrent use by every dispatched message.
func Build(terminal endpoint.HandlerFunc, middlewares ...Middleware) endpoint.HandlerFunc {
	h := terminal
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Scope is the per-message logical scope materialized by Invoke: the
// binding recovered from the subject and the subject the message arrived
// on (the headers are not kept here). A HandlerFunc reaches these through context rather
// than mutable framework back-fields (Design Notes: "Resolve this with
// constructor injection ... not mutable back-fields" — here, context
// injection plays the same role for the function-based handler shape).
type Scope struct {
	Subject string
	Binding map[string]string
	// TypedBinding holds Binding's values converted per the endpoint's
	// declared ArgKinds (§4.E point 6: "parameter whose name matches a key
	// in binding → converted string"), keyed by placeholder name. A
	// placeholder with no declared ArgKind is absent from TypedBinding; one
	// whose conversion fails holds ConvertScalar's zero value (or the raw
	// string, for an unrecognized kind).
	TypedBinding map[string]any
}

type scopeKey struct{}

// WithScope returns a context carrying s, retrievable via ScopeFromContext.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFromContext returns the Scope bound by WithScope, or a zero Scope.
func ScopeFromContext(ctx context.Context) Scope {
	if s, ok := ctx.Value(scopeKey{}).(Scope); ok {
		return s
	}
	return Scope{}
}
