package invoker

import (
	"context"

	"github.com/arc-self/messaging-core/endpoint"
	"github.com/arc-self/messaging-core/natsclient"
	"github.com/arc-self/messaging-core/subject"
	"github.com/arc-self/messaging-core/tracecontext"
)

// Dispatch wires a registered Descriptor to a wrapped handler: decode the
// payload with the connection's Codec, recover the subject binding, bind
// the trace context, run the middleware chain, and hand back the handler's
// response value. EncodeResponse turns that value into bytes with the same
// Codec for callers that need to reply (request-reply hosts) — JetStream
// hosts ignore the returned value.
type Dispatch struct {
	Descriptor endpoint.Descriptor
	Codec      natsclient.Codec
	Handler    endpoint.HandlerFunc // pre-built via Build(descriptor.Handler, middlewares...)
}

// NewDispatch assembles a Dispatch for d, wrapping d.Handler in the given
// middlewares (outermost first). No middleware is added by default; callers
// pass AuditLogging/Recover themselves when they want them.
func NewDispatch(d endpoint.Descriptor, codec natsclient.Codec, extra ...Middleware) Dispatch {
	all := append([]Middleware{}, extra...)
	return Dispatch{
		Descriptor: d,
		Codec:      codec,
		Handler:    Build(d.Handler, all...),
	}
}

// Invoke runs one inbound message through the full pipeline: subject
// binding recovery, trace extraction, request decoding, and handler
// dispatch. headers may be nil for connections that don't carry NATS
// headers (never the case for nats.Msg, but kept explicit for testability).
// It returns the handler's response value (nil for endpoints with no
// response) and any error the handler (or decoding) produced.
func (d Dispatch) Invoke(ctx context.Context, actualSubject string, headers tracecontext.Headers, data []byte) (any, error) {
	binding := subject.ParseSubject(d.Descriptor.SubjectPattern, d.Descriptor.ControllerName, d.Descriptor.MethodName, d.Descriptor.Version, actualSubject)

	var tc tracecontext.TraceContext
	if headers != nil {
		tc = tracecontext.Extract(headers)
	} else {
		tc = tracecontext.Generate()
	}
	ctx = tracecontext.BindAmbient(ctx, tc)
	ctx = WithScope(ctx, Scope{Subject: actualSubject, Binding: binding, TypedBinding: typedBinding(d.Descriptor.ArgKinds, binding)})

	var request any
	if d.Descriptor.RequestDecoder != nil {
		req, err := d.Descriptor.RequestDecoder(d.Codec, data)
		if err != nil {
			return nil, err
		}
		request = req
	}

	return d.Handler(ctx, request, binding)
}

// EncodeResponse serializes resp with the dispatch's codec, for hosts that
// need to publish a reply (request-reply) or a response event.
func (d Dispatch) EncodeResponse(resp any) ([]byte, error) {
	if resp == nil {
		return nil, nil
	}
	return d.Codec.Marshal(resp)
}

// typedBinding converts binding's raw string segments to the scalar kinds
// declared by kinds (§4.E point 6), keyed by placeholder name, so a
// handler that wants a typed argument doesn't have to call ConvertScalar
// itself. ArgKind entries that aren't placeholders (Cancellation, Body)
// are skipped.
func typedBinding(kinds []endpoint.ArgKind, binding map[string]string) map[string]any {
	typed := make(map[string]any, len(kinds))
	for _, k := range kinds {
		if k.PlaceholderName == "" {
			continue
		}
		typed[k.PlaceholderName] = ConvertScalar(binding[k.PlaceholderName], k.PlaceholderKind)
	}
	return typed
}
