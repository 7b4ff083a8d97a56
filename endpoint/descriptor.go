// Package endpoint implements Component D, the Endpoint Catalog: deriving
// an EndpointDescriptor per handler method and classifying its delivery
// mode.
//
// The source framework discovers endpoints by scanning handler classes for
// attributes at startup (reflection-on-annotations). Go has no equivalent
// runtime facility, so — per the Design Notes' recommended redesign — this
// package instead exposes a small registration builder: call
// sites construct an Options value (the same information an attribute
// scan would have recovered: subject pattern, connection, stream/consumer
// templates, response presence, delivery/consumer mode flags) and the
// catalog derives the same EndpointDescriptor the reflective version
// would have produced, including the mode-classification precedence.
package endpoint

import (
	"bytes"
	"context"
)

// Mode is the delivery topology an endpoint is dispatched through.
type Mode int

const (
	ModeRequestReply Mode = iota
	ModeCorePubSub
	ModeJSConsume
	ModeJSFetch
)

func (m Mode) String() string {
	switch m {
	case ModeRequestReply:
		return "RequestReply"
	case ModeCorePubSub:
		return "CorePubSub"
	case ModeJSConsume:
		return "JetStreamConsume"
	case ModeJSFetch:
		return "JetStreamFetch"
	default:
		return "Unknown"
	}
}

// DeliveryMode is the class-or-method-level flag distinguishing a plain
// core NATS pub-sub endpoint from a JetStream-backed one.
type DeliveryMode int

const (
	DeliveryJetStream DeliveryMode = iota // default
	DeliveryCore
)

// ConsumerMode distinguishes the two JetStream subscription topologies.
type ConsumerMode int

const (
	ConsumerModeConsume ConsumerMode = iota // default: continuous Consume iterator
	ConsumerModeFetch
)

// ArgKind classifies one positional handler argument, computed once at
// descriptor build time so the invoker's dispatch path is table-driven
// instead of inspecting parameter names at call time (Design Notes:
// "Dynamic parameter binding → typed bindings").
type ArgKind struct {
	Cancellation bool
	// PlaceholderName is set when this argument binds to a subject
	// placeholder; PlaceholderKind names the target scalar
	// (string/int/long/bool/guid/double/decimal).
	PlaceholderName string
	PlaceholderKind string
	// RequestBody is set when this argument is the deserialized payload.
	RequestBody bool
}

// Decoder is the minimal deserialization capability a Descriptor's
// RequestDecoder needs; natsclient.Codec satisfies it structurally.
type Decoder interface {
	Unmarshal(data []byte, v any) error
}

// DecodeFunc turns a raw message body into the endpoint's request type (or
// nil for an empty body / no request type), using the connection's codec.
type DecodeFunc func(dec Decoder, data []byte) (any, error)

// DecodeAs builds a DecodeFunc for request payload type T. Registration
// call sites pass endpoint.DecodeAs[EmployeeUpdated]() when their handler
// expects a typed body.
func DecodeAs[T any]() DecodeFunc {
	return func(dec Decoder, data []byte) (any, error) {
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, nil
		}
		var v T
		if err := dec.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// HandlerFunc is the uniform shape every registered handler method is
// adapted to. Request is the deserialized payload (nil if the endpoint has
// no request type or the inbound body was empty); binding carries the
// resolved subject placeholders (§3 SubjectBinding); the returned value is
// serialized as the response for request-reply endpoints and ignored
// otherwise.
type HandlerFunc func(ctx context.Context, request any, binding map[string]string) (any, error)

// Descriptor is the immutable, post-discovery description of one endpoint:
// one handler method bound to one subject pattern in one delivery mode.
type Descriptor struct {
	ControllerName string // e.g. "employee", derived from the handler type name
	MethodName     string
	Version        string // defaults to "1"

	SubjectPattern string // raw pattern, with placeholders, not yet resolved
	Mode           Mode

	ConnectionName string
	StreamName     string // only meaningful for ModeJSConsume/ModeJSFetch
	ConsumerName   string // only meaningful for ModeJSConsume/ModeJSFetch

	HasRequest  bool
	HasResponse bool

	RequestDecoder DecodeFunc
	ArgKinds       []ArgKind
	Handler        HandlerFunc
}

// ResolvedSubject applies resolve to the descriptor's pattern, controller,
// method and version; computed on demand rather than precomputed so that
// ControllerName/MethodName/Version stay the single source of truth.
func (d Descriptor) ResolvedSubject(resolve func(pattern, controller, method, version string) string) string {
	return resolve(d.SubjectPattern, d.ControllerName, d.MethodName, d.Version)
}
