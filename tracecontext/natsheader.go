package tracecontext

import "github.com/nats-io/nats.go"

// NatsHeader adapts nats.Header to the Headers interface used by
// Extract/Inject.
type NatsHeader struct{ H nats.Header }

func (n NatsHeader) Get(key string) string { return n.H.Get(key) }
func (n NatsHeader) Set(key, value string) { n.H.Set(key, value) }

// ExtractFromMsg is a convenience wrapper for extracting a TraceContext
// directly from an inbound *nats.Msg, materializing its Header map if nil.
func ExtractFromMsg(msg *nats.Msg) TraceContext {
	if msg.Header == nil {
		msg.Header = nats.Header{}
	}
	return Extract(NatsHeader{H: msg.Header})
}

// InjectIntoMsg stamps tc onto an outbound *nats.Msg's headers.
func InjectIntoMsg(msg *nats.Msg, tc TraceContext) {
	if msg.Header == nil {
		msg.Header = nats.Header{}
	}
	Inject(NatsHeader{H: msg.Header}, tc)
}
