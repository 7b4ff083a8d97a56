// Package tracecontext generates, propagates, and binds the lightweight
// trace/request ID pair carried on every NATS message header, per the
// wire format in the external interfaces design (X-Trace-Id, X-Request-Id,
// X-Timestamp).
//
// The source framework this is modeled on keeps the active TraceContext in
// an async-local slot. That ambient style doesn't map cleanly onto Go,
// which has no implicit per-goroutine storage, so (per the recommended
// redesign) TraceContext is instead threaded explicitly through
// context.Context — BindAmbient below is the explicit-context analogue of
// the source's implicit binding, not a reintroduction of hidden state.
package tracecontext

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
	HeaderTimestamp = "X-Timestamp"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// TraceContext is the per-request identifier pair propagated across
// message hops so related work can be correlated.
type TraceContext struct {
	TraceID     string // 32 lowercase hex chars, 16 random bytes, never all-zero
	RequestID   string // 12-char base62, regenerated on every outbound message
	TimestampMs int64  // unix millis, set at send time
}

// Headers is the minimal header-bag abstraction both nats.Header and a
// plain map[string]string satisfy enough of to extract/inject against; the
// invoker and publish client adapt their concrete header types into this.
type Headers interface {
	Get(key string) string
	Set(key, value string)
}

// Generate produces a brand-new TraceContext: a 128-bit random trace ID
// (regenerated on the vanishingly unlikely all-zero draw), a 12-character
// base62 request ID, and the current timestamp.
func Generate() TraceContext {
	return TraceContext{
		TraceID:     generateTraceID(),
		RequestID:   generateRequestID(),
		TimestampMs: time.Now().UnixMilli(),
	}
}

func generateTraceID() string {
	var buf [16]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			continue
		}
		if !allZero(buf[:]) {
			return hex.EncodeToString(buf[:])
		}
	}
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func generateRequestID() string {
	var out [12]byte
	var buf [12]byte
	_, _ = rand.Read(buf[:])
	for i, b := range buf {
		out[i] = base62Alphabet[int(b)%len(base62Alphabet)]
	}
	return string(out[:])
}

// Extract reads the three headers and materializes any missing field via
// Generate, so Extract always returns a fully-populated TraceContext.
func Extract(h Headers) TraceContext {
	fresh := Generate()

	tc := TraceContext{
		TraceID:     h.Get(HeaderTraceID),
		RequestID:   h.Get(HeaderRequestID),
		TimestampMs: fresh.TimestampMs,
	}
	if tc.TraceID == "" {
		tc.TraceID = fresh.TraceID
	}
	if tc.RequestID == "" {
		tc.RequestID = fresh.RequestID
	}
	if ts := h.Get(HeaderTimestamp); ts != "" {
		if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
			tc.TimestampMs = ms
		}
	}
	return tc
}

// Inject overwrites the three headers with tc's fields.
func Inject(h Headers, tc TraceContext) {
	h.Set(HeaderTraceID, tc.TraceID)
	h.Set(HeaderRequestID, tc.RequestID)
	h.Set(HeaderTimestamp, strconv.FormatInt(tc.TimestampMs, 10))
}

type ambientKey struct{}

// BindAmbient returns a derived context carrying tc. Every publish issued
// with this context (via the publish client) inherits tc.TraceID and mints
// a fresh RequestID, matching the source's "ambient trace, new requestId
// per publish" ordering guarantee.
func BindAmbient(ctx context.Context, tc TraceContext) context.Context {
	return context.WithValue(ctx, ambientKey{}, tc)
}

// FromContext returns the ambient TraceContext bound by BindAmbient, or a
// freshly generated one if none is bound — publishing outside any inbound
// message still gets a valid, self-consistent trace.
func FromContext(ctx context.Context) TraceContext {
	if tc, ok := ctx.Value(ambientKey{}).(TraceContext); ok {
		return tc
	}
	return Generate()
}

// NextOutbound derives the TraceContext to stamp on an outbound publish
// issued from ctx: the ambient TraceID survives, RequestID is regenerated,
// and the timestamp is reset to now.
func NextOutbound(ctx context.Context) TraceContext {
	tc := FromContext(ctx)
	return TraceContext{
		TraceID:     tc.TraceID,
		RequestID:   generateRequestID(),
		TimestampMs: time.Now().UnixMilli(),
	}
}
