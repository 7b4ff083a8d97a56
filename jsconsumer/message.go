package jsconsumer

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Message abstracts over the legacy nats.Msg (used by the Fetch host) and
// the jetstream v2 Msg (used by the Consume host) so Handler's ack/NAK/DLQ
// policy runs identically against either JetStream subscription topology.
type Message interface {
	Subject() string
	Headers() nats.Header
	Data() []byte
	NumDelivered() uint64
	Ack() error
	NakWithDelay(delay time.Duration) error
}

// legacyMessage adapts a *nats.Msg (as delivered by nats.JetStreamContext's
// Fetch) to Message.
type legacyMessage struct{ msg *nats.Msg }

// WrapLegacy adapts a pull-subscription *nats.Msg to Message.
func WrapLegacy(msg *nats.Msg) Message { return legacyMessage{msg} }

func (l legacyMessage) Subject() string    { return l.msg.Subject }
func (l legacyMessage) Headers() nats.Header { return l.msg.Header }
func (l legacyMessage) Data() []byte       { return l.msg.Data }

func (l legacyMessage) NumDelivered() uint64 {
	meta, err := l.msg.Metadata()
	if err != nil {
		return 1
	}
	return meta.NumDelivered
}

func (l legacyMessage) Ack() error { return l.msg.Ack() }
func (l legacyMessage) NakWithDelay(delay time.Duration) error {
	return l.msg.NakWithDelay(delay)
}

// Raw returns the underlying *nats.Msg, for code that wants the original
// NATS representation.
func (l legacyMessage) Raw() *nats.Msg { return l.msg }

// jetstreamMessage adapts a jetstream.Msg (as delivered by the Consume
// iterator) to Message.
type jetstreamMessage struct{ msg jetstream.Msg }

// WrapJetstream adapts a jetstream v2 Msg to Message.
func WrapJetstream(msg jetstream.Msg) Message { return jetstreamMessage{msg} }

func (j jetstreamMessage) Subject() string      { return j.msg.Subject() }
func (j jetstreamMessage) Headers() nats.Header { return j.msg.Headers() }
func (j jetstreamMessage) Data() []byte         { return j.msg.Data() }

func (j jetstreamMessage) NumDelivered() uint64 {
	meta, err := j.msg.Metadata()
	if err != nil {
		return 1
	}
	return meta.NumDelivered
}

func (j jetstreamMessage) Ack() error { return j.msg.Ack() }
func (j jetstreamMessage) NakWithDelay(delay time.Duration) error {
	return j.msg.NakWithDelay(delay)
}
