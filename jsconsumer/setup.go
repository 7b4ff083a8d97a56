package jsconsumer

import (
	"fmt"
	"time"

	"github.com/arc-self/messaging-core/natsclient"
)

// SetupConsumer provisions everything a JetStream-backed endpoint needs
// before it can subscribe: the stream (created or widened to include
// subject), the durable consumer, and — when dlq is non-nil — the
// companion dead-letter stream.
func SetupConsumer(client *natsclient.Client, stream, consumer, subject string, ackWait time.Duration, dlq *DlqRouter) error {
	if err := client.EnsureStream(stream, subject); err != nil {
		return fmt.Errorf("setup consumer: %w", err)
	}
	if err := client.EnsureDurableConsumer(stream, consumer, subject, ackWait); err != nil {
		return fmt.Errorf("setup consumer: %w", err)
	}
	if dlq != nil {
		if err := dlq.EnsureDlqStream(stream, subject); err != nil {
			return fmt.Errorf("setup consumer: %w", err)
		}
	}
	return nil
}
