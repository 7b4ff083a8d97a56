package natsclient

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// EnsureStream idempotently ensures a JetStream stream named `name` exists
// and filters `subject`. If the stream does not exist it is created with
// `subject` as its sole filter; if it exists but `subject` is not already
// in its filter list, the config is updated to append it.
//
// This backs Component G's SetupConsumer: "If the stream does not exist,
// create it with the resolved subject. If it exists but the subject is
// not in its filter list, update the config to append."
func (c *Client) EnsureStream(name, subject string) error {
	info, err := c.JS.StreamInfo(name)
	if err == nil {
		if slices.Contains(info.Config.Subjects, subject) {
			return nil
		}
		cfg := info.Config
		cfg.Subjects = append(cfg.Subjects, subject)
		if _, err := c.JS.UpdateStream(&cfg); err != nil {
			return fmt.Errorf("update stream %q to add subject %q: %w", name, subject, err)
		}
		c.Log.Info("NATS stream subject filter widened",
			zap.String("stream", name), zap.String("subject", subject))
		return nil
	}

	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %q: %w", name, err)
	}

	cfg := &nats.StreamConfig{
		Name:      name,
		Subjects:  []string{subject},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
	}
	if _, err := c.JS.AddStream(cfg); err != nil {
		return fmt.Errorf("create stream %q: %w", name, err)
	}
	c.Log.Info("NATS stream provisioned", zap.String("stream", name), zap.String("subject", subject))
	return nil
}

// EnsureDurableConsumer creates or updates a durable pull consumer with
// explicit ack policy bound to stream/subject.
func (c *Client) EnsureDurableConsumer(stream, durable, filterSubject string, ackWait time.Duration) error {
	cfg := &nats.ConsumerConfig{
		Durable:       durable,
		AckPolicy:     nats.AckExplicitPolicy,
		FilterSubject: filterSubject,
		AckWait:       ackWait,
	}

	_, err := c.JS.ConsumerInfo(stream, durable)
	if err == nil {
		if _, err := c.JS.UpdateConsumer(stream, cfg); err != nil {
			return fmt.Errorf("update consumer %q/%q: %w", stream, durable, err)
		}
		return nil
	}
	if !errors.Is(err, nats.ErrConsumerNotFound) {
		return fmt.Errorf("consumer info %q/%q: %w", stream, durable, err)
	}

	_, err = c.JS.AddConsumer(stream, cfg)
	if err != nil {
		return fmt.Errorf("create consumer %q/%q: %w", stream, durable, err)
	}
	c.Log.Info("NATS durable consumer provisioned",
		zap.String("stream", stream), zap.String("durable", durable))
	return nil
}
