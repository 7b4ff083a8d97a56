package natsclient

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Auth carries the credential variants a named connection can authenticate
// with, per the connection registry's configuration surface: plain
// username/password, a bearer token, an NKey seed paired with a signed
// JWT, or a `.creds` file issued by an operator.
type Auth struct {
	Username  string
	Password  string
	Token     string
	JWT       string
	NKeySeed  string
	CredsFile string
}

func (a Auth) options() []nats.Option {
	var opts []nats.Option
	switch {
	case a.CredsFile != "":
		opts = append(opts, nats.UserCredentials(a.CredsFile))
	case a.JWT != "" && a.NKeySeed != "":
		opts = append(opts, nats.UserJWTAndSeed(a.JWT, a.NKeySeed))
	case a.Token != "":
		opts = append(opts, nats.Token(a.Token))
	case a.Username != "":
		opts = append(opts, nats.UserInfo(a.Username, a.Password))
	}
	return opts
}

// Client wraps a NATS connection and its JetStream context.
type Client struct {
	Conn *nats.Conn
	JS   nats.JetStreamContext
	Log  *zap.Logger
}

// NewClient connects to NATS and initialises a JetStream context.
func NewClient(url string, auth Auth, logger *zap.Logger) (*Client, error) {
	opts := append([]nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	}, auth.options()...)

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	logger.Info("NATS JetStream connected", zap.String("url", url))
	return &Client{Conn: nc, JS: js, Log: logger}, nil
}

// Close drains and closes the underlying NATS connection.
// Drain() flushes all pending JetStream publish acknowledgments and
// outstanding subscription deliveries before closing — unlike Close()
// which drops in-flight messages immediately.
func (c *Client) Close() {
	if c.Conn != nil {
		// Drain blocks until all messages are flushed; fall back to Close
		// if Drain itself errors (e.g. already disconnected).
		if err := c.Conn.Drain(); err != nil {
			c.Conn.Close()
		}
	}
}
