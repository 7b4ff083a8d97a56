package natsclient

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ConnectionConfig describes one named connection entry in the
// configuration surface: `connections[name]: url/auth for that
// connection`.
type ConnectionConfig struct {
	URL   string
	Auth  Auth
	Codec Codec // nil defaults to JSONCodec
}

// Registry resolves a connection name to a shared *Client, creating and
// caching it lazily on first use. It is the implementation of Component A,
// the Connection Registry: named NATS connections + JetStream contexts,
// lazily constructed, shared.
//
// The registry does not retry connection establishment itself — nats.go's
// own reconnection logic (enabled via RetryOnFailedConnect/MaxReconnects in
// NewClient) is relied upon, exactly as the source framework assumes.
type Registry struct {
	defaultName string
	configs     map[string]ConnectionConfig
	logger      *zap.Logger

	mu      sync.Mutex
	clients map[string]*Client
}

// NewRegistry builds a Registry from the named connection configs and the
// name to resolve when a caller doesn't specify one.
func NewRegistry(defaultName string, configs map[string]ConnectionConfig, logger *zap.Logger) *Registry {
	return &Registry{
		defaultName: defaultName,
		configs:     configs,
		logger:      logger,
		clients:     make(map[string]*Client),
	}
}

// Resolve returns the shared Client for name, defaulting to the configured
// default connection when name is empty. An unknown name is a programmer
// error — the registry does not guess, it panics at call time so the
// misconfiguration surfaces at startup rather than as a silent nil
// dereference deep in a handler.
func (r *Registry) Resolve(name string) (*Client, error) {
	if name == "" {
		name = r.defaultName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[name]; ok {
		return c, nil
	}

	cfg, ok := r.configs[name]
	if !ok {
		panic(fmt.Sprintf("natsclient: unknown connection %q — this is a configuration error, not a runtime one", name))
	}

	c, err := NewClient(cfg.URL, cfg.Auth, r.logger.With(zap.String("connection", name)))
	if err != nil {
		return nil, fmt.Errorf("resolve connection %q: %w", name, err)
	}
	r.clients[name] = c
	return c, nil
}

// CodecFor returns the configured Codec for name, defaulting to JSONCodec.
func (r *Registry) CodecFor(name string) Codec {
	if name == "" {
		name = r.defaultName
	}
	if cfg, ok := r.configs[name]; ok && cfg.Codec != nil {
		return cfg.Codec
	}
	return JSONCodec{}
}

// Close disposes every cached connection.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, c := range r.clients {
		c.Close()
		delete(r.clients, name)
	}
}
