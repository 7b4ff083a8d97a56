// Package kvcache implements Component K: a KV-backed distributed cache
// and an Object Store-backed blob layer, both over a shared JetStream
// context, each with lazy, single-entry-guarded bucket creation.
package kvcache

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Cache maps string keys to byte payloads inside one NATS KV bucket.
// Bucket creation is lazy and guarded by a single mutex — at most one
// goroutine ever creates the bucket, per the locking discipline's "KV
// init lock."
type Cache struct {
	js         nats.JetStreamContext
	bucketName string
	defaultTTL time.Duration

	mu     sync.Mutex
	bucket nats.KeyValue
}

// NewCache builds a Cache over js. bucketName defaults to "cache",
// defaultTTL to 1h.
func NewCache(js nats.JetStreamContext, bucketName string, defaultTTL time.Duration) *Cache {
	if bucketName == "" {
		bucketName = "cache"
	}
	if defaultTTL == 0 {
		defaultTTL = time.Hour
	}
	return &Cache{js: js, bucketName: bucketName, defaultTTL: defaultTTL}
}

func (c *Cache) resolve() (nats.KeyValue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bucket != nil {
		return c.bucket, nil
	}

	kv, err := c.js.KeyValue(c.bucketName)
	if err == nil {
		c.bucket = kv
		return kv, nil
	}

	kv, err = c.js.CreateKeyValue(&nats.KeyValueConfig{
		Bucket: c.bucketName,
		TTL:    c.defaultTTL,
	})
	if err != nil {
		return nil, err
	}
	c.bucket = kv
	return kv, nil
}

// Get returns the value for key, or (nil, nil) if the key is absent —
// a missing key is not an error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	kv, err := c.resolve()
	if err != nil {
		return nil, err
	}
	entry, err := kv.Get(key)
	if err != nil {
		if err == nats.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	return entry.Value(), nil
}

// Set writes value under key, creating the bucket on first use.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	kv, err := c.resolve()
	if err != nil {
		return err
	}
	_, err = kv.Put(key, value)
	return err
}

// Remove deletes key; removing an absent key is not an error.
func (c *Cache) Remove(ctx context.Context, key string) error {
	kv, err := c.resolve()
	if err != nil {
		return err
	}
	return kv.Delete(key)
}

// Refresh is a no-op per the spec — this cache has no sliding-expiration
// concept to bump.
func (c *Cache) Refresh(ctx context.Context, key string) error {
	return nil
}

// Save and Load adapt Cache to saga.StateStore, so the saga orchestrator
// can persist SagaState into the same KV bucket as any other cached value.
func (c *Cache) Save(ctx context.Context, key string, value []byte) error {
	return c.Set(ctx, key, value)
}

func (c *Cache) Load(ctx context.Context, key string) ([]byte, error) {
	return c.Get(ctx, key)
}
