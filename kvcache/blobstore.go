package kvcache

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/arc-self/messaging-core/result"
)

// BlobStore exposes Put/Get/Delete/Exists over a NATS Object Store bucket,
// lazily created and guarded by its own single-entry lock (distinct from
// Cache's KV lock, per the locking discipline: "only two explicit mutexes
// exist — the KV init lock and the object-store init lock").
type BlobStore struct {
	js         nats.JetStreamContext
	bucketName string

	mu     sync.Mutex
	bucket nats.ObjectStore
}

// NewBlobStore builds a BlobStore over js. bucketName defaults to "blobs".
func NewBlobStore(js nats.JetStreamContext, bucketName string) *BlobStore {
	if bucketName == "" {
		bucketName = "blobs"
	}
	return &BlobStore{js: js, bucketName: bucketName}
}

func (b *BlobStore) resolve() (nats.ObjectStore, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bucket != nil {
		return b.bucket, nil
	}

	store, err := b.js.ObjectStore(b.bucketName)
	if err == nil {
		b.bucket = store
		return store, nil
	}

	store, err = b.js.CreateObjectStore(&nats.ObjectStoreConfig{Bucket: b.bucketName})
	if err != nil {
		return nil, err
	}
	b.bucket = store
	return store, nil
}

// Put stores value under key. []byte values are written as-is; any other
// value is JSON-serialized first.
func (b *BlobStore) Put(ctx context.Context, key string, value any) error {
	store, err := b.resolve()
	if err != nil {
		return err
	}

	data, ok := value.([]byte)
	if !ok {
		data, err = json.Marshal(value)
		if err != nil {
			return err
		}
	}

	_, err = store.PutBytes(key, data)
	return err
}

// Get retrieves key's raw bytes. A missing blob yields a *result.Error
// with Kind NotFound; other failures propagate unchanged.
func (b *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	store, err := b.resolve()
	if err != nil {
		return nil, err
	}

	data, err := store.GetBytes(key)
	if err != nil {
		if err == nats.ErrObjectNotFound {
			return nil, result.NotFound("Blob.NotFound", "blob "+key+" not found")
		}
		return nil, err
	}
	return data, nil
}

// GetAs retrieves key and JSON-decodes it into T.
func GetAs[T any](ctx context.Context, b *BlobStore, key string) (T, error) {
	var v T
	data, err := b.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

// Delete removes key.
func (b *BlobStore) Delete(ctx context.Context, key string) error {
	store, err := b.resolve()
	if err != nil {
		return err
	}
	return store.Delete(key)
}

// Exists reports whether key is present.
func (b *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	store, err := b.resolve()
	if err != nil {
		return false, err
	}
	_, err = store.GetInfo(key)
	if err != nil {
		if err == nats.ErrObjectNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
