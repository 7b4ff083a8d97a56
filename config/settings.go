package config

import (
	"os"
	"strconv"
	"time"
)

// Settings is the typed configuration surface described in the external
// interfaces design §6: every recognized option, its effect, and its
// default. The teacher's services never introduce a generic config/DI
// library — each main.go reads os.Getenv directly (see vault.go and every
// apps/*/cmd/*/main.go) — so Settings follows the same shape: a plain
// struct populated by FromEnv, not a bound/reflected config object.
type Settings struct {
	DefaultConnection string

	Consumer   ConsumerSettings
	Resilience ResilienceSettings
	Outbox     OutboxSettings
	Cache      CacheSettings
	Blob       BlobSettings
}

// ConsumerSettings tunes the JetStream message handler (Component G).
type ConsumerSettings struct {
	MaxRedeliveries int
	NakDelay        time.Duration
	EnableDlq       bool
	DlqStreamSuffix string
}

// ResilienceSettings tunes the retry + circuit breaker pipeline wrapping
// JetStream publishes (Component H) and the outbox's own breaker
// (Component I).
type ResilienceSettings struct {
	MaxRetryAttempts  uint
	BaseDelay         time.Duration
	FailureRatio      float64
	SamplingDuration  time.Duration
	BreakDuration     time.Duration
	MinimumThroughput uint32
}

// OutboxSettings tunes the outbox processor's poll loop (Component I).
type OutboxSettings struct {
	BatchSize          int
	ProcessingInterval time.Duration
	MaxRetries         int
	RetentionPeriod    time.Duration
}

// CacheSettings tunes the KV-backed cache (Component K).
type CacheSettings struct {
	BucketName string
	DefaultTTL time.Duration
}

// BlobSettings tunes the object-store blob layer (Component K).
type BlobSettings struct {
	BucketName string
}

// Defaults returns Settings populated with every default named in §6.
func Defaults() Settings {
	return Settings{
		DefaultConnection: "default",
		Consumer: ConsumerSettings{
			MaxRedeliveries: 5,
			NakDelay:        5 * time.Second,
			EnableDlq:       true,
			DlqStreamSuffix: "-dlq",
		},
		Resilience: ResilienceSettings{
			MaxRetryAttempts:  3,
			BaseDelay:         time.Second,
			FailureRatio:      0.5,
			SamplingDuration:  30 * time.Second,
			BreakDuration:     30 * time.Second,
			MinimumThroughput: 10,
		},
		Outbox: OutboxSettings{
			BatchSize:          100,
			ProcessingInterval: 5 * time.Second,
			MaxRetries:         5,
			RetentionPeriod:    7 * 24 * time.Hour,
		},
		Cache: CacheSettings{
			BucketName: "cache",
			DefaultTTL: time.Hour,
		},
		Blob: BlobSettings{
			BucketName: "blobs",
		},
	}
}

// FromEnv applies environment-variable overrides on top of Defaults(), one
// variable per §6 option. A malformed override is ignored and the default
// is kept — configuration errors this package can't validate (e.g. an
// unknown connection name) surface later, at the connection registry,
// which treats them as fatal startup errors per §4.A.
func FromEnv() Settings {
	s := Defaults()

	if v := os.Getenv("MESSAGING_DEFAULT_CONNECTION"); v != "" {
		s.DefaultConnection = v
	}

	if v, ok := envInt("MESSAGING_CONSUMER_MAX_REDELIVERIES"); ok {
		s.Consumer.MaxRedeliveries = v
	}
	if v, ok := envDuration("MESSAGING_CONSUMER_NAK_DELAY"); ok {
		s.Consumer.NakDelay = v
	}
	if v, ok := envBool("MESSAGING_CONSUMER_ENABLE_DLQ"); ok {
		s.Consumer.EnableDlq = v
	}
	if v := os.Getenv("MESSAGING_CONSUMER_DLQ_SUFFIX"); v != "" {
		s.Consumer.DlqStreamSuffix = v
	}

	if v, ok := envUint("MESSAGING_RESILIENCE_MAX_RETRY_ATTEMPTS"); ok {
		s.Resilience.MaxRetryAttempts = v
	}
	if v, ok := envDuration("MESSAGING_RESILIENCE_BASE_DELAY"); ok {
		s.Resilience.BaseDelay = v
	}
	if v, ok := envFloat("MESSAGING_RESILIENCE_FAILURE_RATIO"); ok {
		s.Resilience.FailureRatio = v
	}
	if v, ok := envDuration("MESSAGING_RESILIENCE_SAMPLING_DURATION"); ok {
		s.Resilience.SamplingDuration = v
	}
	if v, ok := envDuration("MESSAGING_RESILIENCE_BREAK_DURATION"); ok {
		s.Resilience.BreakDuration = v
	}
	if v, ok := envUint32("MESSAGING_RESILIENCE_MINIMUM_THROUGHPUT"); ok {
		s.Resilience.MinimumThroughput = v
	}

	if v, ok := envInt("MESSAGING_OUTBOX_BATCH_SIZE"); ok {
		s.Outbox.BatchSize = v
	}
	if v, ok := envDuration("MESSAGING_OUTBOX_PROCESSING_INTERVAL"); ok {
		s.Outbox.ProcessingInterval = v
	}
	if v, ok := envInt("MESSAGING_OUTBOX_MAX_RETRIES"); ok {
		s.Outbox.MaxRetries = v
	}
	if v, ok := envDuration("MESSAGING_OUTBOX_RETENTION_PERIOD"); ok {
		s.Outbox.RetentionPeriod = v
	}

	if v := os.Getenv("MESSAGING_CACHE_BUCKET_NAME"); v != "" {
		s.Cache.BucketName = v
	}
	if v, ok := envDuration("MESSAGING_CACHE_DEFAULT_TTL"); ok {
		s.Cache.DefaultTTL = v
	}
	if v := os.Getenv("MESSAGING_BLOB_BUCKET_NAME"); v != "" {
		s.Blob.BucketName = v
	}

	return s
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envUint(key string) (uint, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}

func envUint32(key string) (uint32, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
