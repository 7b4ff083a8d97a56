// Command gateway is the composition root for the messaging core: it
// loads configuration, wires the connection registry, the four
// subscription hosts, the outbox processor, and the eventual-consistency
// HTTP hook, and brings everything up until SIGINT/SIGTERM.
//
// A real composing service (in the spirit of apps/abc-service or
// apps/cdc-worker in the wider monorepo this core was extracted from)
// would register its own domain handlers against the catalog built here
// instead of the illustrative "system" controller below — domain
// entities, DTOs, and persistence are explicitly out of core scope.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/arc-self/messaging-core/config"
	"github.com/arc-self/messaging-core/endpoint"
	"github.com/arc-self/messaging-core/eventualconsistency"
	"github.com/arc-self/messaging-core/hosts"
	"github.com/arc-self/messaging-core/invoker"
	"github.com/arc-self/messaging-core/jsconsumer"
	"github.com/arc-self/messaging-core/kvcache"
	"github.com/arc-self/messaging-core/natsclient"
	"github.com/arc-self/messaging-core/outbox"
	"github.com/arc-self/messaging-core/publish"
	"github.com/arc-self/messaging-core/saga"
	"github.com/arc-self/messaging-core/subject"
	"github.com/arc-self/messaging-core/telemetry"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	settings := config.FromEnv()

	// --- Vault secret loading, same shape as every apps/*/cmd/*/main.go ---
	vaultAddr := envOrDefault("VAULT_ADDR", "http://localhost:8200")
	vaultToken := envOrDefault("VAULT_TOKEN", "root")
	secretPath := envOrDefault("VAULT_SECRET_PATH", "secret/data/arc/messaging-gateway")

	var natsURL, pgURL string
	if vaultManager, err := config.NewSecretManager(vaultAddr, vaultToken); err != nil {
		logger.Warn("Vault client unavailable, falling back to env vars", zap.Error(err))
	} else if secrets, err := vaultManager.GetKV2(secretPath); err != nil {
		logger.Warn("Vault secret load failed, falling back to env vars", zap.Error(err))
	} else {
		natsURL, _ = secrets["NATS_URL"].(string)
		pgURL, _ = secrets["PG_URL"].(string)
	}
	if natsURL == "" {
		natsURL = envOrDefault("NATS_URL", natsDefaultURL)
	}
	if pgURL == "" {
		pgURL = os.Getenv("PG_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- OpenTelemetry ---
	if endpointURL := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpointURL != "" {
		if tp, err := telemetry.InitTracer(ctx, "messaging-gateway", endpointURL); err != nil {
			logger.Error("failed to init OTel tracer", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
		if mp, err := telemetry.InitMeterProvider(ctx, "messaging-gateway", endpointURL); err != nil {
			logger.Error("failed to init OTel meter provider", zap.Error(err))
		} else {
			defer mp.Shutdown(context.Background())
		}
	}

	// --- Connection Registry (Component A) ---
	registry := natsclient.NewRegistry(settings.DefaultConnection, map[string]natsclient.ConnectionConfig{
		settings.DefaultConnection: {URL: natsURL},
	}, logger)
	defer registry.Close()

	client, err := registry.Resolve(settings.DefaultConnection)
	if err != nil {
		logger.Fatal("failed to resolve default NATS connection", zap.Error(err))
	}

	// --- Resilient Publish Client (Component H) ---
	publisher := publish.NewClient(settings.DefaultConnection, client, registry.CodecFor(settings.DefaultConnection), publish.ResilienceConfig{
		MaxAttempts:    settings.Resilience.MaxRetryAttempts,
		BaseInterval:   settings.Resilience.BaseDelay,
		FailureRatio:   settings.Resilience.FailureRatio,
		SamplingWindow: settings.Resilience.SamplingDuration,
		BreakDuration:  settings.Resilience.BreakDuration,
		MinThroughput:  settings.Resilience.MinimumThroughput,
	}, logger)

	// --- KV Cache + Object Store (Component K) ---
	// Built on the same registry/JetStream context this gateway already set
	// up instead of opening a second connection. Only the cache is used
	// below (by the system controller); blobs and sagas are built and
	// logged as ready but not handed to anything else.
	cache := kvcache.NewCache(client.JS, settings.Cache.BucketName, settings.Cache.DefaultTTL)
	blobs := kvcache.NewBlobStore(client.JS, settings.Blob.BucketName)
	sagas := saga.NewOrchestrator[map[string]any](cache, logger)

	// --- DLQ Router + Catalog (Components G, D) ---
	dlq := jsconsumer.NewDlqRouter(client.JS, logger, settings.Consumer.DlqStreamSuffix)

	catalog := endpoint.NewCatalog(settings.DefaultConnection, subject.ControllerName)
	registerSystemController(catalog, cache, logger)
	logger.Info("cache, blob store, and saga orchestrator ready for composing services",
		zap.String("cacheBucket", settings.Cache.BucketName),
		zap.String("blobBucket", settings.Blob.BucketName),
		zap.Bool("sagaOrchestratorReady", sagas != nil),
		zap.Bool("blobStoreReady", blobs != nil),
	)

	supervisor, err := hosts.NewSupervisor(client, logger)
	if err != nil {
		logger.Fatal("failed to build subscription host supervisor", zap.Error(err))
	}

	resolve := func(d endpoint.Descriptor) string {
		return subject.Resolve(d.SubjectPattern, d.ControllerName, d.MethodName, d.Version)
	}
	dispatchFor := func(d endpoint.Descriptor) invoker.Dispatch {
		return invoker.NewDispatch(d, registry.CodecFor(d.ConnectionName), invoker.AuditLogging(logger), invoker.Recover(logger))
	}
	handlerFor := func(dispatch invoker.Dispatch) *jsconsumer.Handler {
		return jsconsumer.NewHandler(dispatch, dlq, jsconsumer.Options{
			MaxRedeliveries: settings.Consumer.MaxRedeliveries,
			NakDelay:        settings.Consumer.NakDelay,
			EnableDlq:       settings.Consumer.EnableDlq,
			DlqSuffix:       settings.Consumer.DlqStreamSuffix,
		}, logger)
	}

	for _, d := range catalog.ByMode(endpoint.ModeJSConsume) {
		if err := jsconsumer.SetupConsumer(client, d.StreamName, d.ConsumerName, resolve(d), 30*time.Second, dlq); err != nil {
			logger.Fatal("failed to provision JetStream consumer", zap.String("stream", d.StreamName), zap.Error(err))
		}
	}
	for _, d := range catalog.ByMode(endpoint.ModeJSFetch) {
		if err := jsconsumer.SetupConsumer(client, d.StreamName, d.ConsumerName, resolve(d), 30*time.Second, dlq); err != nil {
			logger.Fatal("failed to provision JetStream consumer", zap.String("stream", d.StreamName), zap.Error(err))
		}
	}

	if err := supervisor.Start(ctx, catalog, resolve, dispatchFor, handlerFor); err != nil {
		logger.Fatal("failed to start subscription hosts", zap.Error(err))
	}
	defer supervisor.Stop()

	// --- Outbox Processor (Component I) ---
	var e *echo.Echo
	if pgURL != "" {
		pool, err := pgxpool.New(ctx, pgURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		processor := outbox.NewProcessor(outbox.NewPgStore(pool), publisher, outbox.Config{
			Interval:        settings.Outbox.ProcessingInterval,
			BatchSize:       settings.Outbox.BatchSize,
			MaxRetries:      settings.Outbox.MaxRetries,
			RetentionPeriod: settings.Outbox.RetentionPeriod,
		}, logger)
		go processor.Run(ctx)

		// --- Eventual-Consistency Hook (Component L) ---
		hook := eventualconsistency.New(pool, publisher, logger)
		e = echo.New()
		e.HideBanner = true
		e.Use(echomw.Recover())
		e.Use(hook.Middleware())

		go func() {
			logger.Info("messaging-gateway HTTP listening on :8080")
			if err := e.Start(":8080"); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server failure", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("PG_URL not set, outbox processor and eventual-consistency hook are disabled")
	}

	logger.Info("messaging-gateway started")
	<-ctx.Done()
	logger.Info("shutting down")

	if e != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("echo shutdown error", zap.Error(err))
		}
	}
}

const natsDefaultURL = "nats://localhost:4222"

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// registerSystemController wires a tiny illustrative endpoint set so the
// catalog and every host has at least one real descriptor to bind — the
// health-check pattern every apps/*/cmd/*/main.go exposes, expressed
// through the catalog instead of a raw echo route. Composing services
// register their own domain controllers the same way, via
// catalog.Register.
func registerSystemController(catalog *endpoint.Catalog, cache *kvcache.Cache, logger *zap.Logger) {
	_, err := catalog.Register(endpoint.Options{
		Controller:     "SystemEventController",
		Method:         "GetHealth",
		SubjectPattern: "[controller].v{version}.health",
		HasResponse:    true,
		ArgKinds:       []endpoint.ArgKind{endpoint.Cancellation()},
		Handler: func(ctx context.Context, request any, binding map[string]string) (any, error) {
			now := time.Now().UTC().Format(time.RFC3339)
			if err := cache.Set(ctx, "system:last-health-check", []byte(now)); err != nil {
				logger.Warn("failed to record health check timestamp", zap.Error(err))
			}
			return map[string]string{"status": "ok", "checkedAt": now}, nil
		},
	})
	if err != nil {
		logger.Fatal("failed to register system controller", zap.Error(err))
	}
}
