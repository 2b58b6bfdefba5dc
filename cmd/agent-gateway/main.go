// cmd/agent-gateway/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"shopping-agent-gateway/internal/api"
	"shopping-agent-gateway/internal/common/config"
	"shopping-agent-gateway/internal/common/database"
	"shopping-agent-gateway/internal/common/llm"
	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/internal/common/observability"
	intentrouter "shopping-agent-gateway/internal/gateway/intent-router"
	"shopping-agent-gateway/internal/gateway/orchestrator"
	policygate "shopping-agent-gateway/internal/gateway/policy-gate"
	queryexecutor "shopping-agent-gateway/internal/gateway/query-executor"
	querygate "shopping-agent-gateway/internal/gateway/query-gate"
	schemacheck "shopping-agent-gateway/internal/gateway/schema-check"
	tooldispatch "shopping-agent-gateway/internal/gateway/tool-dispatch"
	toolgateway "shopping-agent-gateway/internal/gateway/tool-gateway"
	typeregistry "shopping-agent-gateway/internal/gateway/type-registry"
	"shopping-agent-gateway/internal/history"
	"shopping-agent-gateway/pkg/registry"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting agent gateway...", zap.String("environment", cfg.App.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.App.Name, observability.AsGlobal())
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	spec, err := registry.Open(cfg.Agent.SpecPath, "../../"+cfg.Agent.SpecPath)
	if err != nil {
		zapLog.Fatal("agent spec load failed", zap.Error(err))
	}
	zapLog.Info("Agent spec loaded", zap.String("version", spec.Version), zap.String("source", spec.Source))

	types := typeregistry.New()
	router := intentrouter.NewRouter(&intentrouter.Config{
		ConfidenceThreshold: orDefault(cfg.Agent.ConfidenceThreshold, intentrouter.LoadConfig().ConfidenceThreshold),
	}, intentrouter.NewConsumerClassifier(), intentrouter.NewSellerClassifier(), log)

	// The declared contract and the executable one must agree before any
	// request is served.
	if err := schemacheck.New(spec, types, router, log).Verify(); err != nil {
		zapLog.Fatal("agent spec does not match the gateway", zap.Error(err))
	}

	readiness := map[string]api.Pinger{}

	// --- Document store ---
	var store queryexecutor.Store
	switch cfg.Database.Driver {
	case "memory":
		store = database.NewMemoryStore()
		zapLog.Warn("Using the in-memory document store")
	default:
		var mongoStore *database.MongoStore
		err = retryWithBackoff(func() error {
			var err error
			mongoStore, err = database.NewMongo(ctx, cfg.Database.Mongo)
			return err
		}, 10, 2*time.Second, zapLog, "MongoDB connection")
		if err != nil {
			zapLog.Fatal("mongo failed after retries", zap.Error(err))
		}
		defer mongoStore.Close(context.Background())
		zapLog.Info("MongoDB connected successfully")
		store = mongoStore
		readiness["store"] = mongoStore
	}

	// --- Conversation history ---
	var turns orchestrator.History
	if cfg.History.Enabled {
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")
		turns = history.NewRedisStore(redisClient, cfg.History, log)
		readiness["history"] = redisClient
	}

	generator, err := llm.NewGemini(ctx, cfg.GenAI, log)
	if err != nil {
		zapLog.Fatal("response generator init failed", zap.Error(err))
	}

	tools := toolgateway.NewGateway(&toolgateway.Config{
		BulkWarnThreshold: orDefault(cfg.Agent.BulkWarnThreshold, toolgateway.LoadConfig().BulkWarnThreshold),
	}, types, log)

	agent, err := orchestrator.New(orchestrator.Options{
		Spec: spec,
		Policy: policygate.NewGate(&policygate.Config{
			BulkQuantityLimit: orDefault(cfg.Agent.BulkQuantityLimit, policygate.LoadConfig().BulkQuantityLimit),
		}, log),
		Router:   router,
		Registry: types,
		Tools:    tools,
		Queries: querygate.NewGate(&querygate.Config{
			DefaultLimit: orDefault(cfg.Agent.DefaultQueryLimit, querygate.LoadConfig().DefaultLimit),
			MaxLimit:     orDefault(cfg.Agent.MaxQueryLimit, querygate.LoadConfig().MaxLimit),
		}, log),
		Executor: queryexecutor.NewExecutor(&queryexecutor.Config{
			Timeout: durationOr(cfg.Database.Mongo.QueryTimeout, queryexecutor.LoadConfig().Timeout),
		}, store, log),
		Generator:     generator,
		Synthesizer:   generator,
		History:       turns,
		Observability: obs,
		Logger:        log,
	})
	if err != nil {
		zapLog.Fatal("orchestrator init failed", zap.Error(err))
	}

	var dispatcher api.Dispatcher
	collaborators := tooldispatch.NewHTTPCollaborators(cfg.Collaborators, log)
	if len(collaborators) > 0 {
		d := tooldispatch.NewDispatcher(&tooldispatch.Config{
			Timeout: durationOr(cfg.Collaborators.Timeout, tooldispatch.LoadConfig().Timeout),
		}, tools, collaborators, log)
		zapLog.Info("Tool dispatch enabled", zap.Strings("services", d.Services()))
		dispatcher = d
	}

	handler := api.NewHandler(api.Options{
		Agent:      agent,
		Dispatcher: dispatcher,
		Spec:       spec,
		Readiness:  readiness,
		Metrics:    promhttp.Handler(),
		Logger:     log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutting down agent gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), durationOr(cfg.Server.ShutdownTimeout, 10*time.Second))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Agent gateway stopped")
}

func orDefault[T int | float64](v, fallback T) T {
	if v > 0 {
		return v
	}
	return fallback
}

func durationOr(ms int, fallback time.Duration) time.Duration {
	if ms > 0 {
		return config.GetDuration(ms)
	}
	return fallback
}
