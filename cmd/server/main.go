package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"aicheckr.app/mentions/common/id"
	"aicheckr.app/mentions/common/logger"
	"aicheckr.app/mentions/common/otel"
	"aicheckr.app/mentions/core/config"
	"aicheckr.app/mentions/internal/dispatch"
	"aicheckr.app/mentions/internal/graph"
	"aicheckr.app/mentions/internal/http/handler/webhook"
	"aicheckr.app/mentions/internal/http/middleware"
	httprouter "aicheckr.app/mentions/internal/http/router"
	"aicheckr.app/mentions/internal/queue"
	"aicheckr.app/mentions/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "mentions server starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected", "queue", cfg.Queue.Key)

	producer := queue.NewRedisProducer(redisClient, cfg.Queue.Key, cfg.Queue.PushTimeout, nil)
	defer producer.Close()

	deduper := queue.NewRedisDeduper(redisClient, cfg.Queue.Key, cfg.Queue.DedupeTTL)
	ingest := service.NewMentionIngestService(producer, deduper, cfg.Meta.Username, time.Now, nil)

	var reply service.ReplyService
	if cfg.Meta.AutoReply {
		if !cfg.Meta.HasCredential() {
			slog.WarnContext(ctx, "auto-reply enabled without IG_ACCESS_TOKEN; replies will be skipped")
		}
		client := graph.NewClient(cfg.Meta.GraphBaseURL, cfg.Meta.AccessToken, 5*time.Second)
		reply = service.NewReplyService(client, cfg.Meta.Username, nil)
	}

	dispatcher := dispatch.NewBackground(30 * time.Second)
	handler := webhook.NewMetaWebhookHandler(cfg.Meta.VerifyToken, ingest, reply, dispatcher)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, handler)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	// Detached delivery tasks must settle before the process exits.
	drained := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		slog.WarnContext(shutdownCtx, "shutdown timeout exceeded with tasks in flight")
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, handler *webhook.MetaWebhookHandler) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, handler)

	return router
}
