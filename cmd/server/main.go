// envmon - real-time messaging and air-quality alerting server
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/youssefsn2/PFE/internal/alert"
	"github.com/youssefsn2/PFE/internal/api"
	"github.com/youssefsn2/PFE/internal/chat"
	"github.com/youssefsn2/PFE/internal/config"
	"github.com/youssefsn2/PFE/internal/identity"
	"github.com/youssefsn2/PFE/internal/ingest"
	"github.com/youssefsn2/PFE/internal/middleware"
	"github.com/youssefsn2/PFE/internal/probe"
	"github.com/youssefsn2/PFE/internal/realtime"
	"github.com/youssefsn2/PFE/internal/search"
	"github.com/youssefsn2/PFE/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "query the gRPC health service of a running server and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *healthcheck {
		if err := runHealthcheck(context.Background(), cfg.GRPCPort); err != nil {
			slog.Error("Healthcheck failed", "error", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	registry := realtime.NewRegistry(cfg.WebSocket.SendQueue, logger)

	// Search: Meilisearch when configured, store otherwise.
	var meili *search.Meili
	if cfg.Search.MeiliURL != "" {
		meili = search.NewMeili(cfg.Search.MeiliURL, cfg.Search.MeiliAPIKey, logger)
		defer meili.Close()
	}
	searchSvc := search.NewService(meili, repo, logger)
	go searchSvc.ReindexAll(ctx)

	chatSvc := chat.NewService(repo, registry, searchSvc, logger)

	cooldown := newCooldown(cfg, logger)
	if closer, ok := cooldown.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}
	alertSvc := alert.NewService(
		alert.NewEngine(repo),
		alert.NewNotifier(repo, registry),
		cooldown,
		repo,
		logger,
	)

	// Sensor ingestion (optional).
	var latest api.LatestReading
	if cfg.MQTT.Enabled() {
		watchdog := ingest.NewWatchdog(cfg.MQTT.Topic, cfg.MQTT.StaleAfter, alertSvc, logger)
		pipeline := ingest.NewPipeline(alertSvc, watchdog, logger)
		latest = pipeline

		sub := ingest.NewSubscriber(ingest.SubscriberConfig{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
		}, pipeline, logger)
		// A failed first connect keeps retrying in the background, so Stop is always deferred.
		err := sub.Start(ctx)
		defer sub.Stop()
		if err != nil {
			slog.Error("Sensor bus unreachable", "error", err, "broker", cfg.MQTT.Broker)
			if _, alertErr := alertSvc.SystemFailure(ctx, "sensor bus unreachable"); alertErr != nil {
				slog.Error("Failed to raise system alert", "error", alertErr)
			}
		}
		watchdog.Start(ctx)
	} else {
		slog.Info("Sensor ingestion disabled (MQTT_BROKER not set)")
	}

	// Identity.
	issuer := identity.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	resolver := identity.NewResolver(cfg.Auth.JWTSecret, repo)

	// Initialize handlers.
	base := api.NewHandler(logger)
	routes := api.Routes{
		Health:   api.NewHealthHandler(base, repo, registry),
		Users:    api.NewUserHandler(base, chatSvc, repo, issuer, cfg.AdminToken),
		Messages: api.NewMessageHandler(base, chatSvc),
		Groups:   api.NewGroupHandler(base, chatSvc),
		Alerts:   api.NewAlertHandler(base, repo, alertSvc, latest),
	}
	wsHandler := realtime.NewWebSocketHandler(realtime.NewAuthenticator(resolver), registry, chatSvc, realtime.HandlerOptions{
		OriginPatterns: originPatterns(cfg.AllowedOrigins()),
		ReadLimit:      cfg.WebSocket.ReadLimit,
	})

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	routes.Register(r, identity.Middleware(resolver))

	// WebSocket endpoint. Authentication happens inside the handshake.
	r.Get("/ws", wsHandler.ServeHTTP)

	// gRPC health (optional).
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			slog.Error("Failed to listen for gRPC", "error", err, "port", cfg.GRPCPort)
			os.Exit(1)
		}
		probeSrv := probe.NewServer(repo, logger)
		probeSrv.Watch(ctx, 15*time.Second)
		go func() {
			if err := probeSrv.Serve(lis); err != nil {
				slog.Error("gRPC health server failed", "error", err)
			}
		}()
		defer probeSrv.Stop()
	}

	// WebSocket connections are long-lived, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// newCooldown picks the alert cooldown from configuration. Redis failures fall back to memory.
func newCooldown(cfg *config.Config, logger *slog.Logger) alert.Cooldown {
	if cfg.Alert.Cooldown <= 0 {
		return alert.NoCooldown{}
	}
	if cfg.Alert.RedisURL != "" {
		rc, err := alert.NewRedisCooldown(cfg.Alert.RedisURL, cfg.Alert.Cooldown)
		if err == nil {
			logger.Info("Alert cooldown enabled", "backend", "redis", "window", cfg.Alert.Cooldown)
			return rc
		}
		logger.Warn("Redis unavailable, using in-memory alert cooldown", "error", err)
	}
	logger.Info("Alert cooldown enabled", "backend", "memory", "window", cfg.Alert.Cooldown)
	return alert.NewMemoryCooldown(cfg.Alert.Cooldown)
}

// originPatterns converts allowed origins to websocket host patterns.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}

// runHealthcheck asks the local gRPC health service whether the server is serving.
// Used as a container healthcheck: envmon -healthcheck.
func runHealthcheck(ctx context.Context, grpcPort string) error {
	if grpcPort == "" {
		return errors.New("GRPC_PORT is not set")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := probe.CheckAddr(ctx, net.JoinHostPort("127.0.0.1", grpcPort), probe.ServiceName); err != nil {
		return fmt.Errorf("probe %s: %w", grpcPort, err)
	}
	return nil
}
