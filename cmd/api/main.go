package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentinel/application/commands"
	"sentinel/domain/core/entities"
	"sentinel/infrastructure/config"
	"sentinel/infrastructure/di"
	"sentinel/infrastructure/persistence/dynamodb"
	"sentinel/interfaces/http/rest"
	"sentinel/interfaces/http/rest/middleware"
	"sentinel/interfaces/websocket"
	"sentinel/pkg/auth"
	apperrors "sentinel/pkg/errors"
	"sentinel/pkg/observability"

	"go.uber.org/zap"
)

func main() {
	// Initialize context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer cleanup()
	logger := container.Logger

	if cfg.EnableTracing {
		tp, err := observability.InitTracing(ctx, observability.TracingConfig{
			ServiceName: cfg.ServiceName,
			Environment: cfg.Environment,
			Endpoint:    cfg.OTLPEndpoint,
		}, logger)
		if err != nil {
			logger.Warn("Tracing disabled", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = tp.Shutdown(shutdownCtx)
			}()
		}
	}

	// The scheduler loop runs every timer callback of the engine
	go container.Scheduler.Run(ctx)

	if container.CloudWatch != nil {
		go container.CloudWatch.Run(ctx, time.Minute)
	}

	// Load the profile and arm protection
	if cfg.ProfilePath != "" {
		profile, err := container.ProfileLoader.Load(cfg.ProfilePath)
		if err != nil {
			logger.Fatal("Failed to load profile", zap.String("path", cfg.ProfilePath), zap.Error(err))
		}

		if container.Leases != nil {
			holdLease(ctx, cancel, container.Leases, profile, cfg, logger)
		}

		if err := container.CommandBus.Send(ctx, commands.ActivateProtectionCommand{Profile: profile}); err != nil {
			logger.Warn("Protection not activated", zap.Error(err))
		}

		if cfg.WatchProfile {
			watcher, err := config.NewProfileWatcher(cfg.ProfilePath, container.ProfileLoader,
				func(p entities.UserProfile) error {
					return container.CommandBus.Send(ctx, commands.UpdateProfileCommand{Profile: p})
				}, logger)
			if err != nil {
				logger.Warn("Profile watching disabled", zap.Error(err))
			} else {
				defer watcher.Close()
			}
		}
	}

	// Stream snapshots and events to websocket clients
	hub := websocket.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	bridge := websocket.NewBridge(hub, container.Engine, container.Publisher, logger)
	go bridge.Run(ctx)

	wsConfig := websocket.DefaultServerConfig()
	wsConfig.CheckOrigin = checkOrigin(cfg)
	wsServer := websocket.NewServer(hub, container.Engine, wsConfig, logger)

	// Rate limiters shared by every authenticated route
	limits := middleware.Limits{
		IP:   auth.NewIPRateLimiter(100),
		User: auth.NewUserRateLimiter(200),
	}
	for _, l := range []auth.RateLimiter{limits.IP, limits.User} {
		if keyed, ok := l.(*auth.KeyedLimiter); ok {
			go keyed.RunCleanup(ctx, 5*time.Minute)
		}
	}

	debug := !cfg.IsProduction()
	routerConfig := rest.RouterConfig{
		Authenticate:   middleware.Authenticate(container.JWTValidator, limits, apperrors.NewErrorHandler(logger, debug), logger),
		AllowedOrigins: cfg.AllowedOrigins,
		EnableCORS:     cfg.EnableCORS,
		Stream:         wsServer.HandleWebSocket,
		Debug:          debug,
	}
	if cfg.EnableMetrics {
		routerConfig.Metrics = container.Collector
	}

	// Create router
	router := rest.NewRouter(container.CommandBus, container.QueryBus, routerConfig, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal or a lost lease
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	// Graceful shutdown
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	cancel()
	container.Scheduler.Wait()

	// Clean up resources
	if err := logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}

// holdLease makes this process the only engine for the profile owner. The
// process shuts down if the lease is lost.
func holdLease(ctx context.Context, cancel context.CancelFunc, leases *dynamodb.LeaseManager, profile entities.UserProfile, cfg *config.Config, logger *zap.Logger) {
	holder, err := os.Hostname()
	if err != nil || holder == "" {
		holder = cfg.ServiceName
	}

	lease, err := leases.Acquire(ctx, profile.Owner(), holder, cfg.LeaseTTL)
	if errors.Is(err, dynamodb.ErrLeaseHeld) {
		logger.Fatal("Another instance is protecting this user", zap.String("owner", profile.Owner()))
	}
	if err != nil {
		logger.Fatal("Failed to acquire engine lease", zap.Error(err))
	}

	go lease.KeepAlive(ctx, func(err error) {
		logger.Error("Engine lease lost", zap.Error(err))
		cancel()
	})
}

func checkOrigin(cfg *config.Config) func(r *http.Request) bool {
	if !cfg.IsProduction() {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
