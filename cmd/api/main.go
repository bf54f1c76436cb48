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

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/boltshop/domain-gateway/internal/api"
	"github.com/boltshop/domain-gateway/internal/api/handlers"
	"github.com/boltshop/domain-gateway/internal/config"
	"github.com/boltshop/domain-gateway/internal/db"
	"github.com/boltshop/domain-gateway/internal/entitlement"
	"github.com/boltshop/domain-gateway/internal/metrics"
	"github.com/boltshop/domain-gateway/internal/registry"
	"github.com/boltshop/domain-gateway/internal/resolver"
	"github.com/boltshop/domain-gateway/internal/storage/redis"
	"github.com/boltshop/domain-gateway/internal/verify"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	runMigrations(cfg.Database.URL, logger)

	// Database
	conn, err := db.NewConnection(cfg.Database.URL, cfg.Database.MaxConnections, cfg.Database.MaxIdleConns)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer conn.Close()
	repo := db.NewRepository(conn)

	// Redis cache
	cacheClient := redis.NewClient(cfg.Redis.URL)
	defer cacheClient.Close()
	bindingCache := redis.NewBindingCache(cacheClient, cfg.Redis.CacheTTL)

	collector := metrics.NewCollector()

	// DNS ownership checker
	checker := verify.NewChecker(
		verify.NewResolver(cfg.Verify.ResolverAddr, cfg.Verify.Timeout),
		cfg.Verify.Timeout,
	)

	reg := registry.NewService(repo, bindingCache, checker, logger, registry.Options{
		ServingIP:     cfg.Platform.ServingIP,
		CanonicalHost: cfg.Platform.CanonicalHost,
		MaxAttempts:   cfg.Verify.MaxAttempts,
		DomainInfo:    verify.LookupDomainInfo,
		Metrics:       collector,
	})

	gate := entitlement.NewClient(cfg.Entitlement)

	var storefront *handlers.StorefrontProxy
	if cfg.Platform.StorefrontURL != "" {
		storefront, err = handlers.NewStorefrontProxy(cfg.Platform.StorefrontURL, logger)
		if err != nil {
			logger.Fatal("Invalid storefront URL", zap.Error(err))
		}
	}

	handler := handlers.NewHandler(reg, repo, logger)
	server := api.NewServer(cfg, handler, gate, storefront, logger)

	// The hostname resolver wraps the whole chain so custom-domain
	// rewrites happen before any route matching.
	hostResolver := resolver.New(resolver.Config{
		RootDomain:     cfg.Platform.RootDomain,
		CanonicalHost:  cfg.Platform.CanonicalHost,
		LocalHosts:     cfg.Platform.LocalHosts,
		RedirectURL:    "https://" + cfg.Platform.RootDomain,
		BypassPrefixes: cfg.Platform.BypassPrefixes,
	}, reg, logger, collector)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: hostResolver.Middleware(server.Router),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Domain gateway started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func runMigrations(databaseURL string, logger *zap.Logger) {
	m, err := migrate.New("file://migrations", databaseURL)
	if err != nil {
		logger.Fatal("Failed to init migrations", zap.Error(err))
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
}
