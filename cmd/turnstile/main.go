package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/turnstile/pkg/api"
	"github.com/platinummonkey/turnstile/pkg/billing"
	"github.com/platinummonkey/turnstile/pkg/cache"
	"github.com/platinummonkey/turnstile/pkg/config"
	"github.com/platinummonkey/turnstile/pkg/observability"
	"github.com/platinummonkey/turnstile/pkg/storage/postgres"
	"github.com/platinummonkey/turnstile/pkg/tenants"
)

func main() {
	// Load configuration from environment
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting turnstile billing engine")

	// Connect to the database
	db, err := postgres.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to database")

	metrics := observability.NewMetrics(nil)

	// The billing info cache is optional; handlers read through to the
	// database when Redis is not configured.
	var infoCache *cache.BillingInfoCache
	if cfg.Redis.Enabled {
		infoCache, err = cache.NewBillingInfoCache(cfg.Redis, metrics)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, billing info cache disabled")
			infoCache = nil
		} else {
			defer infoCache.Close()
			logger.Info("Billing info cache enabled")
		}
	}

	tenantService := tenants.NewPostgresService(db)
	billingService := billing.NewPostgresService(db, billing.DefaultCatalog(), tenantService, logger, metrics)

	var gateway *billing.GatewayClient
	if cfg.Gateway.BaseURL != "" {
		gateway = billing.NewGatewayClient(cfg.Gateway.BaseURL, cfg.Gateway.SecretKey)
		logger.WithField("base_url", cfg.Gateway.BaseURL).Info("Payment gateway client enabled")
	}

	requestLog := logrus.New()
	requestLog.SetFormatter(&logrus.JSONFormatter{})

	server := api.NewServer(billingService, gateway, infoCache, metrics, requestLog)

	// Daily sweep that logs subscriptions close to expiry
	sweeper := billing.NewExpirySweeper(db, logger, metrics, cfg.Observability.ExpiryWindow)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start expiry sweeper: %v", err)
	}
	defer sweeper.Stop()

	// Health and metrics listen on a separate port so probes stay
	// responsive under API load
	health := observability.NewHealthChecker(db, cacheClient(infoCache))
	opsRouter := mux.NewRouter()
	opsRouter.HandleFunc("/health/live", health.Liveness).Methods(http.MethodGet)
	opsRouter.HandleFunc("/health/ready", health.Readiness).Methods(http.MethodGet)
	if cfg.Observability.MetricsEnabled {
		opsRouter.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	opsServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: opsRouter,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("port", cfg.Server.Port).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("port", cfg.Server.HealthPort).Info("Ops server listening")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("API server shutdown failed")
		}
		return opsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("Shutdown complete")
}

func cacheClient(c *cache.BillingInfoCache) *redis.Client {
	if c == nil {
		return nil
	}
	return c.Client()
}
