package main

// @title CreatorHub Referral API
// @version 1.0
// @description Affiliate referral attribution and commission ledger.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/shiminize/creatorhub/config"
	"github.com/shiminize/creatorhub/pkg/api/handlers"
	"github.com/shiminize/creatorhub/pkg/attribution"
	"github.com/shiminize/creatorhub/pkg/auth"
	"github.com/shiminize/creatorhub/pkg/cache"
	"github.com/shiminize/creatorhub/pkg/creators"
	"github.com/shiminize/creatorhub/pkg/export"
	"github.com/shiminize/creatorhub/pkg/jobs"
	"github.com/shiminize/creatorhub/pkg/ledger"
	"github.com/shiminize/creatorhub/pkg/links"
	"github.com/shiminize/creatorhub/pkg/logger"
	"github.com/shiminize/creatorhub/pkg/metrics"
	custommw "github.com/shiminize/creatorhub/pkg/middleware"
	"github.com/shiminize/creatorhub/pkg/payout"
	"github.com/shiminize/creatorhub/pkg/store"
	"github.com/shiminize/creatorhub/pkg/tracking"
)

func main() {
	// Load configuration
	cfg := config.Load()
	appLogger := logger.New(cfg.LogLevel)
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.APIEnvironment,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.APIEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Initialize database
	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL, store.DefaultPoolConfig())
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer st.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := st.Migrate(migrateCtx); err != nil {
		cancelMigrate()
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}
	cancelMigrate()
	log.Printf("✅ Database ready (%s)", cfg.DatabaseDriver)

	// Initialize Redis cache. The API degrades to uncached responses when
	// Redis is unreachable, so a failure here is not fatal.
	var redisClient *cache.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewClient(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, list caching disabled: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Printf("✅ Redis cache initialized")
		}
	}

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	// Initialize services
	linkService := links.NewService(st)
	trackingService := tracking.NewService(st, linkService, appLogger)
	resolver := attribution.NewResolver(st, time.Duration(cfg.AttributionWindowDays)*24*time.Hour)
	ledgerService := ledger.NewService(st, resolver, appLogger)

	var gateway payout.Gateway
	if cfg.StripeSecretKey != "" {
		gateway = payout.NewStripeGateway(cfg.StripeSecretKey, appLogger)
		log.Printf("✅ Stripe payout gateway initialized")
	} else {
		gateway = payout.NopGateway{}
		log.Printf("ℹ️  Stripe disabled (no secret key), payouts settled manually")
	}
	payoutService := payout.NewService(st, gateway, appLogger)

	creatorService := creators.NewService(st, linkService, appLogger,
		decimal.NewFromFloat(cfg.DefaultCommissionRate),
		decimal.NewFromFloat(cfg.DefaultMinimumPayout))
	exportService := export.NewService(st)

	// Initialize cron manager for counter reconciliation
	cronManager := jobs.NewCronManager(st, appLogger)
	if err := cronManager.SetupJobs(cfg.ReconcileSchedule); err != nil {
		log.Fatalf("❌ Failed to setup cron jobs: %v", err)
	}
	cronManager.Start()
	log.Printf("✅ Cron jobs started (reconcile: %q)", cfg.ReconcileSchedule)

	// Initialize handlers
	referralHandler := handlers.NewReferralHandler(
		trackingService,
		prometheusMetrics,
		cfg.StorefrontURL,
		time.Duration(cfg.SessionCookieTTLDays)*24*time.Hour,
		time.Duration(cfg.LinkCookieTTLHours)*time.Hour,
	)
	conversionHandler := handlers.NewConversionHandler(ledgerService, prometheusMetrics)
	creatorHandler := handlers.NewCreatorHandler(creatorService, exportService, redisClient, prometheusMetrics)
	payoutHandler := handlers.NewPayoutHandler(payoutService, prometheusMetrics)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			appLogger.Info("request",
				"method", c.Request().Method,
				"uri", v.URI,
				"status", v.Status,
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Sentry error tracking middleware (if configured)
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true, // Repanic after capturing to let the Recover middleware handle it
		}))
	}

	// Prometheus metrics middleware
	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())

	// Health check endpoint (public)
	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := st.DB().PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":   "unhealthy",
				"database": "down",
			})
		}

		cacheStatus := "disabled"
		if redisClient != nil {
			cacheStatus = "up"
			if _, err := redisClient.Redis.Ping(ctx).Result(); err != nil {
				cacheStatus = "down"
			}
		}

		return c.JSON(http.StatusOK, map[string]any{
			"status":   "healthy",
			"database": "up",
			"cache":    cacheStatus,
		})
	})

	// Prometheus metrics endpoint (public)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Public referral routes
	e.GET("/r/:code", referralHandler.Redirect)
	e.POST("/conversions", conversionHandler.Record)
	e.POST("/creators/apply", creatorHandler.Apply)

	// Admin routes (require JWT with admin role)
	authorizer := auth.NewJWTAuthorizer(cfg.JWTSecret)
	admin := e.Group("", custommw.RequireAdmin(authorizer))
	{
		admin.GET("/creators", creatorHandler.List)
		admin.PUT("/creators", creatorHandler.Bulk)
		admin.PUT("/creators/:id/status", creatorHandler.Transition)
		admin.GET("/creators/:id/stats", creatorHandler.Stats)
		admin.POST("/creators/:id/payout", payoutHandler.Create)
	}

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 CreatorHub API starting on %s", address)
	log.Printf("🕘 Attribution window: %d days", cfg.AttributionWindowDays)

	// Graceful shutdown
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	cronManager.Stop()
	log.Println("✅ Cron jobs stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}
