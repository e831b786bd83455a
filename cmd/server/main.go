// Package main is the entry point for the affiliate program API server.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/tubira/affiliates-api/internal/config"
	"github.com/tubira/affiliates-api/internal/database"
	"github.com/tubira/affiliates-api/internal/handler"
	"github.com/tubira/affiliates-api/internal/middleware"
	"github.com/tubira/affiliates-api/internal/models"
	"github.com/tubira/affiliates-api/internal/repository"
	"github.com/tubira/affiliates-api/internal/service"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Starting affiliates API",
		slog.String("environment", cfg.Server.Environment),
		slog.Int("port", cfg.Server.Port),
	)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	if err := db.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	redis, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Repositories
	pool := db.Pool()
	affiliateRepo := repository.NewAffiliateRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	eventRepo := repository.NewWebhookEventRepository(pool)

	// Services
	emailSvc := service.NewEmailService(&cfg.Email)
	couponSvc := service.NewCouponService(couponRepo)
	checkoutSvc := service.NewCheckoutService(paymentRepo, couponSvc, cfg)
	webhookSvc := service.NewWebhookService(affiliateRepo, paymentRepo, activityRepo,
		adminRepo, eventRepo, emailSvc, &cfg.Stripe, logger)
	authSvc := service.NewAuthService(adminRepo, sessionRepo, emailSvc, cfg, logger)
	affiliateSvc := service.NewAffiliateService(affiliateRepo, paymentRepo, activityRepo)
	paymentSvc := service.NewPaymentService(paymentRepo)
	activitySvc := service.NewActivityService(activityRepo)
	adminSvc := service.NewAdminService(adminRepo, sessionRepo, &cfg.Auth)

	// Handlers
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc)
	couponHandler := handler.NewCouponHandler(couponSvc)
	webhookHandler := handler.NewWebhookHandler(webhookSvc, logger)
	emailHandler := handler.NewEmailHandler(emailSvc)
	planHandler := handler.NewPlanHandler()
	authHandler := handler.NewAuthHandler(authSvc)
	affiliateHandler := handler.NewAffiliateHandler(affiliateSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	adminHandler := handler.NewAdminHandler(adminSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)

	authMW := middleware.Auth(authSvc)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{cfg.Server.BaseURL, "http://localhost:*"}))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/health", healthHandler())
	r.Get("/ready", readyHandler(db, redis))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Public routes behind the rate limiter. The webhook route is
		// excluded: Stripe's retry behavior does not mix with 429s.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(redis, middleware.DefaultRateLimitConfig()))
			r.Post("/create-checkout-session", checkoutHandler.Create)
			r.Post("/validate-coupon", couponHandler.Validate)
			r.Post("/send-email", emailHandler.Send)
			r.Get("/plans", planHandler.List)
		})

		r.Post("/webhooks/stripe", webhookHandler.Handle)

		r.Route("/admin", func(r chi.Router) {
			r.Mount("/auth", authHandler.Routes(authMW))

			r.Group(func(r chi.Router) {
				r.Use(authMW)

				anyRole := middleware.RequireRole(
					models.RoleSuperAdmin, models.RoleFinancialAgent, models.RoleB2BAgent)
				financial := middleware.RequireRole(
					models.RoleSuperAdmin, models.RoleFinancialAgent)
				superOnly := middleware.RequireRole(models.RoleSuperAdmin)

				r.With(anyRole).Get("/dashboard", affiliateHandler.Dashboard)
				r.With(anyRole).Mount("/affiliates", affiliateHandler.Routes())
				r.With(anyRole).Mount("/activities", activityHandler.Routes())
				r.With(financial).Mount("/payments", paymentHandler.Routes())
				r.With(superOnly).Mount("/coupons", couponHandler.AdminRoutes())
				r.With(superOnly).Mount("/admins", adminHandler.Routes())
			})
		})
	})

	// Hourly sweep of expired sessions and reset tokens.
	sweeper := cron.New()
	_, err = sweeper.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if n, err := sessionRepo.DeleteExpired(ctx); err != nil {
			logger.Error("session sweep failed", "error", err)
		} else if n > 0 {
			logger.Info("swept expired sessions", "count", n)
		}
		if n, err := sessionRepo.DeleteExpiredResetTokens(ctx); err != nil {
			logger.Error("reset token sweep failed", "error", err)
		} else if n > 0 {
			logger.Info("swept expired reset tokens", "count", n)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule session sweeper: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server", slog.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	logger.Info("Server stopped gracefully")
}

// healthHandler reports process liveness.
func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// readyHandler verifies database and Redis connections.
func readyHandler(db *database.Postgres, redis *database.Redis) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","component":"database"}`))
			return
		}
		if err := redis.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","component":"redis"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
