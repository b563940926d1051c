package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/stripe/stripe-go/v76"

	"github.com/voyago/travel-bookings/internal/checkout"
	"github.com/voyago/travel-bookings/internal/http/handlers"
	httpmw "github.com/voyago/travel-bookings/internal/http/middleware"
	"github.com/voyago/travel-bookings/internal/platform/mailer"
	platformredis "github.com/voyago/travel-bookings/internal/platform/redis"
	"github.com/voyago/travel-bookings/internal/providers"
	"github.com/voyago/travel-bookings/internal/reconcile"
	"github.com/voyago/travel-bookings/internal/repo/postgres"
	"github.com/voyago/travel-bookings/internal/search"
	"github.com/voyago/travel-bookings/internal/token"
	"github.com/voyago/travel-bookings/internal/vault"
	"github.com/voyago/travel-bookings/pkg/config"
	"github.com/voyago/travel-bookings/pkg/database"
	"github.com/voyago/travel-bookings/pkg/events"
	"github.com/voyago/travel-bookings/pkg/logger"
	mw "github.com/voyago/travel-bookings/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	stripe.Key = cfg.Stripe.SecretKey

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisStore, err := platformredis.New(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Repositories
	providerRepo := postgres.NewProviderRepository(pool)
	bookingRepo := postgres.NewBookingRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	// Core services
	credVault, err := vault.New(cfg.Vault.Key, providerRepo)
	if err != nil {
		logger.Error("Failed to initialize credential vault", "error", err)
		os.Exit(1)
	}

	providerClient := providers.NewClient(cfg.Providers.SearchTimeout)
	tokenCache := token.NewCache(credVault, providerClient, cfg.Providers.TokenSafetyMargin)
	aggregator := search.NewAggregator(providerRepo, tokenCache, providerClient)
	checkoutSvc := checkout.NewService(cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)

	var receiptMailer mailer.Service
	if cfg.Email.DevMode || cfg.Email.MailerSendKey == "" {
		receiptMailer = mailer.NewDevMailer()
	} else {
		receiptMailer = mailer.NewMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.From)
	}

	reconciler := reconcile.New(cfg.Stripe.WebhookSecret, bookingRepo, userRepo, redisStore, eventBus, receiptMailer)

	// Handlers
	searchHandler := handlers.NewSearchHandler(aggregator, cfg.Providers.SearchTimeout)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutSvc)
	webhookHandler := handlers.NewWebhookHandler(reconciler)
	bookingsHandler := handlers.NewBookingsHandler(bookingRepo)
	providersHandler := handlers.NewProvidersHandler(credVault, providerRepo)

	// Router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("travel-bookings"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	searchLimiter := httpmw.NewRateLimiter(pool, httpmw.RateLimitConfig{
		Requests: 30,
		Window:   time.Minute,
		KeyFunc:  httpmw.SearchRateLimitKeyFunc,
	})

	r.Route("/v1", func(r chi.Router) {
		r.With(searchLimiter.Middleware()).Mount("/search", searchHandler.Routes())

		// Webhooks authenticate by signature, never by JWT.
		r.Mount("/webhooks", webhookHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(handlers.RequireJWT(cfg.Auth.JWTSecret, ""))
			r.With(mw.IdempotencyMiddleware(redisStore)).Mount("/checkout", checkoutHandler.Routes())
			r.Mount("/bookings", bookingsHandler.Routes())
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(handlers.RequireJWT(cfg.Auth.JWTSecret, "admin"))
			r.Mount("/bookings", bookingsHandler.AdminRoutes())
			r.Mount("/providers", providersHandler.Routes())
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting travel-bookings API", "port", cfg.Server.Port, "stripe_env", cfg.Stripe.Environment)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
