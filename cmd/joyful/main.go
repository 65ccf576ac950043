// Package main запускает HTTP-сервер сервиса доставки стирки.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/joyful-laundry/internal/catalog"
	"github.com/mmeshcher/joyful-laundry/internal/config"
	"github.com/mmeshcher/joyful-laundry/internal/dashboard"
	"github.com/mmeshcher/joyful-laundry/internal/events"
	"github.com/mmeshcher/joyful-laundry/internal/geocode"
	"github.com/mmeshcher/joyful-laundry/internal/handler"
	"github.com/mmeshcher/joyful-laundry/internal/identity"
	"github.com/mmeshcher/joyful-laundry/internal/middleware"
	"github.com/mmeshcher/joyful-laundry/internal/repository"
	"github.com/mmeshcher/joyful-laundry/internal/session"
	"github.com/mmeshcher/joyful-laundry/internal/timeslot"
	"github.com/mmeshcher/joyful-laundry/internal/validation"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	if err := cfg.Validate(); err != nil {
		sugar.Fatalw("invalid configuration", "error", err.Error())
	}

	pricing, err := catalog.NewPricingPolicy(cfg.PricingPolicy, decimal.NewFromFloat(cfg.FlatServiceRate))
	if err != nil {
		sugar.Fatalw("pricing policy error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, repository.Options{
		Driver:        cfg.StoreDriver,
		DatabaseURI:   cfg.DatabaseURI,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
	})
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer store.Close()

	var producer events.Producer
	if cfg.KafkaEnabled() {
		producer = events.NewKafkaProducer(cfg.KafkaBrokers)
	} else {
		producer = events.NewLogProducer(logger)
	}
	publisher := events.NewPublisher(producer, cfg.KafkaTopic, logger)
	defer publisher.Close()

	provider := identity.NewProvider(store, identity.Config{
		Secret:   cfg.AuthSecret,
		TokenTTL: cfg.AuthTokenTTL,
		Google:   identity.GoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
	}, logger)

	holder := session.NewHolder(provider, logger)
	holder.Init()
	defer holder.Close()

	validator := validation.New()

	registry := dashboard.NewRegistry(dashboard.Deps{
		Store:     store,
		Validator: validator,
		Pricing:   pricing,
		Events:    publisher,
		Logger:    logger,
	})
	unsubscribe := provider.OnAuthStateChange(registry.HandleAuthState)
	defer unsubscribe()

	authMiddleware := middleware.NewAuthMiddleware(provider, holder, cfg.AuthTokenTTL)

	h := handler.NewHandler(handler.Deps{
		Identity:    provider,
		Sessions:    holder,
		Views:       registry,
		Geocoder:    geocode.NewClient(cfg.GeocoderURL, cfg.GeocoderUserAgent),
		Slots:       timeslot.NewGenerator(cfg.Location()),
		Health:      store,
		Validator:   validator,
		CORSOrigins: cfg.CORSAllowedOrigins,
	}, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting laundry server",
			"addr", cfg.RunAddress,
			"store", cfg.StoreDriver,
			"pricing", pricing.Name(),
			"google", provider.GoogleEnabled(),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
