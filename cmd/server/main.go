// Command server runs the recipes HTTP API.
//
// @title                       Recipes API
// @version                     1.0
// @description                 Meals, their recipes, nutrition facts and ratings.
// @BasePath                    /api/v1
// @schemes                     http https
//
// @securityDefinitions.apikey  UserID
// @in                          header
// @name                        X-User-ID
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-recipes-backend/internal/cache"
	"github.com/tbourn/go-recipes-backend/internal/config"
	"github.com/tbourn/go-recipes-backend/internal/events"
	httpapi "github.com/tbourn/go-recipes-backend/internal/http"
	"github.com/tbourn/go-recipes-backend/internal/observability"
	"github.com/tbourn/go-recipes-backend/internal/repo"
	"github.com/tbourn/go-recipes-backend/internal/seed"
	"github.com/tbourn/go-recipes-backend/internal/services"
	"github.com/tbourn/go-recipes-backend/internal/sysutil"
)

// version is set with -ldflags "-X main.version=...".
var version string

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.ConfigureLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	ver := sysutil.Version(version)

	if err := run(cfg, ver); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, ver string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	bus := events.NewBus()
	bus.SubscribeAll(events.LogAndCount)

	meals := services.NewMealService(db, cache.New[services.MealView](cfg.Cache), bus, cfg.SearchThreshold)
	if cfg.SeedPath != "" {
		n, err := seed.Load(ctx, cfg.SeedPath, meals)
		if err != nil {
			return err
		}
		log.Info().Int("meals", n).Str("path", cfg.SeedPath).Msg("seed loaded")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, meals, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	relay := &events.Relay{DB: db, Publisher: bus, BatchSize: cfg.OutboxBatchSize}
	g.Go(func() error {
		relay.Run(gctx, cfg.OutboxInterval)
		return nil
	})

	idem := services.NewIdempotencyService(db, cfg.IdempotencyTTL)
	g.Go(func() error {
		purgeIdempotency(gctx, idem, cfg.IdempotencyTTL)
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", ver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// purgeIdempotency drops expired idempotency keys once per ttl (at most
// hourly) until ctx is done.
func purgeIdempotency(ctx context.Context, idem *services.IdempotencyService, ttl time.Duration) {
	t := time.NewTicker(min(ttl, time.Hour))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n, err := idem.Purge(ctx, now.UTC()); err != nil {
				log.Warn().Err(err).Msg("purge idempotency keys")
			} else if n > 0 {
				log.Debug().Int64("removed", n).Msg("purge idempotency keys")
			}
		}
	}
}
