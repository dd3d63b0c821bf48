package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/dining-reservation/internal/config"
	"github.com/iliyamo/dining-reservation/internal/database"
	"github.com/iliyamo/dining-reservation/internal/handler"
	"github.com/iliyamo/dining-reservation/internal/logger"
	"github.com/iliyamo/dining-reservation/internal/middleware"
	"github.com/iliyamo/dining-reservation/internal/queue"
	"github.com/iliyamo/dining-reservation/internal/repository"
	"github.com/iliyamo/dining-reservation/internal/router"
	"github.com/iliyamo/dining-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real environment wins

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dialect, err := database.Open(cfg)
	if err != nil {
		log.Fatal("database connection failed", "driver", cfg.DBDriver, "error", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, dialect); err != nil {
		log.Fatal("schema migration failed", "error", err)
	}

	customers := repository.NewCustomerRepo(db, dialect)
	reservations := repository.NewReservationRepo(db, dialect)
	tables := repository.NewTableRepo(db, dialect)
	assignments := repository.NewAssignmentRepo(db, dialect)

	if err := tables.EnsureInventory(ctx, cfg.TableNumbers); err != nil {
		log.Fatal("seeding table inventory failed", "error", err)
	}

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.RabbitMQURL, log)
		consumer := queue.NewConsumer(cfg.RabbitMQURL, "logs", log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", "error", err)
			}
		}()
	}

	svc := service.NewReservationService(db, customers, reservations, tables, assignments, events, log)

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and caching disabled", "addr", cfg.Redis.Addr)
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: []string{cfg.CORSOrigin}}))
	if cfg.LocalhostOnly {
		e.Use(middleware.LocalhostOnly())
	}

	router.RegisterRoutes(e, handler.NewHealthHandler(db))
	router.RegisterReservations(e,
		handler.NewReservationHandler(svc, cfg.DefaultSpacingHours, cfg.RequestTimeout, log),
		middleware.NewRedisCache(cfg.Cache, rdb),
		middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
	)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "driver", cfg.DBDriver, "tables", len(cfg.TableNumbers))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
