package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/peer-tutoring/internal/app"
	"github.com/iliyamo/peer-tutoring/internal/config"
	"github.com/iliyamo/peer-tutoring/internal/database"
	"github.com/iliyamo/peer-tutoring/internal/handler"
	"github.com/iliyamo/peer-tutoring/internal/queue"
	"github.com/iliyamo/peer-tutoring/internal/repository"
	"github.com/iliyamo/peer-tutoring/internal/router"
	"github.com/iliyamo/peer-tutoring/internal/service"
)

func main() {
	cfg, err := config.Load()
	log := app.NewLogger(cfg.Env)
	defer func() { _ = log.Sync() }()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db, log); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	var rdb *redis.Client
	if rdb, err = config.NewRedisClient(ctx, config.LoadRedisConfig()); err != nil {
		log.Warn("redis unavailable, rate limiting and cache disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.AMQPURL)
		defer pub.Close()
		events = pub
		go func() {
			if err := queue.NewConsumer(cfg.AMQPURL, "", log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	users, tokens := repository.NewUserRepo(db), repository.NewTokenRepo(db)
	courses, enrollments := repository.NewCourseRepo(db), repository.NewEnrollmentRepo(db)
	sessions, bookings := repository.NewSessionRepo(db), repository.NewBookingRepo(db)

	authSvc := service.NewAuthService(service.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
	}, users, tokens, log)
	catalogSvc := service.NewCatalogService(users, courses, enrollments, sessions, log)
	sessionSvc := service.NewSessionService(courses, enrollments, sessions, log)
	bookingSvc := service.NewBookingService(bookings, events, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: func() string { return uuid.NewString() }}))
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info("request",
				zap.String("id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	router.Register(e, router.Deps{
		DB:        db,
		Redis:     rdb,
		JWTSecret: cfg.JWTSecret,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Log:       log,
		Auth:      handler.NewAuthHandler(authSvc, log),
		Catalog:   handler.NewCatalogHandler(catalogSvc, log),
		Sessions:  handler.NewSessionHandler(sessionSvc, log),
		Bookings:  handler.NewBookingHandler(bookingSvc, log),
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
