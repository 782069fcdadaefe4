package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"library_catalog/pkg/catalog"
	"library_catalog/pkg/config"
	"library_catalog/pkg/database"
	"library_catalog/pkg/visits"

	"github.com/redis/go-redis/v9"
)

var (
	repo         *catalog.Repository
	visitCounter visits.Counter
	tokenSecret  []byte
	now          = time.Now
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	initLogger(cfg.LogLevel)
	slog.Info("starting catalog service", "port", cfg.Port, "driver", cfg.DBDriver)

	db, err := database.Open(database.Options{
		Driver:     cfg.DBDriver,
		DSN:        cfg.DatabaseURL,
		MaxRetries: 10,
		RetryDelay: 5 * time.Second,
	})
	if err != nil {
		slog.Error("open database", "err", err)
		os.Exit(1)
	}
	repo = catalog.NewRepository(db)
	tokenSecret = []byte(cfg.JWTSecret)

	var redisClient *redis.Client
	visitCounter, redisClient = newVisitCounter(cfg.RedisAddr, cfg.RedisPassword)
	if redisClient != nil {
		defer redisClient.Close()
	}

	if cfg.SeedDemoData {
		seedTestData(context.Background())
	}

	router, err := newRouter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	if err != nil {
		slog.Error("build router", "err", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("catalog service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "err", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newVisitCounter uses redis when an address is configured, falling back to
// process memory while redis is unhealthy.
func newVisitCounter(addr, password string) (visits.Counter, *redis.Client) {
	memory := visits.NewMemory(visits.SessionTTL)
	if addr == "" {
		slog.Info("visit counter in memory")
		return memory, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	primary := visits.NewRedis(client, "catalog:visits", visits.SessionTTL)
	breaker := visits.NewBreaker(5, 30*time.Second, time.Minute)
	slog.Info("visit counter in redis", "addr", addr)
	return visits.NewGuarded(primary, memory, breaker), client
}

func initLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
	slog.SetDefault(logger)
	return logger
}
