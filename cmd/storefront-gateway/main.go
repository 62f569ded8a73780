package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/niravGanatra/uparwala-sub002/internal/analytics"
	"github.com/niravGanatra/uparwala-sub002/internal/config"
	h "github.com/niravGanatra/uparwala-sub002/internal/http"
	"github.com/niravGanatra/uparwala-sub002/internal/store"
	"github.com/niravGanatra/uparwala-sub002/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, os.Stdout)
	slog.SetDefault(log)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var kv store.KV
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		kv = store.NewRedisStore(rdb, cfg.SessionTTL)
		log.Info("session storage on redis", "addr", cfg.RedisAddr)
	} else {
		kv = store.NewMemoryStore()
		log.Info("session storage in memory")
	}

	var tracker analytics.Tracker = analytics.Noop{}
	beaconCtx, stopBeacon := context.WithCancel(context.Background())
	var beaconDone sync.WaitGroup
	if len(cfg.KafkaBrokers) > 0 {
		beacon := analytics.NewKafkaBeacon(cfg.AnalyticsTopic, log, cfg.KafkaBrokers...)
		tracker = beacon
		beaconDone.Add(1)
		go func() {
			defer beaconDone.Done()
			beacon.Run(beaconCtx)
		}()
		log.Info("analytics beacon started", "topic", cfg.AnalyticsTopic, "brokers", cfg.KafkaBrokers)
	}

	reg := h.NewRegistry(h.RegistryDeps{
		Config:  cfg,
		KV:      kv,
		Tracker: tracker,
		Logger:  log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.NewRouter(cfg, reg, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront gateway starting", "port", cfg.HTTPPort, "api", cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	reg.Stop()
	stopBeacon()
	beaconDone.Wait()

	log.Info("server exited")
}
