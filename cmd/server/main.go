package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/stationops/fuelledger/internal/cache"
	"github.com/stationops/fuelledger/internal/config"
	"github.com/stationops/fuelledger/internal/httpapi"
	"github.com/stationops/fuelledger/internal/ledger"
	"github.com/stationops/fuelledger/internal/logger"
	"github.com/stationops/fuelledger/internal/metrics"
	"github.com/stationops/fuelledger/internal/pricing"
	"github.com/stationops/fuelledger/internal/service"
	"github.com/stationops/fuelledger/internal/store"
	"github.com/stationops/fuelledger/internal/store/memory"
	"github.com/stationops/fuelledger/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo store.Repository
	if cfg.DemoMode {
		mem := memory.New()
		if err := mem.Seed(); err != nil {
			log.Error("seed demo data", "error", err)
			os.Exit(1)
		}
		repo = mem
		log.Info("running in demo mode with in-memory store")
	} else {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.Migrate(); err != nil {
			log.Error("migrate", "error", err)
			os.Exit(1)
		}
		repo = pg
	}

	var debts cache.DebtBalances = cache.NewNoop()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unreachable, running without debt cache", "addr", cfg.RedisAddr, "error", err)
		} else {
			debts = cache.NewRedis(client, log)
			defer client.Close()
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	svc := service.New(repo, pricing.NewResolver(repo), ledger.NewReader(repo, debts), m, log)
	api := httpapi.New(svc, log, cfg.JWTSecret)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}
