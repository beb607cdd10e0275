package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-workflow-engine/internal/config"
	"github.com/hackgods/clinic-workflow-engine/internal/db"
	"github.com/hackgods/clinic-workflow-engine/internal/pharmacy"
	redisclient "github.com/hackgods/clinic-workflow-engine/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config load error")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("service", "alerts-worker").Logger()

	log.Info().Str("env", cfg.Env).Dur("interval", cfg.SweepInterval).Msg("alerts-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PGMaxConns)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisPoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	repo := pharmacy.NewPgRepository(pgPool)
	svc := pharmacy.NewService(repo, locker, log)

	// Run once at startup
	runOnce(rootCtx, svc, cfg, log)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping alerts worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg, log)
		}
	}
}

func runOnce(ctx context.Context, svc *pharmacy.Service, cfg config.Config, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	alerts, err := svc.SweepAlerts(runCtx, cfg.ExpiryHorizon)
	if err != nil {
		log.Error().Err(err).Msg("alerts sweep error")
		return
	}
	log.Info().Int("alerts", len(alerts)).Dur("took", time.Since(start)).Msg("alerts sweep complete")
}
