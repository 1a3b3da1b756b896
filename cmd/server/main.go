package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"realtime-core/internal/bridge"
	"realtime-core/internal/config"
	"realtime-core/internal/room"
	"realtime-core/internal/server"
	"realtime-core/internal/stats"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := config.Load()

	var redisClient *redis.Client
	var collector stats.Collector = stats.Nop{}
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable at startup, continuing")
		}
		pingCancel()
		collector = stats.NewRedisCollector(redisClient, "core:stats")
	}

	registry := room.NewRegistry(room.Limits{
		ChatHistoryCap: cfg.Room.ChatHistoryCap,
		UndoDepth:      cfg.Room.UndoDepth,
	}, collector)

	if redisClient != nil {
		b := bridge.NewRedis(redisClient, registry.DeliverRemote)
		registry.SetBridge(b)
		go b.Run(ctx)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("instance bridge running")
	}

	srv := server.New(cfg, registry, collector, redisClient)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("server stopped")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	if err := srv.Shutdown(5 * time.Second); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited gracefully")
}
