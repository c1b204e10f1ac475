package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"livebid-service/internal/adapters/broadcaster"
	"livebid-service/internal/adapters/db"
	"livebid-service/internal/adapters/httpapi"
	appredis "livebid-service/internal/adapters/redis"
	"livebid-service/internal/adapters/scheduler"
	"livebid-service/internal/app"
	"livebid-service/internal/auth"
	"livebid-service/internal/config"
	"livebid-service/internal/ports/outbound"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting LiveBid auction service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConn, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	log.Info().Msg("Database connection established")

	repoFactory := db.NewRepositoryFactory(dbConn)
	auctionRepo := repoFactory.GetAuctionRepository()
	bidRepo := repoFactory.GetBidRepository()

	redisClient := appredis.NewClient(cfg)

	var bcaster outbound.Broadcaster
	var auctionScheduler *scheduler.AuctionScheduler

	if cfg.Broadcast.Backend == "redis" {
		if err := appredis.PingRedis(redisClient); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Info().Msg("Redis connection established")

		bcaster = broadcaster.NewRedisBroadcaster(broadcaster.RedisBroadcasterParams{
			RedisClient: redisClient,
			Logger:      log.Logger,
		})
	} else {
		bcaster = broadcaster.NewMemoryBroadcaster(log.Logger)
	}
	defer bcaster.Close()

	auctionService := app.NewAuctionService(app.AuctionServiceParams{
		AuctionRepo: auctionRepo,
		BidRepo:     bidRepo,
		Broadcaster: bcaster,
		Logger:      log.Logger,
	})
	bidService := app.NewBidService(app.BidServiceParams{
		BidRepo:     bidRepo,
		AuctionRepo: auctionRepo,
		Broadcaster: bcaster,
		Logger:      log.Logger,
	})

	log.Info().Msg("Application services initialized")

	if cfg.Broadcast.Backend == "redis" {
		auctionScheduler = scheduler.NewAuctionScheduler(scheduler.AuctionSchedulerParams{
			RedisClient: redisClient,
			Finisher:    auctionService,
			Logger:      log.Logger,
		})
		auctionScheduler.Start()
		auctionService.SetScheduler(auctionScheduler)
		log.Info().Msg("Auction expiry scheduler started")
	}

	verifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret)

	server := httpapi.NewServer(httpapi.ServerParams{
		Config:         cfg,
		AuctionService: auctionService,
		BidService:     bidService,
		Broadcaster:    bcaster,
		Verifier:       verifier,
		Logger:         log.Logger,
	})

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start HTTP server")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if auctionScheduler != nil {
		auctionScheduler.Stop()
		log.Info().Msg("Auction scheduler stopped")
	}

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	}

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.DefaultContextLogger = &log.Logger
}
