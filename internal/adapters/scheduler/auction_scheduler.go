package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"livebid-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// expirationsKey is the Redis ZSET of (auction id, end time) pairs
const expirationsKey = "auction:expirations"

// AuctionFinisher finishes an expired auction and announces the result.
// Implemented by the auction application service.
type AuctionFinisher interface {
	FinishAuction(ctx context.Context, auctionID uuid.UUID) (*shared.AuctionEndResult, error)
}

// AuctionScheduler sweeps expired auctions every second. It is housekeeping
// for UI freshness: the lazy read transition and the bid pipeline's end-time
// check keep correctness independent of the sweep.
type AuctionScheduler struct {
	redis    *redis.Client
	finisher AuctionFinisher
	logger   zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type AuctionSchedulerParams struct {
	RedisClient *redis.Client
	Finisher    AuctionFinisher
	Logger      zerolog.Logger
}

func NewAuctionScheduler(params AuctionSchedulerParams) *AuctionScheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &AuctionScheduler{
		redis:    params.RedisClient,
		finisher: params.Finisher,
		logger:   params.Logger.With().Str("component", "auction_scheduler").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// ScheduleAuction adds an auction to the expiration schedule
func (s *AuctionScheduler) ScheduleAuction(auctionID uuid.UUID, endTime time.Time) error {
	err := s.redis.ZAdd(s.ctx, expirationsKey, redis.Z{
		Score:  float64(endTime.Unix()),
		Member: auctionID.String(),
	}).Err()

	if err != nil {
		return fmt.Errorf("failed to schedule auction: %w", err)
	}

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Time("end_time", endTime).
		Msg("Auction scheduled for expiration")

	return nil
}

// Start begins the scheduler loop
func (s *AuctionScheduler) Start() {
	s.logger.Info().Msg("Starting auction scheduler")

	s.wg.Add(1)
	go s.schedulerLoop()
}

// Stop gracefully stops the scheduler
func (s *AuctionScheduler) Stop() {
	s.logger.Info().Msg("Stopping auction scheduler")
	s.cancel()
	s.wg.Wait()
}

func (s *AuctionScheduler) schedulerLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepExpiredAuctions()
		case <-s.ctx.Done():
			s.logger.Info().Msg("Scheduler loop stopped")
			return
		}
	}
}

// sweepExpiredAuctions finds and finishes auctions past their end time
func (s *AuctionScheduler) sweepExpiredAuctions() {
	now := time.Now().Unix()

	expired, err := s.redis.ZRangeByScore(s.ctx, expirationsKey, &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(now, 10),
		Count: 10, // bounded batch per tick
	}).Result()

	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to get expired auctions")
		return
	}

	for _, auctionIDStr := range expired {
		auctionID, err := uuid.Parse(auctionIDStr)
		if err != nil {
			s.logger.Error().Err(err).Str("auction_id", auctionIDStr).Msg("Invalid auction ID in schedule")
			s.redis.ZRem(s.ctx, expirationsKey, auctionIDStr)
			continue
		}

		go s.finishAuction(auctionID)
	}
}

func (s *AuctionScheduler) finishAuction(auctionID uuid.UUID) {
	defer s.redis.ZRem(s.ctx, expirationsKey, auctionID.String())

	result, err := s.finisher.FinishAuction(s.ctx, auctionID)
	if err != nil {
		// A lazy read or a concurrent sweep may have finished it already;
		// a deleted auction just drops out of the schedule
		if errors.Is(err, shared.ErrAuctionAlreadyFinished) || errors.Is(err, shared.ErrAuctionNotFound) {
			return
		}
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to finish auction")
		return
	}

	logger := s.logger.Info().Str("auction_id", auctionID.String())
	if result.WinnerName != nil {
		logger = logger.Str("winner", *result.WinnerName)
	}
	if result.FinalPrice != nil {
		logger = logger.Float64("final_price", *result.FinalPrice)
	}
	logger.Msg("Expired auction finished")
}
