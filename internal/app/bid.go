package app

import (
	"context"
	"errors"
	"time"

	"livebid-service/internal/domain/bid"
	"livebid-service/internal/domain/shared"
	"livebid-service/internal/ports/inbound"
	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxCommitAttempts bounds the retry-on-conflict loop. Each retry re-reads
// the auction and re-validates against the fresh price, so a conflicting
// bid that is still an improvement gets another chance while a beaten bid
// is rejected with a business error.
const maxCommitAttempts = 3

// BidService implements the bid commit pipeline: validate against a fresh
// snapshot, commit bid row and price update atomically, broadcast once.
type BidService struct {
	bidRepo     outbound.BidRepository
	auctionRepo outbound.AuctionRepository
	broadcaster outbound.Broadcaster
	logger      zerolog.Logger
	now         func() time.Time
}

type BidServiceParams struct {
	BidRepo     outbound.BidRepository
	AuctionRepo outbound.AuctionRepository
	Broadcaster outbound.Broadcaster
	Logger      zerolog.Logger
	Now         func() time.Time
}

// NewBidService creates a new bid service
func NewBidService(params BidServiceParams) *BidService {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &BidService{
		bidRepo:     params.BidRepo,
		auctionRepo: params.AuctionRepo,
		broadcaster: params.Broadcaster,
		logger:      params.Logger.With().Str("component", "bid_service").Logger(),
		now:         now,
	}
}

// PlaceBid validates and commits a bid on an auction. The read-validate-write
// cycle uses the repository's conditional update: the bid row and the price
// update land in one transaction guarded by the price observed at validation
// time, so two bids validated against the same stale price can never both
// commit. On success exactly one bid.placed event is published; a rejected
// bid mutates nothing and publishes nothing.
func (s *BidService) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*bid.Bid, error) {
	s.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.Bidder.UserID.String()).
		Float64("amount", req.Amount).
		Msg("Attempting to place bid")

	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		snapshot, err := s.auctionRepo.GetByID(ctx, req.AuctionID)
		if err != nil {
			if errors.Is(err, shared.ErrAuctionNotFound) {
				return nil, shared.ErrAuctionNotFound
			}
			s.logger.Error().Err(err).Str("auction_id", req.AuctionID.String()).Msg("Failed to load auction snapshot")
			return nil, err
		}

		// End time is re-checked here at commit time, not only the cached
		// status field, so an expired-but-not-yet-finished auction cannot
		// accept a racing bid.
		now := s.now()
		if err := bid.Validate(snapshot, req.Amount, now); err != nil {
			s.logger.Warn().
				Err(err).
				Str("auction_id", req.AuctionID.String()).
				Float64("amount", req.Amount).
				Float64("current_price", snapshot.CurrentPrice).
				Msg("Bid rejected by validator")
			return nil, err
		}

		newBid := &bid.Bid{
			ID:         uuid.New(),
			AuctionID:  req.AuctionID,
			BidderID:   req.Bidder.UserID,
			BidderName: req.Bidder.Username,
			Amount:     req.Amount,
			CreatedAt:  now,
		}

		err = s.bidRepo.CommitBid(ctx, newBid, snapshot.CurrentPrice)
		if errors.Is(err, shared.ErrPriceConflict) {
			s.logger.Info().
				Str("auction_id", req.AuctionID.String()).
				Int("attempt", attempt).
				Float64("expected_price", snapshot.CurrentPrice).
				Msg("Price moved during commit, retrying against fresh state")
			continue
		}
		if err != nil {
			s.logger.Error().Err(err).Str("bid_id", newBid.ID.String()).Msg("Failed to commit bid")
			return nil, err
		}

		s.publishNewBid(ctx, newBid)

		s.logger.Info().
			Str("bid_id", newBid.ID.String()).
			Str("auction_id", newBid.AuctionID.String()).
			Float64("amount", newBid.Amount).
			Int("attempt", attempt).
			Msg("Bid committed")
		return newBid, nil
	}

	s.logger.Warn().
		Str("auction_id", req.AuctionID.String()).
		Float64("amount", req.Amount).
		Msg("Bid commit attempts exhausted")
	return nil, shared.ErrPriceConflict
}

// publishNewBid broadcasts a committed bid. Delivery failures are logged and
// never surfaced to the bidder: the HTTP response already confirmed the
// commit independent of fan-out.
func (s *BidService) publishNewBid(ctx context.Context, newBid *bid.Bid) {
	event := outbound.Event{
		Type:      outbound.EventTypeNewBid,
		AuctionID: newBid.AuctionID,
		Data: map[string]interface{}{
			"bid_id":      newBid.ID.String(),
			"bidder_id":   newBid.BidderID.String(),
			"bidder_name": newBid.BidderName,
			"amount":      newBid.Amount,
			"created_at":  newBid.CreatedAt.Format(time.RFC3339Nano),
		},
		Timestamp: newBid.CreatedAt.Unix(),
	}

	if err := s.broadcaster.Publish(ctx, newBid.AuctionID, event); err != nil {
		s.logger.Error().Err(err).Str("bid_id", newBid.ID.String()).Msg("Failed to broadcast committed bid")
	}
}

// GetBids retrieves the bid history for an auction, newest first
func (s *BidService) GetBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	return s.bidRepo.GetByAuctionID(ctx, auctionID)
}

// GetMyBids retrieves the caller's bid history joined with auction attributes
func (s *BidService) GetMyBids(ctx context.Context, bidderID uuid.UUID) ([]*bid.MyBid, error) {
	return s.bidRepo.GetByBidderID(ctx, bidderID)
}
