package app

import (
	"context"
	"errors"
	"time"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/shared"
	"livebid-service/internal/ports/inbound"
	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ExpiryScheduler registers an auction for the periodic expiry sweep.
// The sweep is housekeeping: correctness never depends on it because both
// GetAuction and the bid pipeline re-check the end time themselves.
type ExpiryScheduler interface {
	ScheduleAuction(auctionID uuid.UUID, endTime time.Time) error
}

// AuctionService implements the auction lifecycle use cases
type AuctionService struct {
	auctionRepo outbound.AuctionRepository
	bidRepo     outbound.BidRepository
	broadcaster outbound.Broadcaster
	scheduler   ExpiryScheduler
	logger      zerolog.Logger
	now         func() time.Time
}

type AuctionServiceParams struct {
	AuctionRepo outbound.AuctionRepository
	BidRepo     outbound.BidRepository
	Broadcaster outbound.Broadcaster
	Scheduler   ExpiryScheduler
	Logger      zerolog.Logger
	Now         func() time.Time
}

// NewAuctionService creates a new auction service
func NewAuctionService(params AuctionServiceParams) *AuctionService {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &AuctionService{
		auctionRepo: params.AuctionRepo,
		bidRepo:     params.BidRepo,
		broadcaster: params.Broadcaster,
		scheduler:   params.Scheduler,
		logger:      params.Logger.With().Str("component", "auction_service").Logger(),
		now:         now,
	}
}

// CreateAuction creates a new auction, open for bidding immediately with
// the current price pinned to the starting price.
func (s *AuctionService) CreateAuction(ctx context.Context, req inbound.CreateAuctionRequest) (*auction.Auction, error) {
	s.logger.Info().
		Str("item_name", req.ItemName).
		Str("creator_id", req.Creator.UserID.String()).
		Float64("starting_price", req.StartingPrice).
		Msg("Attempting to create auction")

	if !req.Creator.IsAdmin {
		return nil, shared.ErrForbidden
	}

	if req.ItemName == "" {
		return nil, shared.ErrInvalidRequest
	}

	if req.StartingPrice <= 0 {
		return nil, shared.ErrInvalidStartingPrice
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, shared.ErrInvalidTimeFormat
	}

	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return nil, shared.ErrInvalidTimeFormat
	}

	if !endTime.After(startTime) {
		return nil, shared.ErrInvalidEndTime
	}

	now := s.now()
	newAuction := &auction.Auction{
		ID:            uuid.New(),
		ItemName:      req.ItemName,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		StartingPrice: req.StartingPrice,
		CurrentPrice:  req.StartingPrice,
		StartTime:     startTime,
		EndTime:       endTime,
		Status:        auction.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.auctionRepo.Create(ctx, newAuction); err != nil {
		s.logger.Error().Err(err).Str("auction_id", newAuction.ID.String()).Msg("Failed to save auction")
		return nil, err
	}

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleAuction(newAuction.ID, newAuction.EndTime); err != nil {
			// Creation stands; the lazy transition covers an unscheduled auction
			s.logger.Error().Err(err).Str("auction_id", newAuction.ID.String()).Msg("Failed to schedule auction expiry")
		}
	}

	s.logger.Info().
		Str("auction_id", newAuction.ID.String()).
		Time("end_time", newAuction.EndTime).
		Msg("Auction created")
	return newAuction, nil
}

// GetAuction retrieves an auction with its bid history, performing the lazy
// finished transition when the end time has passed.
func (s *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*inbound.AuctionDetail, error) {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if !a.IsFinished() && a.HasEnded(s.now()) {
		if _, err := s.FinishAuction(ctx, auctionID); err != nil && !errors.Is(err, shared.ErrAuctionAlreadyFinished) {
			s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Lazy finish failed")
			return nil, err
		}
		a.Finish()
	}

	bids, err := s.bidRepo.GetByAuctionID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	detail := &inbound.AuctionDetail{
		Auction: *a,
		Bids:    bids,
	}

	if a.IsFinished() {
		s.attachWinner(ctx, detail)
	}

	return detail, nil
}

// attachWinner fills in the winner fields on a finished auction's detail.
// No bids means no winner: the fields stay nil and Sold stays false.
func (s *AuctionService) attachWinner(ctx context.Context, detail *inbound.AuctionDetail) {
	highest, err := s.bidRepo.GetHighestBid(ctx, detail.ID)
	if err != nil {
		if !errors.Is(err, shared.ErrNoBidsFound) {
			s.logger.Error().Err(err).Str("auction_id", detail.ID.String()).Msg("Failed to load winning bid")
		}
		return
	}
	detail.WinnerName = &highest.BidderName
	detail.FinalPrice = &highest.Amount
	detail.Sold = true
}

// ListAuctions retrieves all auctions sorted by status then end time
func (s *AuctionService) ListAuctions(ctx context.Context) ([]*auction.Auction, error) {
	return s.auctionRepo.List(ctx)
}

// DeleteAuction removes an auction and its bids. The repository performs
// the cascade in a single transaction so no orphaned bids survive.
func (s *AuctionService) DeleteAuction(ctx context.Context, auctionID uuid.UUID) error {
	if err := s.auctionRepo.Delete(ctx, auctionID); err != nil {
		return err
	}
	s.logger.Info().Str("auction_id", auctionID.String()).Msg("Auction deleted with its bids")
	return nil
}

// FinishAuction transitions an auction to finished, computes the winner and
// broadcasts auction.ended. The repository transition is first-writer-wins,
// so of any racing callers (sweep, lazy read) exactly one proceeds to the
// announcement; the rest get ErrAuctionAlreadyFinished and stay silent.
func (s *AuctionService) FinishAuction(ctx context.Context, auctionID uuid.UUID) (*shared.AuctionEndResult, error) {
	if err := s.auctionRepo.MarkFinished(ctx, auctionID); err != nil {
		if errors.Is(err, shared.ErrAuctionAlreadyFinished) || errors.Is(err, shared.ErrAuctionNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to persist finished status")
		return nil, err
	}

	result := &shared.AuctionEndResult{AuctionID: auctionID}

	highest, err := s.bidRepo.GetHighestBid(ctx, auctionID)
	if err == nil {
		result.WinnerID = &highest.BidderID
		result.WinnerName = &highest.BidderName
		result.FinalPrice = &highest.Amount
		result.Sold = true
	} else if !errors.Is(err, shared.ErrNoBidsFound) {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to load winning bid")
	}

	s.publishAuctionEnded(ctx, result)

	if result.Sold {
		s.logger.Info().
			Str("auction_id", auctionID.String()).
			Str("winner_id", result.WinnerID.String()).
			Float64("final_price", *result.FinalPrice).
			Msg("Auction finished with winner")
	} else {
		s.logger.Info().Str("auction_id", auctionID.String()).Msg("Auction finished with no bids")
	}

	return result, nil
}

// publishAuctionEnded announces the terminal state to subscribers. Advisory:
// a delivery failure is logged and the transition stands.
func (s *AuctionService) publishAuctionEnded(ctx context.Context, result *shared.AuctionEndResult) {
	data := map[string]interface{}{
		"auction_id": result.AuctionID.String(),
		"sold":       result.Sold,
	}
	if result.WinnerName != nil {
		data["winner_name"] = *result.WinnerName
	}
	if result.FinalPrice != nil {
		data["final_price"] = *result.FinalPrice
	}

	event := outbound.Event{
		Type:      outbound.EventTypeAuctionEnded,
		AuctionID: result.AuctionID,
		Data:      data,
		Timestamp: s.now().Unix(),
	}

	if err := s.broadcaster.Publish(ctx, result.AuctionID, event); err != nil {
		s.logger.Error().Err(err).Str("auction_id", result.AuctionID.String()).Msg("Failed to broadcast auction end")
	}
}

// SetScheduler sets the expiry scheduler after construction, breaking the
// init cycle between the service and the scheduler in main.
func (s *AuctionService) SetScheduler(scheduler ExpiryScheduler) {
	s.scheduler = scheduler
}
