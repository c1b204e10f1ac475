package outbound

import (
	"context"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/bid"

	"github.com/google/uuid"
)

// AuctionRepository defines the interface for auction data operations
type AuctionRepository interface {
	// Create creates a new auction
	Create(ctx context.Context, auction *auction.Auction) error

	// GetByID retrieves an auction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)

	// List retrieves all auctions sorted by status (active, pending,
	// finished) then end time ascending
	List(ctx context.Context) ([]*auction.Auction, error)

	// MarkFinished transitions an auction to finished. The update is
	// conditional on the auction not already being finished, so exactly one
	// of any set of racing callers wins; the rest get
	// shared.ErrAuctionAlreadyFinished.
	MarkFinished(ctx context.Context, id uuid.UUID) error

	// Delete removes an auction together with its bids in one transaction
	Delete(ctx context.Context, id uuid.UUID) error
}

// BidRepository defines the interface for bid data operations
type BidRepository interface {
	// GetByAuctionID retrieves all bids for an auction, newest first
	GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)

	// GetHighestBid retrieves the winning bid for an auction
	GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error)

	// GetByBidderID retrieves a bidder's bids joined with auction
	// attributes, newest first
	GetByBidderID(ctx context.Context, bidderID uuid.UUID) ([]*bid.MyBid, error)

	// CommitBid inserts the bid and raises the auction's current price in
	// one transaction, conditional on the price still being
	// expectedCurrentPrice. Returns shared.ErrPriceConflict when another
	// commit won the race.
	CommitBid(ctx context.Context, newBid *bid.Bid, expectedCurrentPrice float64) error
}
