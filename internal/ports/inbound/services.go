package inbound

import (
	"context"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/bid"
	"livebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// AuctionService defines the interface for auction lifecycle operations
type AuctionService interface {
	// CreateAuction creates a new active auction (admin only)
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*auction.Auction, error)

	// GetAuction retrieves an auction with its bid history, lazily
	// finishing it when the end time has passed
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*AuctionDetail, error)

	// ListAuctions retrieves all auctions sorted by status then end time
	ListAuctions(ctx context.Context) ([]*auction.Auction, error)

	// DeleteAuction removes an auction and all of its bids (admin only)
	DeleteAuction(ctx context.Context, auctionID uuid.UUID) error

	// FinishAuction transitions an auction to finished and computes the winner
	FinishAuction(ctx context.Context, auctionID uuid.UUID) (*shared.AuctionEndResult, error)
}

// BidService defines the interface for bid operations
type BidService interface {
	// PlaceBid validates and commits a bid, broadcasting it on success
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*bid.Bid, error)

	// GetBids retrieves the bid history for an auction, newest first
	GetBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)

	// GetMyBids retrieves the caller's bids joined with auction attributes
	GetMyBids(ctx context.Context, bidderID uuid.UUID) ([]*bid.MyBid, error)
}

// CreateAuctionRequest carries the admin-supplied auction attributes.
// Times are RFC3339 strings, parsed and validated by the service.
type CreateAuctionRequest struct {
	Creator       shared.Identity `json:"-"`
	ItemName      string          `json:"item_name"`
	Description   string          `json:"description"`
	ImageURL      *string         `json:"image_url,omitempty"`
	StartingPrice float64         `json:"starting_price"`
	StartTime     string          `json:"start_time"`
	EndTime       string          `json:"end_time"`
}

// PlaceBidRequest carries a proposed bid together with the explicit
// identity of the bidder.
type PlaceBidRequest struct {
	AuctionID uuid.UUID       `json:"auction_id"`
	Bidder    shared.Identity `json:"-"`
	Amount    float64         `json:"amount"`
}

// AuctionDetail is an auction with its ordered bid history and, once
// finished, the winner fields (nil when there were no bids).
type AuctionDetail struct {
	auction.Auction
	Bids       []*bid.Bid `json:"bids"`
	WinnerName *string    `json:"winner_name,omitempty"`
	FinalPrice *float64   `json:"final_price,omitempty"`
	Sold       bool       `json:"sold"`
}
