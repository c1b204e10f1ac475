package bid

import (
	"time"

	"github.com/google/uuid"
)

// Bid represents an accepted offer on an auction. Bids are immutable once
// committed and never outlive their auction.
type Bid struct {
	ID         uuid.UUID `json:"id"`
	AuctionID  uuid.UUID `json:"auction_id"`
	BidderID   uuid.UUID `json:"bidder_id"`
	BidderName string    `json:"bidder_name"`
	Amount     float64   `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

// MyBid is a bid joined with its auction's display attributes, for the
// caller's bid history view.
type MyBid struct {
	Bid
	AuctionItemName string  `json:"auction_item_name"`
	AuctionImageURL *string `json:"auction_image_url,omitempty"`
}
