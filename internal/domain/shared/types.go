package shared

import "github.com/google/uuid"

// AuctionEndResult represents the outcome of finishing an auction.
// Winner fields are nil when the auction received no bids.
type AuctionEndResult struct {
	AuctionID  uuid.UUID
	WinnerID   *uuid.UUID
	WinnerName *string
	FinalPrice *float64
	Sold       bool
}
