package shared

import "errors"

// Domain-specific errors
var (
	// Auction errors
	ErrAuctionNotFound         = errors.New("auction not found")
	ErrAuctionClosed           = errors.New("auction is closed for bidding")
	ErrAuctionAlreadyFinished  = errors.New("auction already finished")
	ErrAuctionNotStarted       = errors.New("auction has not started yet")
	ErrInvalidEndTime          = errors.New("end time must be after start time")
	ErrInvalidStartingPrice    = errors.New("starting price must be greater than 0")
	ErrInvalidTimeFormat       = errors.New("invalid time format")

	// Bid errors
	ErrBidNotFound      = errors.New("bid not found")
	ErrBidAmountInvalid = errors.New("bid amount must be a positive number")
	ErrBidAmountTooLow  = errors.New("bid amount must be higher than the current price")
	ErrNoBidsFound      = errors.New("no bids found")

	// Commit errors
	ErrPriceConflict = errors.New("auction price changed concurrently")

	// Auth errors
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("admin privileges required")
	ErrInvalidToken    = errors.New("invalid or expired token")

	// Validation errors
	ErrInvalidRequest = errors.New("invalid request")

	// Broadcasting errors
	ErrBroadcastFailed = errors.New("broadcast failed")
	ErrNotSubscribed   = errors.New("client not subscribed to auction")

	// WebSocket message validation errors
	ErrMessageTypeRequired = errors.New("message type is required")
	ErrAuctionIDRequired   = errors.New("auction_id is required")
	ErrUnknownMessageType  = errors.New("unknown message type")
)
