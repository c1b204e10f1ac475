package auction

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an auction
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Auction represents a sellable item with a time-bounded, bid-driven price
type Auction struct {
	ID            uuid.UUID `json:"id"`
	ItemName      string    `json:"item_name"`
	Description   string    `json:"description"`
	ImageURL      *string   `json:"image_url,omitempty"`
	StartingPrice float64   `json:"starting_price"`
	CurrentPrice  float64   `json:"current_price"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsActive returns true if the auction is currently open for bidding
func (a *Auction) IsActive() bool {
	return a.Status == StatusActive
}

// IsFinished returns true if the auction has reached its terminal state
func (a *Auction) IsFinished() bool {
	return a.Status == StatusFinished
}

// HasEnded reports whether the auction's end time has passed. The stored
// status can lag behind this (the finished transition is detected lazily on
// read), so bid admission must check HasEnded and not only the status field.
func (a *Auction) HasEnded(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// HasStarted reports whether the auction's start time has passed
func (a *Auction) HasStarted(now time.Time) bool {
	return !now.Before(a.StartTime)
}

// CanBid returns true if a bid can be placed on this auction at the given time
func (a *Auction) CanBid(now time.Time) bool {
	return a.Status == StatusActive && a.HasStarted(now) && !a.HasEnded(now)
}

// Finish marks the auction as finished
func (a *Auction) Finish() {
	a.Status = StatusFinished
	a.UpdatedAt = time.Now()
}
