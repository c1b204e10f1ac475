package outbound

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrBroadcasterClosed is returned for operations on a closed broadcaster
var ErrBroadcasterClosed = errors.New("broadcaster is closed")

// EventType represents the type of event delivered to auction subscribers
type EventType string

const (
	EventTypeNewBid       EventType = "bid.placed"
	EventTypeAuctionEnded EventType = "auction.ended"
	EventTypeUserJoined   EventType = "user.joined"
	EventTypeUserLeft     EventType = "user.left"
)

// Event represents a message delivered to all subscribers of one auction
type Event struct {
	Type      EventType              `json:"type"`
	AuctionID uuid.UUID              `json:"auction_id"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// Broadcaster fans events out to the live connections subscribed to an
// auction. Subscribing is idempotent; events for one auction are delivered
// in publish order, and a subscriber only ever receives events for auctions
// it has joined.
type Broadcaster interface {
	// Subscribe adds a client to an auction's group. All of a client's
	// subscriptions deliver into the same event channel.
	Subscribe(ctx context.Context, auctionID uuid.UUID, clientID string, eventChan chan Event) error

	// Unsubscribe removes a client from an auction's group. Best-effort:
	// unknown memberships are not an error.
	Unsubscribe(ctx context.Context, auctionID uuid.UUID, clientID string) error

	// Disconnect removes a client from every group it has joined
	Disconnect(ctx context.Context, clientID string) error

	// Publish delivers an event to every current subscriber of the auction
	Publish(ctx context.Context, auctionID uuid.UUID, event Event) error

	// IsSubscribed checks whether a client has joined an auction's group
	IsSubscribed(ctx context.Context, auctionID uuid.UUID, clientID string) bool

	// Close releases all subscriptions and backing resources
	Close() error
}
