package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// auctionChannel is the Redis pub/sub channel carrying one auction's events
func auctionChannel(auctionID uuid.UUID) string {
	return fmt.Sprintf("auction:%s", auctionID.String())
}

// RedisBroadcaster implements the broadcaster interface on Redis pub/sub so
// fan-out works across processes sharing one Redis. Each client gets a
// single PubSub connection subscribed to the channels of the auctions it
// joined; a goroutine forwards Redis messages into the client's local
// channel. Redis pub/sub preserves publish order per channel, so per-auction
// delivery order matches commit order.
type RedisBroadcaster struct {
	client         *redis.Client
	channels       map[string]chan outbound.Event // clientID -> local channel
	pubsubs        map[string]*redis.PubSub       // clientID -> pubsub conn
	clientAuctions map[string]map[uuid.UUID]bool  // clientID -> joined auctions
	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	logger         zerolog.Logger
}

type RedisBroadcasterParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

// NewRedisBroadcaster creates a Redis-backed broadcaster
func NewRedisBroadcaster(params RedisBroadcasterParams) *RedisBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisBroadcaster{
		client:         params.RedisClient,
		channels:       make(map[string]chan outbound.Event),
		pubsubs:        make(map[string]*redis.PubSub),
		clientAuctions: make(map[string]map[uuid.UUID]bool),
		ctx:            ctx,
		cancel:         cancel,
		logger:         params.Logger.With().Str("component", "redis_broadcaster").Logger(),
	}
}

// Subscribe adds a client to an auction's group. Idempotent for an existing
// membership.
func (r *RedisBroadcaster) Subscribe(ctx context.Context, auctionID uuid.UUID, clientID string, eventChan chan outbound.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clientAuctions[clientID][auctionID] {
		r.logger.Debug().
			Str("client_id", clientID).
			Str("auction_id", auctionID.String()).
			Msg("Client already subscribed to auction")
		return nil
	}

	if r.channels[clientID] == nil {
		r.channels[clientID] = eventChan
	}

	if r.clientAuctions[clientID] == nil {
		r.clientAuctions[clientID] = make(map[uuid.UUID]bool)
	}
	r.clientAuctions[clientID][auctionID] = true

	pubsub, exists := r.pubsubs[clientID]
	if !exists {
		pubsub = r.client.Subscribe(ctx)
		r.pubsubs[clientID] = pubsub

		go r.forwardMessages(pubsub, clientID, eventChan)
	}

	if err := pubsub.Subscribe(ctx, auctionChannel(auctionID)); err != nil {
		r.logger.Error().Err(err).
			Str("client_id", clientID).
			Str("auction_id", auctionID.String()).
			Msg("Failed to subscribe to Redis channel")
		return err
	}

	r.logger.Info().
		Str("client_id", clientID).
		Str("auction_id", auctionID.String()).
		Msg("Client subscribed to auction")
	return nil
}

// Unsubscribe removes a client from an auction's group
func (r *RedisBroadcaster) Unsubscribe(ctx context.Context, auctionID uuid.UUID, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeMembership(ctx, auctionID, clientID)

	r.logger.Info().
		Str("client_id", clientID).
		Str("auction_id", auctionID.String()).
		Msg("Client unsubscribed from auction")
	return nil
}

// Disconnect removes a client from every group it has joined and closes its
// PubSub connection.
func (r *RedisBroadcaster) Disconnect(ctx context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for auctionID := range r.clientAuctions[clientID] {
		r.removeMembership(ctx, auctionID, clientID)
	}

	r.logger.Debug().Str("client_id", clientID).Msg("Client memberships reclaimed")
	return nil
}

// removeMembership must be called with r.mu held
func (r *RedisBroadcaster) removeMembership(ctx context.Context, auctionID uuid.UUID, clientID string) {
	auctions, exists := r.clientAuctions[clientID]
	if !exists || !auctions[auctionID] {
		return
	}

	delete(auctions, auctionID)

	if len(auctions) > 0 {
		if pubsub, ok := r.pubsubs[clientID]; ok {
			if err := pubsub.Unsubscribe(ctx, auctionChannel(auctionID)); err != nil {
				r.logger.Error().Err(err).
					Str("client_id", clientID).
					Str("auction_id", auctionID.String()).
					Msg("Error unsubscribing from Redis channel")
			}
		}
		return
	}

	// Last membership gone: release the client's pubsub and channel
	delete(r.clientAuctions, clientID)
	delete(r.channels, clientID)
	if pubsub, ok := r.pubsubs[clientID]; ok {
		if err := pubsub.Close(); err != nil {
			r.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub")
		}
		delete(r.pubsubs, clientID)
	}
}

// Publish delivers an event to every subscriber of the auction via Redis
func (r *RedisBroadcaster) Publish(ctx context.Context, auctionID uuid.UUID, event outbound.Event) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := r.client.Publish(ctx, auctionChannel(auctionID), payload)
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}

	r.logger.Debug().
		Str("event_type", string(event.Type)).
		Str("auction_id", auctionID.String()).
		Int64("receivers", result.Val()).
		Msg("Published event to auction channel")
	return nil
}

// IsSubscribed checks whether a client has joined an auction's group
func (r *RedisBroadcaster) IsSubscribed(ctx context.Context, auctionID uuid.UUID, clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.clientAuctions[clientID][auctionID]
}

// forwardMessages forwards Redis messages into the client's local channel.
// A full local channel drops the event instead of stalling the pubsub reader.
func (r *RedisBroadcaster) forwardMessages(pubsub *redis.PubSub, clientID string, localChan chan outbound.Event) {
	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				r.logger.Debug().Str("client_id", clientID).Msg("Redis channel closed for client")
				return
			}

			var event outbound.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Error().Err(err).Str("client_id", clientID).Msg("Failed to unmarshal Redis message")
				continue
			}

			select {
			case localChan <- event:
			default:
				r.logger.Warn().
					Str("client_id", clientID).
					Str("event_type", string(event.Type)).
					Msg("Subscriber channel full, dropping event")
			}

		case <-r.ctx.Done():
			return
		}
	}
}

// Close releases every subscription and the Redis client
func (r *RedisBroadcaster) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	for clientID, pubsub := range r.pubsubs {
		if err := pubsub.Close(); err != nil {
			r.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub")
		}
		delete(r.pubsubs, clientID)
	}
	r.channels = make(map[string]chan outbound.Event)
	r.clientAuctions = make(map[string]map[uuid.UUID]bool)

	return r.client.Close()
}
