package broadcaster

import (
	"context"
	"sync"
	"time"

	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MemoryBroadcaster implements the broadcaster interface with an in-process
// subscription registry. It is the single-process baseline; deployments with
// more than one process use the Redis broadcaster so fan-out crosses
// process boundaries.
type MemoryBroadcaster struct {
	mu             sync.RWMutex
	channels       map[string]chan outbound.Event  // clientID -> event channel
	groups         map[uuid.UUID]map[string]bool   // auctionID -> member clientIDs
	clientAuctions map[string]map[uuid.UUID]bool   // clientID -> joined auctionIDs
	closed         bool
	logger         zerolog.Logger
}

// NewMemoryBroadcaster creates an in-process broadcaster
func NewMemoryBroadcaster(logger zerolog.Logger) *MemoryBroadcaster {
	return &MemoryBroadcaster{
		channels:       make(map[string]chan outbound.Event),
		groups:         make(map[uuid.UUID]map[string]bool),
		clientAuctions: make(map[string]map[uuid.UUID]bool),
		logger:         logger.With().Str("component", "memory_broadcaster").Logger(),
	}
}

// Subscribe adds a client to an auction's group. Joining twice leaves a
// single membership; one Unsubscribe undoes it.
func (m *MemoryBroadcaster) Subscribe(ctx context.Context, auctionID uuid.UUID, clientID string, eventChan chan outbound.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return outbound.ErrBroadcasterClosed
	}

	if m.clientAuctions[clientID][auctionID] {
		m.logger.Debug().
			Str("client_id", clientID).
			Str("auction_id", auctionID.String()).
			Msg("Client already subscribed to auction")
		return nil
	}

	if m.channels[clientID] == nil {
		m.channels[clientID] = eventChan
	}

	if m.groups[auctionID] == nil {
		m.groups[auctionID] = make(map[string]bool)
	}
	m.groups[auctionID][clientID] = true

	if m.clientAuctions[clientID] == nil {
		m.clientAuctions[clientID] = make(map[uuid.UUID]bool)
	}
	m.clientAuctions[clientID][auctionID] = true

	m.logger.Info().
		Str("client_id", clientID).
		Str("auction_id", auctionID.String()).
		Msg("Client subscribed to auction")
	return nil
}

// Unsubscribe removes a client from an auction's group. Removing a
// membership that does not exist is a no-op.
func (m *MemoryBroadcaster) Unsubscribe(ctx context.Context, auctionID uuid.UUID, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeMembership(auctionID, clientID)

	m.logger.Info().
		Str("client_id", clientID).
		Str("auction_id", auctionID.String()).
		Msg("Client unsubscribed from auction")
	return nil
}

// Disconnect removes a client from every group it has joined
func (m *MemoryBroadcaster) Disconnect(ctx context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for auctionID := range m.clientAuctions[clientID] {
		m.removeMembership(auctionID, clientID)
	}
	delete(m.channels, clientID)

	m.logger.Debug().Str("client_id", clientID).Msg("Client memberships reclaimed")
	return nil
}

// removeMembership must be called with m.mu held
func (m *MemoryBroadcaster) removeMembership(auctionID uuid.UUID, clientID string) {
	if members, ok := m.groups[auctionID]; ok {
		delete(members, clientID)
		if len(members) == 0 {
			delete(m.groups, auctionID)
		}
	}

	if auctions, ok := m.clientAuctions[clientID]; ok {
		delete(auctions, auctionID)
		if len(auctions) == 0 {
			delete(m.clientAuctions, clientID)
			delete(m.channels, clientID)
		}
	}
}

// Publish delivers an event to every member of the auction's group and only
// that group. The exclusive lock serializes publishers, so the delivery loop
// runs to completion before the next event starts and every subscriber
// observes the same relative order of events per auction. A member whose
// channel is full has the event dropped rather than blocking the rest of
// the group.
func (m *MemoryBroadcaster) Publish(ctx context.Context, auctionID uuid.UUID, event outbound.Event) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return outbound.ErrBroadcasterClosed
	}

	delivered := 0
	for clientID := range m.groups[auctionID] {
		ch, ok := m.channels[clientID]
		if !ok {
			// Dead connection not yet reclaimed; treat as no-op
			continue
		}
		select {
		case ch <- event:
			delivered++
		default:
			m.logger.Warn().
				Str("client_id", clientID).
				Str("auction_id", auctionID.String()).
				Str("event_type", string(event.Type)).
				Msg("Subscriber channel full, dropping event")
		}
	}

	m.logger.Debug().
		Str("event_type", string(event.Type)).
		Str("auction_id", auctionID.String()).
		Int("delivered", delivered).
		Msg("Published event to auction group")
	return nil
}

// IsSubscribed checks whether a client has joined an auction's group
func (m *MemoryBroadcaster) IsSubscribed(ctx context.Context, auctionID uuid.UUID, clientID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.clientAuctions[clientID][auctionID]
}

// Close drops all memberships; subsequent operations fail
func (m *MemoryBroadcaster) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.channels = make(map[string]chan outbound.Event)
	m.groups = make(map[uuid.UUID]map[string]bool)
	m.clientAuctions = make(map[string]map[uuid.UUID]bool)
	return nil
}
