package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"livebid-service/internal/auth"
	"livebid-service/internal/config"
	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WsHandler upgrades connections, verifies the bearer credential passed as
// a query parameter (headers are not available at connect time), and routes
// join/leave messages into the subscription registry.
type WsHandler struct {
	clients       map[string]*WsClient
	clientsMu     sync.RWMutex
	eventChannels map[string]chan outbound.Event
	channelsMu    sync.RWMutex
	upgrader      websocket.Upgrader
	verifier      *auth.TokenVerifier
	broadcaster   outbound.Broadcaster
	logger        zerolog.Logger
}

type WsHandlerParams struct {
	Config      *config.Config
	Verifier    *auth.TokenVerifier
	Broadcaster outbound.Broadcaster
	Logger      zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params WsHandlerParams) *WsHandler {
	return &WsHandler{
		clients:       make(map[string]*WsClient),
		eventChannels: make(map[string]chan outbound.Event),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  params.Config.WebSocket.ReadBufferSize,
			WriteBufferSize: params.Config.WebSocket.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		verifier:    params.Verifier,
		broadcaster: params.Broadcaster,
		logger:      params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket handles WebSocket connection upgrades
func (h *WsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("access_token")
	if token == "" {
		http.Error(w, "access_token is required", http.StatusUnauthorized)
		return
	}

	identity, err := h.verifier.Verify(token)
	if err != nil {
		http.Error(w, "invalid access_token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(WsClientParams{
		Identity: identity,
		Conn:     conn,
		Handler:  h,
		Logger:   h.logger,
	})

	h.registerClient(client)
	h.createEventChannel(client.id)

	client.Start()

	go h.listenForClientEvents(client)

	go func() {
		<-client.ctx.Done()
		h.unregisterClient(client)
	}()

	h.logger.Info().
		Str("client_id", client.id).
		Str("username", identity.Username).
		Msg("WebSocket client connected")
}

func (h *WsHandler) createEventChannel(clientID string) chan outbound.Event {
	h.channelsMu.Lock()
	defer h.channelsMu.Unlock()

	if eventChan, exists := h.eventChannels[clientID]; exists {
		return eventChan
	}

	eventChan := make(chan outbound.Event, 100)
	h.eventChannels[clientID] = eventChan
	return eventChan
}

func (h *WsHandler) getEventChannel(clientID string) chan outbound.Event {
	h.channelsMu.RLock()
	defer h.channelsMu.RUnlock()

	return h.eventChannels[clientID]
}

// removeEventChannel drops the registry entry without closing the channel.
// A broadcaster forward goroutine draining its last buffered messages may
// still send into it; the abandoned channel is reclaimed by the collector
// once those senders finish.
func (h *WsHandler) removeEventChannel(clientID string) {
	h.channelsMu.Lock()
	defer h.channelsMu.Unlock()

	delete(h.eventChannels, clientID)
}

func (h *WsHandler) registerClient(client *WsClient) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[client.id] = client
}

func (h *WsHandler) unregisterClient(client *WsClient) {
	h.clientsMu.Lock()
	delete(h.clients, client.id)
	h.clientsMu.Unlock()

	// Reclaim group memberships before tearing down the event channel so a
	// broadcast racing the disconnect sees at worst a no-op member
	if err := h.broadcaster.Disconnect(context.Background(), client.id); err != nil {
		h.logger.Warn().Err(err).Str("client_id", client.id).Msg("Failed to reclaim subscriptions")
	}

	client.Stop()
	h.removeEventChannel(client.id)

	h.logger.Info().
		Str("client_id", client.id).
		Str("username", client.identity.Username).
		Msg("WebSocket client disconnected")
}

// listenForClientEvents forwards broadcast events to the client's socket
func (h *WsHandler) listenForClientEvents(client *WsClient) {
	eventChan := h.getEventChannel(client.id)
	if eventChan == nil {
		h.logger.Error().Str("client_id", client.id).Msg("No event channel found for client")
		return
	}

	for {
		select {
		case event := <-eventChan:
			if err := client.Send(convertEventToMessage(event)); err != nil {
				h.logger.Error().Err(err).
					Str("client_id", client.id).
					Str("event_type", string(event.Type)).
					Msg("Failed to deliver event to client")
			}

		case <-client.ctx.Done():
			return
		}
	}
}

// HandleClientMessage routes a validated client message
func (h *WsHandler) HandleClientMessage(client *WsClient, msg *ClientMessage) error {
	switch msg.Type {
	case MessageTypeJoinAuction:
		return h.handleJoin(client, *msg.AuctionID)

	case MessageTypeLeaveAuction:
		return h.handleLeave(client, *msg.AuctionID)

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func convertEventToMessage(event outbound.Event) *ServerMessage {
	msgType := map[outbound.EventType]MessageType{
		outbound.EventTypeNewBid:       MessageTypeNewBid,
		outbound.EventTypeAuctionEnded: MessageTypeAuctionEnded,
		outbound.EventTypeUserJoined:   MessageTypeUserJoined,
		outbound.EventTypeUserLeft:     MessageTypeUserLeft,
	}[event.Type]
	if msgType == "" {
		msgType = MessageTypeError
	}

	auctionID := event.AuctionID
	return &ServerMessage{
		Type:      msgType,
		AuctionID: &auctionID,
		Data:      event.Data,
		Timestamp: event.Timestamp,
	}
}

func (h *WsHandler) handleJoin(client *WsClient, auctionID uuid.UUID) error {
	ctx := context.Background()

	eventChan := h.getEventChannel(client.id)
	if eventChan == nil {
		return fmt.Errorf("no event channel for client")
	}

	alreadyJoined := h.broadcaster.IsSubscribed(ctx, auctionID, client.id)

	if err := h.broadcaster.Subscribe(ctx, auctionID, client.id, eventChan); err != nil {
		h.logger.Error().Err(err).
			Str("client_id", client.id).
			Str("auction_id", auctionID.String()).
			Msg("Failed to join auction group")
		return err
	}

	// Presence is advisory; announce first joins only so a repeated join
	// (idempotent at the registry) stays silent
	if !alreadyJoined {
		h.publishPresence(ctx, auctionID, outbound.EventTypeUserJoined,
			fmt.Sprintf("%s has joined the auction.", client.identity.Username))
	}

	response := NewServerMessage(MessageTypeJoined)
	response.AuctionID = &auctionID
	return client.Send(response)
}

func (h *WsHandler) handleLeave(client *WsClient, auctionID uuid.UUID) error {
	ctx := context.Background()

	wasJoined := h.broadcaster.IsSubscribed(ctx, auctionID, client.id)

	if err := h.broadcaster.Unsubscribe(ctx, auctionID, client.id); err != nil {
		return err
	}

	if wasJoined {
		h.publishPresence(ctx, auctionID, outbound.EventTypeUserLeft,
			fmt.Sprintf("%s has left the auction.", client.identity.Username))
	}

	response := NewServerMessage(MessageTypeLeft)
	response.AuctionID = &auctionID
	return client.Send(response)
}

// publishPresence sends a best-effort presence event; failures are logged
// and have no bearing on anything else
func (h *WsHandler) publishPresence(ctx context.Context, auctionID uuid.UUID, eventType outbound.EventType, message string) {
	event := outbound.Event{
		Type:      eventType,
		AuctionID: auctionID,
		Data:      map[string]interface{}{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := h.broadcaster.Publish(ctx, auctionID, event); err != nil {
		h.logger.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to publish presence event")
	}
}

// GetConnectedClients returns the number of connected clients
func (h *WsHandler) GetConnectedClients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
