package ws

import (
	"encoding/json"
	"fmt"
	"testing"

	"livebid-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientMessage(t *testing.T) {
	auctionID := uuid.New()

	t.Run("join message", func(t *testing.T) {
		raw := fmt.Sprintf(`{"type":"join_auction","auction_id":"%s"}`, auctionID)
		msg, err := ParseClientMessage([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, MessageTypeJoinAuction, msg.Type)
		require.NotNil(t, msg.AuctionID)
		assert.Equal(t, auctionID, *msg.AuctionID)
	})

	t.Run("ping without auction id", func(t *testing.T) {
		msg, err := ParseClientMessage([]byte(`{"type":"ping"}`))
		require.NoError(t, err)
		assert.Equal(t, MessageTypePing, msg.Type)
		assert.Nil(t, msg.AuctionID)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ParseClientMessage([]byte(`{"type":`))
		require.Error(t, err)
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := ParseClientMessage([]byte(`{"auction_id":"` + auctionID.String() + `"}`))
		require.ErrorIs(t, err, shared.ErrMessageTypeRequired)
	})
}

func TestClientMessageValidate(t *testing.T) {
	auctionID := uuid.New()
	nilID := uuid.Nil

	tests := []struct {
		name    string
		msg     ClientMessage
		wantErr error
	}{
		{
			name: "valid join",
			msg:  ClientMessage{Type: MessageTypeJoinAuction, AuctionID: &auctionID},
		},
		{
			name: "valid leave",
			msg:  ClientMessage{Type: MessageTypeLeaveAuction, AuctionID: &auctionID},
		},
		{
			name: "valid ping",
			msg:  ClientMessage{Type: MessageTypePing},
		},
		{
			name:    "join without auction id",
			msg:     ClientMessage{Type: MessageTypeJoinAuction},
			wantErr: shared.ErrAuctionIDRequired,
		},
		{
			name:    "join with nil auction id",
			msg:     ClientMessage{Type: MessageTypeJoinAuction, AuctionID: &nilID},
			wantErr: shared.ErrAuctionIDRequired,
		},
		{
			name:    "leave without auction id",
			msg:     ClientMessage{Type: MessageTypeLeaveAuction},
			wantErr: shared.ErrAuctionIDRequired,
		},
		{
			name:    "server-only type from client",
			msg:     ClientMessage{Type: MessageTypeNewBid, AuctionID: &auctionID},
			wantErr: shared.ErrUnknownMessageType,
		},
		{
			name:    "unknown type",
			msg:     ClientMessage{Type: "subscribe", AuctionID: &auctionID},
			wantErr: shared.ErrUnknownMessageType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewErrorMessage(t *testing.T) {
	auctionID := uuid.New()
	msg := NewErrorMessage("auction not found", &auctionID)

	assert.Equal(t, MessageTypeError, msg.Type)
	require.NotNil(t, msg.Error)
	assert.Equal(t, "auction not found", *msg.Error)
	assert.Equal(t, auctionID, *msg.AuctionID)
	assert.NotZero(t, msg.Timestamp)
}

func TestServerMessageJSONShape(t *testing.T) {
	msg := NewServerMessage(MessageTypeJoined)
	auctionID := uuid.New()
	msg.AuctionID = &auctionID
	msg.Data["message"] = "alice has joined the auction."

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "joined", decoded["type"])
	assert.Equal(t, auctionID.String(), decoded["auction_id"])
	assert.NotContains(t, decoded, "error", "empty error field is omitted")
}
