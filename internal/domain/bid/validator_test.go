package bid

import (
	"math"
	"testing"
	"time"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAuction(now time.Time) *auction.Auction {
	return &auction.Auction{
		ID:            uuid.New(),
		ItemName:      "Vintage Camera",
		StartingPrice: 100,
		CurrentPrice:  100,
		StartTime:     now.Add(-time.Hour),
		EndTime:       now.Add(time.Hour),
		Status:        auction.StatusActive,
	}
}

func TestValidate_AcceptsStrictImprovement(t *testing.T) {
	now := time.Now()
	a := openAuction(now)

	require.NoError(t, Validate(a, 100.01, now))
	require.NoError(t, Validate(a, 1_000_000, now))
}

func TestValidate_Rejections(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		amount  float64
		mutate  func(a *auction.Auction)
		wantErr error
	}{
		{
			name:    "below current price",
			amount:  99,
			wantErr: shared.ErrBidAmountTooLow,
		},
		{
			name:    "tie with current price",
			amount:  100,
			wantErr: shared.ErrBidAmountTooLow,
		},
		{
			name:    "zero amount",
			amount:  0,
			wantErr: shared.ErrBidAmountInvalid,
		},
		{
			name:    "negative amount",
			amount:  -5,
			wantErr: shared.ErrBidAmountInvalid,
		},
		{
			name:    "NaN amount",
			amount:  math.NaN(),
			wantErr: shared.ErrBidAmountInvalid,
		},
		{
			name:    "infinite amount",
			amount:  math.Inf(1),
			wantErr: shared.ErrBidAmountInvalid,
		},
		{
			name:    "finished auction",
			amount:  150,
			mutate:  func(a *auction.Auction) { a.Status = auction.StatusFinished },
			wantErr: shared.ErrAuctionClosed,
		},
		{
			name:    "end time passed with stale active status",
			amount:  150,
			mutate:  func(a *auction.Auction) { a.EndTime = now.Add(-time.Second) },
			wantErr: shared.ErrAuctionClosed,
		},
		{
			name:    "end time exactly now",
			amount:  150,
			mutate:  func(a *auction.Auction) { a.EndTime = now },
			wantErr: shared.ErrAuctionClosed,
		},
		{
			name:    "pending auction",
			amount:  150,
			mutate:  func(a *auction.Auction) { a.Status = auction.StatusPending },
			wantErr: shared.ErrAuctionNotStarted,
		},
		{
			name:    "start time not reached",
			amount:  150,
			mutate:  func(a *auction.Auction) { a.StartTime = now.Add(time.Minute) },
			wantErr: shared.ErrAuctionNotStarted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := openAuction(now)
			if tt.mutate != nil {
				tt.mutate(a)
			}
			assert.ErrorIs(t, Validate(a, tt.amount, now), tt.wantErr)
		})
	}
}

func TestValidate_NilSnapshot(t *testing.T) {
	assert.ErrorIs(t, Validate(nil, 150, time.Now()), shared.ErrAuctionNotFound)
}

// A finished auction is reported closed even when its times would admit a
// bid, and an invalid amount is reported before any lifecycle error.
func TestValidate_CheckOrder(t *testing.T) {
	now := time.Now()

	a := openAuction(now)
	a.Status = auction.StatusFinished
	assert.ErrorIs(t, Validate(a, 150, now), shared.ErrAuctionClosed)
	assert.ErrorIs(t, Validate(a, -1, now), shared.ErrBidAmountInvalid)
}
