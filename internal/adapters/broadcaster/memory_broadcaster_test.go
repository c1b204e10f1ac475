package broadcaster

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroadcaster() *MemoryBroadcaster {
	return NewMemoryBroadcaster(zerolog.Nop())
}

func bidEvent(auctionID uuid.UUID, amount float64) outbound.Event {
	return outbound.Event{
		Type:      outbound.EventTypeNewBid,
		AuctionID: auctionID,
		Data:      map[string]interface{}{"amount": amount},
	}
}

func drain(ch chan outbound.Event) []outbound.Event {
	var out []outbound.Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestSubscribeAndPublish(t *testing.T) {
	ctx := context.Background()
	b := newTestBroadcaster()
	defer b.Close()

	auctionID := uuid.New()
	ch := make(chan outbound.Event, 10)

	require.NoError(t, b.Subscribe(ctx, auctionID, "client-1", ch))
	assert.True(t, b.IsSubscribed(ctx, auctionID, "client-1"))

	require.NoError(t, b.Publish(ctx, auctionID, bidEvent(auctionID, 150)))

	events := drain(ch)
	require.Len(t, events, 1)
	assert.Equal(t, outbound.EventTypeNewBid, events[0].Type)
	assert.Equal(t, auctionID, events[0].AuctionID)
	assert.NotZero(t, events[0].Timestamp)
}

func TestSubscribe_Idempotent(t *testing.T) {
	ctx := context.Background()
	b := newTestBroadcaster()
	defer b.Close()

	auctionID := uuid.New()
	ch := make(chan outbound.Event, 10)

	require.NoError(t, b.Subscribe(ctx, auctionID, "client-1", ch))
	require.NoError(t, b.Subscribe(ctx, auctionID, "client-1", ch))

	require.NoError(t, b.Publish(ctx, auctionID, bidEvent(auctionID, 150)))
	assert.Len(t, drain(ch), 1, "double join must not double deliveries")

	// A single leave undoes the membership entirely
	require.NoError(t, b.Unsubscribe(ctx, auctionID, "client-1"))
	assert.False(t, b.IsSubscribed(ctx, auctionID, "client-1"))

	require.NoError(t, b.Publish(ctx, auctionID, bidEvent(auctionID, 160)))
	assert.Empty(t, drain(ch))
}

func TestUnsubscribe_UnknownMembershipIsNoOp(t *testing.T) {
	ctx := context.Background()
	b := newTestBroadcaster()
	defer b.Close()

	require.NoError(t, b.Unsubscribe(ctx, uuid.New(), "nobody"))
}

func TestPublish_NoCrossAuctionLeakage(t *testing.T) {
	ctx := context.Background()
	b := newTestBroadcaster()
	defer b.Close()

	auctionA := uuid.New()
	auctionB := uuid.New()

	chA := make(chan outbound.Event, 10)
	chB := make(chan outbound.Event, 10)
	chBoth := make(chan outbound.Event, 10)

	require.NoError(t, b.Subscribe(ctx, auctionA, "only-a", chA))
	require.NoError(t, b.Subscribe(ctx, auctionB, "only-b", chB))
	require.NoError(t, b.Subscribe(ctx, auctionA, "both", chBoth))
	require.NoError(t, b.Subscribe(ctx, auctionB, "both", chBoth))

	require.NoError(t, b.Publish(ctx, auctionA, bidEvent(auctionA, 150)))

	gotA := drain(chA)
	require.Len(t, gotA, 1)
	assert.Equal(t, auctionA, gotA[0].AuctionID)

	assert.Empty(t, drain(chB), "subscriber of another auction must see nothing")

	gotBoth := drain(chBoth)
	require.Len(t, gotBoth, 1)
	assert.Equal(t, auctionA, gotBoth[0].AuctionID)
}

func TestPublish_PerAuctionOrderPreserved(t *testing.T) {
	ctx := context.Background()
	b := newTestBroadcaster()
	defer b.Close()

	auctionID := uuid.New()
	ch := make(chan outbound.Event, 100)
	require.NoError(t, b.Subscribe(ctx, auctionID, "client-1", ch))

	for i := 1; i <= 20; i++ {
		require.NoError(t, b.Publish(ctx, auctionID, bidEvent(auctionID, float64(100+i))))
	}

	events := drain(ch)
	require.Len(t, events, 20)
	for i, e := range events {
		assert.Equal(t, float64(101+i), e.Data["amount"])
	}
}

// Concurrent publishers to one auction must not interleave their delivery
// loops: every subscriber sees the exact same event sequence.
func TestPublish_ConcurrentPublishersSameOrderForAll(t *testing.T) {
	ctx := context.Background()
	b := newTestBroadcaster()
	defer b.Close()

	const (
		publishers      = 4
		eventsPerPub    = 25
		subscriberCount = 8
	)
	total := publishers * eventsPerPub

	auctionID := uuid.New()
	channels := make([]chan outbound.Event, subscriberCount)
	for i := range channels {
		channels[i] = make(chan outbound.Event, total)
		require.NoError(t, b.Subscribe(ctx, auctionID, fmt.Sprintf("client-%d", i), channels[i]))
	}

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < eventsPerPub; i++ {
				event := outbound.Event{
					Type:      outbound.EventTypeNewBid,
					AuctionID: auctionID,
					Data:      map[string]interface{}{"tag": fmt.Sprintf("%d-%d", p, i)},
				}
				assert.NoError(t, b.Publish(ctx, auctionID, event))
			}
		}(p)
	}
	wg.Wait()

	sequence := func(ch chan outbound.Event) []string {
		var tags []string
		for _, e := range drain(ch) {
			tags = append(tags, e.Data["tag"].(string))
		}
		return tags
	}

	reference := sequence(channels[0])
	require.Len(t, reference, total)
	for i := 1; i < subscriberCount; i++ {
		assert.Equal(t, reference, sequence(channels[i]), "subscriber %d diverged from subscriber 0", i)
	}
}

func TestPublish_FullChannelDropsForThatClientOnly(t *testing.T) {
	ctx := context.Background()
	b := newTestBroadcaster()
	defer b.Close()

	auctionID := uuid.New()
	full := make(chan outbound.Event, 1)
	healthy := make(chan outbound.Event, 10)

	require.NoError(t, b.Subscribe(ctx, auctionID, "slow", full))
	require.NoError(t, b.Subscribe(ctx, auctionID, "fast", healthy))

	require.NoError(t, b.Publish(ctx, auctionID, bidEvent(auctionID, 110)))
	require.NoError(t, b.Publish(ctx, auctionID, bidEvent(auctionID, 120)))

	assert.Len(t, drain(full), 1, "overflow is dropped, not blocking")
	assert.Len(t, drain(healthy), 2, "healthy subscriber still receives everything")
}

func TestDisconnect_ReclaimsAllMemberships(t *testing.T) {
	ctx := context.Background()
	b := newTestBroadcaster()
	defer b.Close()

	auctions := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	ch := make(chan outbound.Event, 10)
	for _, id := range auctions {
		require.NoError(t, b.Subscribe(ctx, id, "client-1", ch))
	}

	require.NoError(t, b.Disconnect(ctx, "client-1"))

	for _, id := range auctions {
		assert.False(t, b.IsSubscribed(ctx, id, "client-1"))
		require.NoError(t, b.Publish(ctx, id, bidEvent(id, 150)))
	}
	assert.Empty(t, drain(ch))
}

func TestClose_RejectsFurtherOperations(t *testing.T) {
	ctx := context.Background()
	b := newTestBroadcaster()

	auctionID := uuid.New()
	ch := make(chan outbound.Event, 10)
	require.NoError(t, b.Subscribe(ctx, auctionID, "client-1", ch))

	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.Subscribe(ctx, auctionID, "client-2", ch), outbound.ErrBroadcasterClosed)
	assert.ErrorIs(t, b.Publish(ctx, auctionID, bidEvent(auctionID, 150)), outbound.ErrBroadcasterClosed)
	assert.False(t, b.IsSubscribed(ctx, auctionID, "client-1"))
}

func TestPublish_FansOutToManySubscribers(t *testing.T) {
	ctx := context.Background()
	b := newTestBroadcaster()
	defer b.Close()

	auctionID := uuid.New()
	channels := make([]chan outbound.Event, 25)
	for i := range channels {
		channels[i] = make(chan outbound.Event, 10)
		require.NoError(t, b.Subscribe(ctx, auctionID, fmt.Sprintf("client-%d", i), channels[i]))
	}

	require.NoError(t, b.Publish(ctx, auctionID, bidEvent(auctionID, 150)))

	for i, ch := range channels {
		assert.Len(t, drain(ch), 1, "subscriber %d missed the event", i)
	}
}
