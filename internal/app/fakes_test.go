package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/bid"
	"livebid-service/internal/domain/shared"
	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
)

// fakeStore is an in-memory stand-in for the Postgres repositories. CommitBid
// reproduces the conditional-update discipline of the real repository so the
// pipeline's retry and no-lost-update behavior can be exercised under real
// goroutine concurrency.
type fakeStore struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*auction.Auction
	bids     []*bid.Bid
}

func newFakeStore() *fakeStore {
	return &fakeStore{auctions: make(map[uuid.UUID]*auction.Auction)}
}

func (s *fakeStore) putAuction(a *auction.Auction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *a
	s.auctions[a.ID] = &copied
}

func (s *fakeStore) auctionRepo() *fakeAuctionRepo { return &fakeAuctionRepo{store: s} }
func (s *fakeStore) bidRepo() *fakeBidRepo         { return &fakeBidRepo{store: s} }

type fakeAuctionRepo struct {
	store *fakeStore
}

func (r *fakeAuctionRepo) Create(ctx context.Context, a *auction.Auction) error {
	r.store.putAuction(a)
	return nil
}

// GetByID returns a copy: callers observe a snapshot, as with a real store
func (r *fakeAuctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a, ok := r.store.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAuctionRepo) List(ctx context.Context) ([]*auction.Auction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rank := map[auction.Status]int{
		auction.StatusActive:   0,
		auction.StatusPending:  1,
		auction.StatusFinished: 2,
	}

	var out []*auction.Auction
	for _, a := range r.store.auctions {
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if rank[out[i].Status] != rank[out[j].Status] {
			return rank[out[i].Status] < rank[out[j].Status]
		}
		return out[i].EndTime.Before(out[j].EndTime)
	})
	return out, nil
}

// MarkFinished is atomic under the store lock: first caller wins, as with
// the conditional update in the real repository
func (r *fakeAuctionRepo) MarkFinished(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a, ok := r.store.auctions[id]
	if !ok {
		return shared.ErrAuctionNotFound
	}
	if a.Status == auction.StatusFinished {
		return shared.ErrAuctionAlreadyFinished
	}
	a.Status = auction.StatusFinished
	a.UpdatedAt = time.Now()
	return nil
}

func (r *fakeAuctionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.auctions[id]; !ok {
		return shared.ErrAuctionNotFound
	}
	delete(r.store.auctions, id)

	kept := r.store.bids[:0]
	for _, b := range r.store.bids {
		if b.AuctionID != id {
			kept = append(kept, b)
		}
	}
	r.store.bids = kept
	return nil
}

type fakeBidRepo struct {
	store *fakeStore

	// conflictsBefore injects CAS conflicts on the first N commit attempts
	conflictMu      sync.Mutex
	conflictsBefore int
}

func (r *fakeBidRepo) injectConflicts(n int) {
	r.conflictMu.Lock()
	defer r.conflictMu.Unlock()
	r.conflictsBefore = n
}

func (r *fakeBidRepo) takeConflict() bool {
	r.conflictMu.Lock()
	defer r.conflictMu.Unlock()
	if r.conflictsBefore > 0 {
		r.conflictsBefore--
		return true
	}
	return false
}

func (r *fakeBidRepo) CommitBid(ctx context.Context, newBid *bid.Bid, expectedCurrentPrice float64) error {
	if r.takeConflict() {
		return shared.ErrPriceConflict
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a, ok := r.store.auctions[newBid.AuctionID]
	if !ok {
		return shared.ErrAuctionNotFound
	}
	if a.Status != auction.StatusActive {
		return shared.ErrAuctionClosed
	}
	if a.CurrentPrice != expectedCurrentPrice {
		return shared.ErrPriceConflict
	}
	if newBid.Amount <= a.CurrentPrice {
		return shared.ErrBidAmountTooLow
	}

	copied := *newBid
	r.store.bids = append(r.store.bids, &copied)
	a.CurrentPrice = newBid.Amount
	a.UpdatedAt = newBid.CreatedAt
	return nil
}

func (r *fakeBidRepo) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*bid.Bid
	for _, b := range r.store.bids {
		if b.AuctionID == auctionID {
			copied := *b
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeBidRepo) GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var best *bid.Bid
	for _, b := range r.store.bids {
		if b.AuctionID != auctionID {
			continue
		}
		if best == nil || b.Amount > best.Amount ||
			(b.Amount == best.Amount && b.CreatedAt.Before(best.CreatedAt)) {
			best = b
		}
	}
	if best == nil {
		return nil, shared.ErrNoBidsFound
	}
	copied := *best
	return &copied, nil
}

func (r *fakeBidRepo) GetByBidderID(ctx context.Context, bidderID uuid.UUID) ([]*bid.MyBid, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*bid.MyBid
	for _, b := range r.store.bids {
		if b.BidderID != bidderID {
			continue
		}
		entry := &bid.MyBid{Bid: *b}
		if a, ok := r.store.auctions[b.AuctionID]; ok {
			entry.AuctionItemName = a.ItemName
			entry.AuctionImageURL = a.ImageURL
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// fakeBroadcaster records published events in order
type fakeBroadcaster struct {
	mu          sync.Mutex
	events      []outbound.Event
	failPublish bool
}

func (f *fakeBroadcaster) Subscribe(ctx context.Context, auctionID uuid.UUID, clientID string, ch chan outbound.Event) error {
	return nil
}

func (f *fakeBroadcaster) Unsubscribe(ctx context.Context, auctionID uuid.UUID, clientID string) error {
	return nil
}

func (f *fakeBroadcaster) Disconnect(ctx context.Context, clientID string) error { return nil }

func (f *fakeBroadcaster) Publish(ctx context.Context, auctionID uuid.UUID, event outbound.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPublish {
		return shared.ErrBroadcastFailed
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeBroadcaster) IsSubscribed(ctx context.Context, auctionID uuid.UUID, clientID string) bool {
	return false
}

func (f *fakeBroadcaster) Close() error { return nil }

func (f *fakeBroadcaster) published() []outbound.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]outbound.Event, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeBroadcaster) publishedOfType(t outbound.EventType) []outbound.Event {
	var out []outbound.Event
	for _, e := range f.published() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
