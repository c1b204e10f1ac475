package bid

import (
	"math"
	"time"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/shared"
)

// Validate decides whether a proposed amount is an acceptable bid against
// the given auction snapshot. It is side-effect free and never blocks; the
// commit pipeline is the only caller allowed to act on an accept decision.
//
// Checks run in order: the auction must exist, the amount must be a positive
// finite number, the auction must be open for bidding at `now`, and the
// amount must strictly exceed the current price (a tie is rejected).
func Validate(snapshot *auction.Auction, amount float64, now time.Time) error {
	if snapshot == nil {
		return shared.ErrAuctionNotFound
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return shared.ErrBidAmountInvalid
	}
	if snapshot.IsFinished() || snapshot.HasEnded(now) {
		return shared.ErrAuctionClosed
	}
	if !snapshot.IsActive() || !snapshot.HasStarted(now) {
		return shared.ErrAuctionNotStarted
	}
	if amount <= snapshot.CurrentPrice {
		return shared.ErrBidAmountTooLow
	}
	return nil
}
