package db

import (
	"context"
	"database/sql"
	"fmt"

	"livebid-service/internal/domain/bid"
	"livebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// BidRepository implements the bid repository interface
type BidRepository struct {
	conn *Connection
}

// NewBidRepository creates a new bid repository
func NewBidRepository(conn *Connection) *BidRepository {
	return &BidRepository{conn: conn}
}

const bidColumns = `id, auction_id, bidder_id, bidder_name, amount, created_at`

func scanBid(row interface{ Scan(...interface{}) error }) (*bid.Bid, error) {
	var b bid.Bid
	err := row.Scan(
		&b.ID,
		&b.AuctionID,
		&b.BidderID,
		&b.BidderName,
		&b.Amount,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByAuctionID retrieves all bids for an auction, newest first
func (r *BidRepository) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return bids, nil
}

// GetHighestBid retrieves the winning bid for an auction. Amount is the
// primary key and earliest commit breaks ties, though with strict-improvement
// validation the latest bid is always also the highest.
func (r *BidRepository) GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, created_at ASC
		LIMIT 1
	`

	b, err := scanBid(r.conn.GetDB().QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrNoBidsFound
		}
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}

	return b, nil
}

// GetByBidderID retrieves a bidder's bids joined with the auction's display
// attributes, newest first.
func (r *BidRepository) GetByBidderID(ctx context.Context, bidderID uuid.UUID) ([]*bid.MyBid, error) {
	query := `
		SELECT b.id, b.auction_id, b.bidder_id, b.bidder_name, b.amount, b.created_at,
		       a.item_name, a.image_url
		FROM bids b
		JOIN auctions a ON a.id = b.auction_id
		WHERE b.bidder_id = $1
		ORDER BY b.created_at DESC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, bidderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids by bidder: %w", err)
	}
	defer rows.Close()

	var bids []*bid.MyBid
	for rows.Next() {
		var b bid.MyBid
		err := rows.Scan(
			&b.ID,
			&b.AuctionID,
			&b.BidderID,
			&b.BidderName,
			&b.Amount,
			&b.CreatedAt,
			&b.AuctionItemName,
			&b.AuctionImageURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, &b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return bids, nil
}

/*
CommitBid commits a bid with optimistic concurrency control:
 1. Re-read the auction's current price and status inside the transaction
 2. Fail when the price no longer matches what the caller validated against
 3. Insert the bid row and conditionally raise current_price in one unit
 4. Treat zero affected rows on the conditional update as a lost race
*/
func (r *BidRepository) CommitBid(ctx context.Context, newBid *bid.Bid, expectedCurrentPrice float64) error {
	return r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		auctionQuery := `
			SELECT current_price, status
			FROM auctions
			WHERE id = $1
		`

		var dbCurrentPrice float64
		var status string
		err := tx.QueryRowContext(ctx, auctionQuery, newBid.AuctionID).Scan(&dbCurrentPrice, &status)
		if err != nil {
			if err == sql.ErrNoRows {
				return shared.ErrAuctionNotFound
			}
			return fmt.Errorf("failed to read auction for commit: %w", err)
		}

		if status != "active" {
			return shared.ErrAuctionClosed
		}

		if dbCurrentPrice != expectedCurrentPrice {
			return shared.ErrPriceConflict
		}

		if newBid.Amount <= dbCurrentPrice {
			return shared.ErrBidAmountTooLow
		}

		insertQuery := `
			INSERT INTO bids (` + bidColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6)
		`

		_, err = tx.ExecContext(ctx, insertQuery,
			newBid.ID,
			newBid.AuctionID,
			newBid.BidderID,
			newBid.BidderName,
			newBid.Amount,
			newBid.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bid: %w", err)
		}

		// The expected price in the WHERE clause guards against a concurrent
		// commit between the read above and this update
		updateQuery := `
			UPDATE auctions
			SET current_price = $2, updated_at = $3
			WHERE id = $1 AND current_price = $4
		`

		result, err := tx.ExecContext(ctx, updateQuery,
			newBid.AuctionID,
			newBid.Amount,
			newBid.CreatedAt,
			expectedCurrentPrice,
		)
		if err != nil {
			return fmt.Errorf("failed to update auction price: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return shared.ErrPriceConflict
		}

		return nil
	})
}
