package db

import (
	"context"
	"database/sql"
	"fmt"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// AuctionRepository implements the auction repository interface
type AuctionRepository struct {
	conn *Connection
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(conn *Connection) *AuctionRepository {
	return &AuctionRepository{conn: conn}
}

const auctionColumns = `id, item_name, description, image_url, starting_price, current_price, start_time, end_time, status, created_at, updated_at`

func scanAuction(row interface{ Scan(...interface{}) error }) (*auction.Auction, error) {
	var a auction.Auction
	err := row.Scan(
		&a.ID,
		&a.ItemName,
		&a.Description,
		&a.ImageURL,
		&a.StartingPrice,
		&a.CurrentPrice,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create creates a new auction
func (r *AuctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		a.ID,
		a.ItemName,
		a.Description,
		a.ImageURL,
		a.StartingPrice,
		a.CurrentPrice,
		a.StartTime,
		a.EndTime,
		a.Status,
		a.CreatedAt,
		a.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}

	return nil
}

// GetByID retrieves an auction by ID
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	a, err := scanAuction(r.conn.GetDB().QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	return a, nil
}

// List retrieves all auctions, active first, then pending, then finished,
// each group ordered by end time ascending.
func (r *AuctionRepository) List(ctx context.Context) ([]*auction.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		ORDER BY
			CASE status
				WHEN 'active' THEN 0
				WHEN 'pending' THEN 1
				ELSE 2
			END,
			end_time ASC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}

	return auctions, nil
}

// MarkFinished transitions an auction to finished. The status guard in the
// WHERE clause makes the transition first-writer-wins, so two sweepers or a
// sweep racing a lazy read cannot both claim the transition.
func (r *AuctionRepository) MarkFinished(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE auctions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status <> $2
	`

	result, err := r.conn.GetDB().ExecContext(ctx, query, id, auction.StatusFinished)
	if err != nil {
		return fmt.Errorf("failed to finish auction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists bool
		err := r.conn.GetDB().QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM auctions WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check auction existence: %w", err)
		}
		if !exists {
			return shared.ErrAuctionNotFound
		}
		return shared.ErrAuctionAlreadyFinished
	}

	return nil
}

// Delete removes an auction and its bids in one transaction. The bids table
// also carries ON DELETE CASCADE; the explicit delete keeps the invariant
// independent of schema deployment order.
func (r *AuctionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bids WHERE auction_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete bids: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM auctions WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete auction: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return shared.ErrAuctionNotFound
		}

		return nil
	})
}
