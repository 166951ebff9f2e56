package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kosha-finance/internal/models"
)

// PriceRepository stores manually recorded and provider-fetched asset prices
type PriceRepository struct {
	db *PostgresDB
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *PostgresDB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Upsert records a price point, replacing any existing price for the
// same (symbol, date) pair.
func (r *PriceRepository) Upsert(ctx context.Context, price *models.AssetPrice) error {
	if price.ID == "" {
		price.ID = uuid.New().String()
	}

	query := `
		INSERT INTO asset_prices (id, symbol, price, date, source)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol, date)
		DO UPDATE SET price = EXCLUDED.price, source = EXCLUDED.source
	`

	_, err := r.db.Pool().Exec(ctx, query,
		price.ID,
		price.Symbol,
		price.Price,
		price.Date,
		price.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert asset price: %w", err)
	}

	return nil
}

// GetLatest returns the most recent price for a symbol, or (nil, nil)
// when no price has ever been recorded.
func (r *PriceRepository) GetLatest(ctx context.Context, symbol string) (*models.AssetPrice, error) {
	query := `
		SELECT id, symbol, price, date, source
		FROM asset_prices
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT 1
	`

	var price models.AssetPrice
	err := r.db.Pool().QueryRow(ctx, query, symbol).Scan(
		&price.ID,
		&price.Symbol,
		&price.Price,
		&price.Date,
		&price.Source,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}

	return &price, nil
}

// History returns price points for a symbol within [startDate, endDate],
// ascending by date.
func (r *PriceRepository) History(ctx context.Context, symbol string, startDate, endDate time.Time) ([]models.PricePoint, error) {
	query := `
		SELECT date, price
		FROM asset_prices
		WHERE symbol = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, symbol, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Date, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}
