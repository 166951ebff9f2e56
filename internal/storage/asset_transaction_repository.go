package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/types"
)

// TransactionFilters narrows a user-scoped transaction query. All fields
// are optional.
type TransactionFilters struct {
	AssetID         string
	TransactionType *types.TransactionType
	StartDate       *time.Time
	EndDate         *time.Time
}

// AssetTransactionRepository handles the append-only asset ledger
type AssetTransactionRepository struct {
	db *PostgresDB
}

// NewAssetTransactionRepository creates a new asset transaction repository
func NewAssetTransactionRepository(db *PostgresDB) *AssetTransactionRepository {
	return &AssetTransactionRepository{db: db}
}

// Create appends a ledger entry
func (r *AssetTransactionRepository) Create(ctx context.Context, tx *models.AssetTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	tx.CreatedAt = time.Now()

	query := `
		INSERT INTO asset_transactions (
			id, asset_id, user_id, transaction_type, transaction_date,
			units, price_per_unit, fees, total_amount, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		tx.ID,
		tx.AssetID,
		tx.UserID,
		string(tx.TransactionType),
		tx.TransactionDate,
		tx.Units,
		tx.PricePerUnit,
		tx.Fees,
		tx.TotalAmount,
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create asset transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by ID. Returns (nil, nil) when absent.
func (r *AssetTransactionRepository) GetByID(ctx context.Context, id string) (*models.AssetTransaction, error) {
	query := selectTransactionColumns + ` WHERE id = $1`

	tx, err := scanAssetTransaction(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset transaction: %w", err)
	}

	return tx, nil
}

// ListByAsset retrieves the full ledger for one asset. Order is not part
// of the contract; the holdings reduction is order-independent.
func (r *AssetTransactionRepository) ListByAsset(ctx context.Context, assetID string) ([]*models.AssetTransaction, error) {
	query := selectTransactionColumns + ` WHERE asset_id = $1 ORDER BY transaction_date DESC`

	rows, err := r.db.Pool().Query(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list asset transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListByUser retrieves a filtered, paginated transaction history along
// with the unpaginated total.
func (r *AssetTransactionRepository) ListByUser(ctx context.Context, userID string, filters *TransactionFilters, limit, offset int) ([]*models.AssetTransaction, int, error) {
	where := ` WHERE user_id = $1`
	args := []interface{}{userID}

	if filters != nil {
		if filters.AssetID != "" {
			args = append(args, filters.AssetID)
			where += fmt.Sprintf(" AND asset_id = $%d", len(args))
		}
		if filters.TransactionType != nil {
			args = append(args, string(*filters.TransactionType))
			where += fmt.Sprintf(" AND transaction_type = $%d", len(args))
		}
		if filters.StartDate != nil {
			args = append(args, *filters.StartDate)
			where += fmt.Sprintf(" AND transaction_date >= $%d", len(args))
		}
		if filters.EndDate != nil {
			args = append(args, *filters.EndDate)
			where += fmt.Sprintf(" AND transaction_date <= $%d", len(args))
		}
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM asset_transactions` + where
	if err := r.db.Pool().QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count asset transactions: %w", err)
	}

	args = append(args, limit, offset)
	listQuery := selectTransactionColumns + where +
		fmt.Sprintf(" ORDER BY transaction_date DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Pool().Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list asset transactions: %w", err)
	}
	defer rows.Close()

	transactions, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

// Update rewrites a ledger entry. TotalAmount is expected to be
// recomputed by the caller whenever units, price or fees change.
func (r *AssetTransactionRepository) Update(ctx context.Context, tx *models.AssetTransaction) error {
	query := `
		UPDATE asset_transactions
		SET transaction_type = $2, transaction_date = $3, units = $4,
		    price_per_unit = $5, fees = $6, total_amount = $7
		WHERE id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		tx.ID,
		string(tx.TransactionType),
		tx.TransactionDate,
		tx.Units,
		tx.PricePerUnit,
		tx.Fees,
		tx.TotalAmount,
	)
	if err != nil {
		return fmt.Errorf("failed to update asset transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("asset transaction not found: %s", tx.ID)
	}

	return nil
}

// Delete removes a ledger entry
func (r *AssetTransactionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM asset_transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("asset transaction not found: %s", id)
	}
	return nil
}

const selectTransactionColumns = `
	SELECT id, asset_id, user_id, transaction_type, transaction_date,
	       units, price_per_unit, fees, total_amount, created_at
	FROM asset_transactions`

func scanAssetTransaction(row pgx.Row) (*models.AssetTransaction, error) {
	var tx models.AssetTransaction
	var txType string

	err := row.Scan(
		&tx.ID,
		&tx.AssetID,
		&tx.UserID,
		&txType,
		&tx.TransactionDate,
		&tx.Units,
		&tx.PricePerUnit,
		&tx.Fees,
		&tx.TotalAmount,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.TransactionType = types.TransactionType(txType)
	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]*models.AssetTransaction, error) {
	var transactions []*models.AssetTransaction
	for rows.Next() {
		tx, err := scanAssetTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
