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

// AssetRepository handles asset persistence
type AssetRepository struct {
	db *PostgresDB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *PostgresDB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Create creates a new asset
func (r *AssetRepository) Create(ctx context.Context, asset *models.Asset) error {
	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}

	now := time.Now()
	asset.CreatedAt = now
	asset.UpdatedAt = now

	query := `
		INSERT INTO assets (id, user_id, symbol, type, name, institution, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		asset.ID,
		asset.UserID,
		asset.Symbol,
		string(asset.Type),
		asset.Name,
		asset.Institution,
		asset.CreatedAt,
		asset.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}

	return nil
}

// GetByID retrieves an asset by ID. Returns (nil, nil) when absent.
func (r *AssetRepository) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	query := `
		SELECT id, user_id, symbol, type, name, institution, created_at, updated_at
		FROM assets
		WHERE id = $1
	`

	asset, err := scanAsset(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	return asset, nil
}

// ListByUser retrieves all assets owned by a user, optionally filtered
// by asset type.
func (r *AssetRepository) ListByUser(ctx context.Context, userID string, assetType *types.AssetType) ([]*models.Asset, error) {
	query := `
		SELECT id, user_id, symbol, type, name, institution, created_at, updated_at
		FROM assets
		WHERE user_id = $1
	`
	args := []interface{}{userID}

	if assetType != nil {
		query += ` AND type = $2`
		args = append(args, string(*assetType))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*models.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}

	return assets, rows.Err()
}

// Update persists metadata edits on an asset
func (r *AssetRepository) Update(ctx context.Context, asset *models.Asset) error {
	asset.UpdatedAt = time.Now()

	query := `
		UPDATE assets
		SET symbol = $2, type = $3, name = $4, institution = $5, updated_at = $6
		WHERE id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		asset.ID,
		asset.Symbol,
		string(asset.Type),
		asset.Name,
		asset.Institution,
		asset.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("asset not found: %s", asset.ID)
	}

	return nil
}

func scanAsset(row pgx.Row) (*models.Asset, error) {
	var asset models.Asset
	var assetType string

	err := row.Scan(
		&asset.ID,
		&asset.UserID,
		&asset.Symbol,
		&assetType,
		&asset.Name,
		&asset.Institution,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	asset.Type = types.AssetType(assetType)
	return &asset, nil
}
