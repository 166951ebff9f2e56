package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kosha-finance/internal/models"
)

// PreferencesRepository stores per-user notification preferences
type PreferencesRepository struct {
	db *PostgresDB
}

// NewPreferencesRepository creates a new preferences repository
func NewPreferencesRepository(db *PostgresDB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// Get returns a user's preferences, or (nil, nil) when they have never
// been set.
func (r *PreferencesRepository) Get(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	query := `
		SELECT user_id, email_enabled, push_enabled, dnd_start, dnd_end, updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`

	var p models.NotificationPreferences
	err := r.db.Pool().QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.EmailEnabled,
		&p.PushEnabled,
		&p.DNDStart,
		&p.DNDEnd,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification preferences: %w", err)
	}

	return &p, nil
}

// Upsert writes a user's preferences, creating the row on first save
func (r *PreferencesRepository) Upsert(ctx context.Context, p *models.NotificationPreferences) error {
	p.UpdatedAt = time.Now()

	query := `
		INSERT INTO notification_preferences (user_id, email_enabled, push_enabled, dnd_start, dnd_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id)
		DO UPDATE SET email_enabled = EXCLUDED.email_enabled,
		              push_enabled = EXCLUDED.push_enabled,
		              dnd_start = EXCLUDED.dnd_start,
		              dnd_end = EXCLUDED.dnd_end,
		              updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Pool().Exec(ctx, query,
		p.UserID,
		p.EmailEnabled,
		p.PushEnabled,
		p.DNDStart,
		p.DNDEnd,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert notification preferences: %w", err)
	}

	return nil
}
