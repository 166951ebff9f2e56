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

// NotificationRepository handles the scheduled-notification queue
type NotificationRepository struct {
	db *PostgresDB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *PostgresDB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create enqueues a notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now()

	query := `
		INSERT INTO notifications (
			id, user_id, title, body, channel, status, scheduled_at, sent_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Body,
		n.Channel,
		string(n.Status),
		n.ScheduledAt,
		n.SentAt,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// GetByID retrieves a notification by ID. Returns (nil, nil) when absent.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	query := selectNotificationColumns + ` WHERE id = $1`

	n, err := scanNotification(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return n, nil
}

// ListByUser retrieves a user's notifications, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error) {
	query := selectNotificationColumns + `
		WHERE user_id = $1
		ORDER BY scheduled_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool().Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

// ListDue returns scheduled notifications whose delivery time has
// arrived, oldest first.
func (r *NotificationRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error) {
	query := selectNotificationColumns + `
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at ASC
		LIMIT $3
	`

	rows, err := r.db.Pool().Query(ctx, query, string(types.NotificationScheduled), now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due notifications: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

// UpdateStatus transitions a notification's delivery status, stamping
// sent_at when provided.
func (r *NotificationRepository) UpdateStatus(ctx context.Context, id string, status types.NotificationStatus, sentAt *time.Time) error {
	query := `
		UPDATE notifications
		SET status = $2, sent_at = $3
		WHERE id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query, id, string(status), sentAt)
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification not found: %s", id)
	}

	return nil
}

// Reschedule moves a scheduled notification's delivery time
func (r *NotificationRepository) Reschedule(ctx context.Context, id string, scheduledAt time.Time) error {
	query := `
		UPDATE notifications
		SET scheduled_at = $2
		WHERE id = $1 AND status = $3
	`

	tag, err := r.db.Pool().Exec(ctx, query, id, scheduledAt, string(types.NotificationScheduled))
	if err != nil {
		return fmt.Errorf("failed to reschedule notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification not found or not schedulable: %s", id)
	}

	return nil
}

const selectNotificationColumns = `
	SELECT id, user_id, title, body, channel, status, scheduled_at, sent_at, created_at
	FROM notifications`

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	var status string

	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Body,
		&n.Channel,
		&status,
		&n.ScheduledAt,
		&n.SentAt,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Status = types.NotificationStatus(status)
	return &n, nil
}

func collectNotifications(rows pgx.Rows) ([]*models.Notification, error) {
	var notifications []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
