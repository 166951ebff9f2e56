package models

import (
	"time"

	"github.com/kosha-finance/internal/types"
)

// Notification represents a scheduled user notification
type Notification struct {
	ID          string                   `json:"id" db:"id"`
	UserID      string                   `json:"userId" db:"user_id"`
	Title       string                   `json:"title" db:"title"`
	Body        string                   `json:"body" db:"body"`
	Channel     string                   `json:"channel" db:"channel"`
	Status      types.NotificationStatus `json:"status" db:"status"`
	ScheduledAt time.Time                `json:"scheduledAt" db:"scheduled_at"`
	SentAt      *time.Time               `json:"sentAt,omitempty" db:"sent_at"`
	CreatedAt   time.Time                `json:"createdAt" db:"created_at"`
}

// NotificationPreferences holds a user's delivery preferences. DNDStart
// and DNDEnd are "HH:MM" local times; the window may span midnight. Both
// must be set for the window to apply.
type NotificationPreferences struct {
	UserID       string    `json:"userId" db:"user_id"`
	EmailEnabled bool      `json:"emailEnabled" db:"email_enabled"`
	PushEnabled  bool      `json:"pushEnabled" db:"push_enabled"`
	DNDStart     *string   `json:"dndStart,omitempty" db:"dnd_start"`
	DNDEnd       *string   `json:"dndEnd,omitempty" db:"dnd_end"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
