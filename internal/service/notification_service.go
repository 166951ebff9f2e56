package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kosha-finance/internal/logging"
	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/types"
)

// NotificationRepository interface for the notification queue
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error)
	UpdateStatus(ctx context.Context, id string, status types.NotificationStatus, sentAt *time.Time) error
	Reschedule(ctx context.Context, id string, scheduledAt time.Time) error
}

// PreferencesRepository interface for notification preferences
type PreferencesRepository interface {
	Get(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	Upsert(ctx context.Context, p *models.NotificationPreferences) error
}

// NotificationSender delivers one notification over its channel.
// Channel dispatch mechanics live outside this service.
type NotificationSender interface {
	Send(ctx context.Context, n *models.Notification) error
}

// NotificationService owns scheduling and the do-not-disturb policy
type NotificationService struct {
	repo   NotificationRepository
	prefs  PreferencesRepository
	sender NotificationSender
	now    func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(repo NotificationRepository, prefs PreferencesRepository, sender NotificationSender) *NotificationService {
	return &NotificationService{
		repo:   repo,
		prefs:  prefs,
		sender: sender,
		now:    time.Now,
	}
}

// ScheduleInput represents a notification to enqueue
type ScheduleInput struct {
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Channel     string    `json:"channel"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

// IsInDNDWindow reports whether t falls inside the preferences' DND
// window. The window is ["HH:MM", "HH:MM"] and may span midnight; it
// applies only when both bounds are set and parse.
func IsInDNDWindow(prefs *models.NotificationPreferences, t time.Time) bool {
	start, end, ok := dndBounds(prefs)
	if !ok {
		return false
	}

	minute := t.Hour()*60 + t.Minute()
	if start <= end {
		return minute >= start && minute < end
	}
	// Window spans midnight, e.g. 22:00-07:00.
	return minute >= start || minute < end
}

// NextDeliveryTime returns the earliest time at or after t that falls
// outside the DND window: t itself when outside, otherwise the window's
// end today, or tomorrow when the end already passed.
func NextDeliveryTime(prefs *models.NotificationPreferences, t time.Time) time.Time {
	if !IsInDNDWindow(prefs, t) {
		return t
	}

	_, end, _ := dndBounds(prefs)
	release := time.Date(t.Year(), t.Month(), t.Day(), end/60, end%60, 0, 0, t.Location())
	if !release.After(t) {
		release = release.AddDate(0, 0, 1)
	}
	return release
}

func dndBounds(prefs *models.NotificationPreferences) (start, end int, ok bool) {
	if prefs == nil || prefs.DNDStart == nil || prefs.DNDEnd == nil {
		return 0, 0, false
	}
	start, err1 := parseClock(*prefs.DNDStart)
	end, err2 := parseClock(*prefs.DNDEnd)
	if err1 != nil || err2 != nil || start == end {
		return 0, 0, false
	}
	return start, end, true
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Schedule enqueues a notification, deferring its delivery time past
// the user's DND window when necessary.
func (s *NotificationService) Schedule(ctx context.Context, input *ScheduleInput) (*models.Notification, error) {
	if input.UserID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}
	if input.Title == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "title is required",
		}
	}

	scheduledAt := input.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = s.now()
	}

	prefs, err := s.prefs.Get(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	scheduledAt = NextDeliveryTime(prefs, scheduledAt)

	n := &models.Notification{
		UserID:      input.UserID,
		Title:       input.Title,
		Body:        input.Body,
		Channel:     input.Channel,
		Status:      types.NotificationScheduled,
		ScheduledAt: scheduledAt,
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to schedule notification: %w", err)
	}

	return n, nil
}

// ListNotifications returns a user's notifications, newest first
func (s *NotificationService) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error) {
	if userID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// GetPreferences returns a user's preferences, creating defaults on
// first read.
func (s *NotificationService) GetPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	if userID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}

	prefs, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	if prefs == nil {
		prefs = &models.NotificationPreferences{
			UserID:       userID,
			EmailEnabled: true,
			PushEnabled:  true,
		}
	}

	return prefs, nil
}

// UpdatePreferences saves a user's preferences after validating the DND
// bounds.
func (s *NotificationService) UpdatePreferences(ctx context.Context, prefs *models.NotificationPreferences) error {
	if prefs.UserID == "" {
		return &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}
	if (prefs.DNDStart == nil) != (prefs.DNDEnd == nil) {
		return &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "dndStart and dndEnd must be set together",
		}
	}
	if prefs.DNDStart != nil {
		if _, err := parseClock(*prefs.DNDStart); err != nil {
			return &types.ServiceError{
				Code:    "INVALID_INPUT",
				Message: "dndStart must be HH:MM",
			}
		}
		if _, err := parseClock(*prefs.DNDEnd); err != nil {
			return &types.ServiceError{
				Code:    "INVALID_INPUT",
				Message: "dndEnd must be HH:MM",
			}
		}
	}

	if err := s.prefs.Upsert(ctx, prefs); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}

	return nil
}

// DispatchDue releases notifications whose delivery time has arrived.
// A notification whose user is currently inside their DND window is
// pushed to the window's end instead of being sent. Returns the number
// actually sent.
func (s *NotificationService) DispatchDue(ctx context.Context, limit int) (int, error) {
	now := s.now()
	log := logging.FromContext(ctx)

	due, err := s.repo.ListDue(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list due notifications: %w", err)
	}

	sent := 0
	for _, n := range due {
		prefs, err := s.prefs.Get(ctx, n.UserID)
		if err != nil {
			log.WithError(err).WithField("notificationId", n.ID).Error("failed to load preferences, skipping")
			continue
		}

		if IsInDNDWindow(prefs, now) {
			release := NextDeliveryTime(prefs, now)
			if err := s.repo.Reschedule(ctx, n.ID, release); err != nil {
				log.WithError(err).WithField("notificationId", n.ID).Error("failed to defer notification")
			}
			continue
		}

		if err := s.sender.Send(ctx, n); err != nil {
			log.WithError(err).WithField("notificationId", n.ID).Error("notification delivery failed")
			if err := s.repo.UpdateStatus(ctx, n.ID, types.NotificationFailed, nil); err != nil {
				log.WithError(err).WithField("notificationId", n.ID).Error("failed to record delivery failure")
			}
			continue
		}

		sentAt := s.now()
		if err := s.repo.UpdateStatus(ctx, n.ID, types.NotificationSent, &sentAt); err != nil {
			log.WithError(err).WithField("notificationId", n.ID).Error("failed to record delivery")
			continue
		}
		sent++
	}

	return sent, nil
}
