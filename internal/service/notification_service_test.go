package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotificationRepo struct {
	notifications map[string]*models.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{notifications: make(map[string]*models.Notification)}
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = fmt.Sprintf("notif-%d", len(m.notifications)+1)
	}
	m.notifications[n.ID] = n
	return nil
}

func (m *mockNotificationRepo) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	return m.notifications[id], nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error) {
	var result []*models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *mockNotificationRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error) {
	var result []*models.Notification
	for _, n := range m.notifications {
		if n.Status == types.NotificationScheduled && !n.ScheduledAt.After(now) {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *mockNotificationRepo) UpdateStatus(ctx context.Context, id string, status types.NotificationStatus, sentAt *time.Time) error {
	m.notifications[id].Status = status
	m.notifications[id].SentAt = sentAt
	return nil
}

func (m *mockNotificationRepo) Reschedule(ctx context.Context, id string, scheduledAt time.Time) error {
	m.notifications[id].ScheduledAt = scheduledAt
	return nil
}

type mockPrefsRepo struct {
	prefs map[string]*models.NotificationPreferences
}

func newMockPrefsRepo() *mockPrefsRepo {
	return &mockPrefsRepo{prefs: make(map[string]*models.NotificationPreferences)}
}

func (m *mockPrefsRepo) Get(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	return m.prefs[userID], nil
}

func (m *mockPrefsRepo) Upsert(ctx context.Context, p *models.NotificationPreferences) error {
	m.prefs[p.UserID] = p
	return nil
}

type mockSender struct {
	sent []string
	fail bool
}

func (m *mockSender) Send(ctx context.Context, n *models.Notification) error {
	if m.fail {
		return fmt.Errorf("channel unavailable")
	}
	m.sent = append(m.sent, n.ID)
	return nil
}

func strPtr(s string) *string { return &s }

func dndPrefs(userID, start, end string) *models.NotificationPreferences {
	return &models.NotificationPreferences{
		UserID:   userID,
		DNDStart: strPtr(start),
		DNDEnd:   strPtr(end),
	}
}

func TestIsInDNDWindow(t *testing.T) {
	at := func(hour, minute int) time.Time {
		return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name  string
		prefs *models.NotificationPreferences
		t     time.Time
		want  bool
	}{
		{"no preferences", nil, at(23, 0), false},
		{"window unset", &models.NotificationPreferences{UserID: "u"}, at(23, 0), false},
		{"inside simple window", dndPrefs("u", "13:00", "15:00"), at(14, 0), true},
		{"outside simple window", dndPrefs("u", "13:00", "15:00"), at(16, 0), false},
		{"window end exclusive", dndPrefs("u", "13:00", "15:00"), at(15, 0), false},
		{"spans midnight, late evening", dndPrefs("u", "22:00", "07:00"), at(23, 30), true},
		{"spans midnight, early morning", dndPrefs("u", "22:00", "07:00"), at(6, 59), true},
		{"spans midnight, daytime", dndPrefs("u", "22:00", "07:00"), at(12, 0), false},
		{"malformed bounds ignored", dndPrefs("u", "25:99", "07:00"), at(23, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInDNDWindow(tt.prefs, tt.t))
		})
	}
}

func TestNextDeliveryTime(t *testing.T) {
	prefs := dndPrefs("u", "22:00", "07:00")

	t.Run("outside window returns input", func(t *testing.T) {
		at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		assert.Equal(t, at, NextDeliveryTime(prefs, at))
	})

	t.Run("evening defers to next morning", func(t *testing.T) {
		at := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
		want := time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC)
		assert.Equal(t, want, NextDeliveryTime(prefs, at))
	})

	t.Run("early morning defers to same-day end", func(t *testing.T) {
		at := time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC)
		want := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
		assert.Equal(t, want, NextDeliveryTime(prefs, at))
	})
}

func TestSchedule_DefersIntoDNDWindow(t *testing.T) {
	repo := newMockNotificationRepo()
	prefsRepo := newMockPrefsRepo()
	prefsRepo.prefs["user-1"] = dndPrefs("user-1", "22:00", "07:00")

	svc := NewNotificationService(repo, prefsRepo, &mockSender{})

	n, err := svc.Schedule(context.Background(), &ScheduleInput{
		UserID:      "user-1",
		Title:       "Bill due tomorrow",
		Channel:     "push",
		ScheduledAt: time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC), n.ScheduledAt)
	assert.Equal(t, types.NotificationScheduled, n.Status)
}

func TestDispatchDue_SendsAndDefersPerDND(t *testing.T) {
	repo := newMockNotificationRepo()
	prefsRepo := newMockPrefsRepo()
	sender := &mockSender{}
	svc := NewNotificationService(repo, prefsRepo, sender)

	now := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// user-free has no DND; user-dnd is inside 22:00-07:00 at dispatch time.
	prefsRepo.prefs["user-dnd"] = dndPrefs("user-dnd", "22:00", "07:00")

	free := &models.Notification{UserID: "user-free", Title: "t", Status: types.NotificationScheduled, ScheduledAt: now.Add(-time.Minute)}
	deferred := &models.Notification{UserID: "user-dnd", Title: "t", Status: types.NotificationScheduled, ScheduledAt: now.Add(-time.Minute)}
	require.NoError(t, repo.Create(context.Background(), free))
	require.NoError(t, repo.Create(context.Background(), deferred))

	sent, err := svc.DispatchDue(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, types.NotificationSent, repo.notifications[free.ID].Status)
	require.NotNil(t, repo.notifications[free.ID].SentAt)

	got := repo.notifications[deferred.ID]
	assert.Equal(t, types.NotificationScheduled, got.Status)
	assert.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC), got.ScheduledAt)
}

func TestDispatchDue_DeliveryFailureRecorded(t *testing.T) {
	repo := newMockNotificationRepo()
	svc := NewNotificationService(repo, newMockPrefsRepo(), &mockSender{fail: true})

	n := &models.Notification{UserID: "user-1", Title: "t", Status: types.NotificationScheduled, ScheduledAt: time.Now().Add(-time.Minute)}
	require.NoError(t, repo.Create(context.Background(), n))

	sent, err := svc.DispatchDue(context.Background(), 10)
	require.NoError(t, err)

	assert.Zero(t, sent)
	assert.Equal(t, types.NotificationFailed, repo.notifications[n.ID].Status)
}

func TestUpdatePreferences_ValidatesDNDBounds(t *testing.T) {
	svc := NewNotificationService(newMockNotificationRepo(), newMockPrefsRepo(), &mockSender{})

	err := svc.UpdatePreferences(context.Background(), &models.NotificationPreferences{
		UserID:   "user-1",
		DNDStart: strPtr("22:00"),
	})
	require.Error(t, err)

	err = svc.UpdatePreferences(context.Background(), &models.NotificationPreferences{
		UserID:   "user-1",
		DNDStart: strPtr("nope"),
		DNDEnd:   strPtr("07:00"),
	})
	require.Error(t, err)

	err = svc.UpdatePreferences(context.Background(), dndPrefs("user-1", "22:00", "07:00"))
	require.NoError(t, err)
}
