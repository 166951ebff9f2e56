package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLedgerRepo struct {
	entries []*models.LedgerEntry
	summary *models.LedgerSummary
}

func (m *mockLedgerRepo) Insert(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("entry-%d", len(m.entries)+1)
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockLedgerRepo) InsertBatch(ctx context.Context, entries []*models.LedgerEntry) error {
	for _, e := range entries {
		if err := m.Insert(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockLedgerRepo) List(ctx context.Context, userID string, startDate, endDate *time.Time, limit, offset int) ([]*models.LedgerEntry, error) {
	return m.entries, nil
}

func (m *mockLedgerRepo) Delete(ctx context.Context, userID, id string) error {
	return nil
}

func (m *mockLedgerRepo) Summary(ctx context.Context, userID string, startDate, endDate *time.Time) (*models.LedgerSummary, error) {
	if m.summary != nil {
		return m.summary, nil
	}
	return &models.LedgerSummary{
		Total:      decimal.Zero,
		ByCategory: map[string]decimal.Decimal{},
		ByMonth:    map[string]decimal.Decimal{},
	}, nil
}

func TestRecordEntry_Validation(t *testing.T) {
	svc := NewIncomeService(&mockLedgerRepo{}, nil)

	_, err := svc.RecordEntry(context.Background(), &RecordEntryInput{
		UserID:   "user-1",
		Amount:   decimal.NewFromInt(-5),
		Category: "salary",
	})

	var svcErr *types.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "INVALID_INPUT", svcErr.Code)
}

func TestRecordEntry_DefaultsOccurredAt(t *testing.T) {
	repo := &mockLedgerRepo{}
	svc := NewIncomeService(repo, nil)

	entry, err := svc.RecordEntry(context.Background(), &RecordEntryInput{
		UserID:   "user-1",
		Amount:   decimal.NewFromInt(100),
		Category: "salary",
	})
	require.NoError(t, err)
	assert.False(t, entry.OccurredAt.IsZero())
}

func TestExpenseSummary_BurnRate(t *testing.T) {
	repo := &mockLedgerRepo{
		summary: &models.LedgerSummary{
			Total:      decimal.NewFromInt(900),
			ByCategory: map[string]decimal.Decimal{},
			ByMonth:    map[string]decimal.Decimal{},
		},
	}
	svc := NewExpenseService(repo, nil)

	t.Run("bounded window divides by its days", func(t *testing.T) {
		start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 0, 10)

		summary, err := svc.GetSummary(context.Background(), "user-1", &start, &end)
		require.NoError(t, err)
		assert.True(t, summary.BurnRate.Equal(decimal.NewFromInt(90)), "burnRate = %s", summary.BurnRate)
	})

	t.Run("unbounded window divides by 30", func(t *testing.T) {
		summary, err := svc.GetSummary(context.Background(), "user-1", nil, nil)
		require.NoError(t, err)
		assert.True(t, summary.BurnRate.Equal(decimal.NewFromInt(30)), "burnRate = %s", summary.BurnRate)
	})
}

func TestImportStatements_NoSourceConfigured(t *testing.T) {
	svc := NewExpenseService(&mockLedgerRepo{}, nil)

	_, err := svc.ImportStatements(context.Background(), "user-1")

	var svcErr *types.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "DEPENDENCY_FAILURE", svcErr.Code)
}
