package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kosha-finance/internal/models"
	"github.com/shopspring/decimal"
)

// LedgerRepository stores income or expense entries in ClickHouse. The
// two ledgers share a schema, so one repository serves both, bound to
// its table at construction.
type LedgerRepository struct {
	db    *ClickHouseDB
	table string
}

// NewIncomeRepository creates a ledger repository over income_entries
func NewIncomeRepository(db *ClickHouseDB) *LedgerRepository {
	return &LedgerRepository{db: db, table: "income_entries"}
}

// NewExpenseRepository creates a ledger repository over expense_entries
func NewExpenseRepository(db *ClickHouseDB) *LedgerRepository {
	return &LedgerRepository{db: db, table: "expense_entries"}
}

// Insert writes a single ledger entry
func (r *LedgerRepository) Insert(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.CreatedAt = time.Now()

	return r.InsertBatch(ctx, []*models.LedgerEntry{entry})
}

// InsertBatch writes ledger entries in a single ClickHouse batch.
// Used by the statement importers, which land hundreds of rows at once.
func (r *LedgerRepository) InsertBatch(ctx context.Context, entries []*models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, user_id, amount, category, description, occurred_at, source, created_at)
	`, r.table))
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	now := time.Now()
	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		if err := batch.Append(
			entry.ID,
			entry.UserID,
			entry.Amount,
			entry.Category,
			entry.Description,
			entry.OccurredAt,
			entry.Source,
			entry.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	return batch.Send()
}

// List returns a user's entries within [startDate, endDate], newest
// first, paginated.
func (r *LedgerRepository) List(ctx context.Context, userID string, startDate, endDate *time.Time, limit, offset int) ([]*models.LedgerEntry, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, amount, category, description, occurred_at, source, created_at
		FROM %s
		WHERE user_id = ?
	`, r.table)
	args := []interface{}{userID}

	if startDate != nil {
		query += " AND occurred_at >= ?"
		args = append(args, *startDate)
	}
	if endDate != nil {
		query += " AND occurred_at <= ?"
		args = append(args, *endDate)
	}

	query += " ORDER BY occurred_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Amount,
			&e.Category,
			&e.Description,
			&e.OccurredAt,
			&e.Source,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// Delete removes a user's entry by ID. ClickHouse deletes are
// asynchronous mutations; callers should not expect read-your-delete.
func (r *LedgerRepository) Delete(ctx context.Context, userID, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = ? AND id = ?`, r.table)

	if err := r.db.Conn().Exec(ctx, query, userID, id); err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}

	return nil
}

// Summary aggregates a user's entries within [startDate, endDate] into
// a grand total plus per-category and per-month breakdowns, computed in
// a single grouped query.
func (r *LedgerRepository) Summary(ctx context.Context, userID string, startDate, endDate *time.Time) (*models.LedgerSummary, error) {
	query := fmt.Sprintf(`
		SELECT category, formatDateTime(occurred_at, '%%Y-%%m') AS month, sum(amount) AS total
		FROM %s
		WHERE user_id = ?
	`, r.table)
	args := []interface{}{userID}

	if startDate != nil {
		query += " AND occurred_at >= ?"
		args = append(args, *startDate)
	}
	if endDate != nil {
		query += " AND occurred_at <= ?"
		args = append(args, *endDate)
	}

	query += " GROUP BY category, month"

	rows, err := r.db.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize ledger: %w", err)
	}
	defer rows.Close()

	summary := &models.LedgerSummary{
		Total:      decimal.Zero,
		ByCategory: make(map[string]decimal.Decimal),
		ByMonth:    make(map[string]decimal.Decimal),
	}

	for rows.Next() {
		var category, month string
		var total decimal.Decimal
		if err := rows.Scan(&category, &month, &total); err != nil {
			return nil, fmt.Errorf("failed to scan ledger summary row: %w", err)
		}
		summary.Total = summary.Total.Add(total)
		summary.ByCategory[category] = summary.ByCategory[category].Add(total)
		summary.ByMonth[month] = summary.ByMonth[month].Add(total)
	}

	return summary, rows.Err()
}

// MonthlyTotals returns per-month totals within [startDate, endDate],
// keyed by month in the same form MonthKey produces.
func (r *LedgerRepository) MonthlyTotals(ctx context.Context, userID string, startDate, endDate time.Time) (map[string]decimal.Decimal, error) {
	summary, err := r.Summary(ctx, userID, &startDate, &endDate)
	if err != nil {
		return nil, err
	}
	return summary.ByMonth, nil
}
