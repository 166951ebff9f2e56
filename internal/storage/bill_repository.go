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

// BillFilters narrows a user-scoped bill query
type BillFilters struct {
	Status    *types.BillStatus
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
}

// BillRepository handles bill persistence
type BillRepository struct {
	db *PostgresDB
}

// NewBillRepository creates a new bill repository
func NewBillRepository(db *PostgresDB) *BillRepository {
	return &BillRepository{db: db}
}

// Create inserts a bill
func (r *BillRepository) Create(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	now := time.Now()
	bill.CreatedAt = now
	bill.UpdatedAt = now

	query := `
		INSERT INTO bills (
			id, user_id, provider, category, amount, due_date,
			status, source, payment_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		bill.ID,
		bill.UserID,
		bill.Provider,
		bill.Category,
		bill.Amount,
		bill.DueDate,
		string(bill.Status),
		bill.Source,
		bill.PaymentID,
		bill.CreatedAt,
		bill.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}

	return nil
}

// GetByID retrieves a bill by ID. Returns (nil, nil) when absent.
func (r *BillRepository) GetByID(ctx context.Context, id string) (*models.Bill, error) {
	query := selectBillColumns + ` WHERE id = $1`

	bill, err := scanBill(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	return bill, nil
}

// ListByUser retrieves a filtered, paginated bill list with the
// unpaginated total.
func (r *BillRepository) ListByUser(ctx context.Context, userID string, filters *BillFilters, limit, offset int) ([]*models.Bill, int, error) {
	where := ` WHERE user_id = $1`
	args := []interface{}{userID}

	if filters != nil {
		if filters.Status != nil {
			args = append(args, string(*filters.Status))
			where += fmt.Sprintf(" AND status = $%d", len(args))
		}
		if filters.Category != "" {
			args = append(args, filters.Category)
			where += fmt.Sprintf(" AND category = $%d", len(args))
		}
		if filters.StartDate != nil {
			args = append(args, *filters.StartDate)
			where += fmt.Sprintf(" AND due_date >= $%d", len(args))
		}
		if filters.EndDate != nil {
			args = append(args, *filters.EndDate)
			where += fmt.Sprintf(" AND due_date <= $%d", len(args))
		}
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM bills` + where
	if err := r.db.Pool().QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bills: %w", err)
	}

	args = append(args, limit, offset)
	listQuery := selectBillColumns + where +
		fmt.Sprintf(" ORDER BY due_date ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Pool().Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	bills, err := collectBills(rows)
	if err != nil {
		return nil, 0, err
	}

	return bills, total, nil
}

// ListUpcoming returns unpaid bills due between now and now+days,
// ascending by due date.
func (r *BillRepository) ListUpcoming(ctx context.Context, userID string, days int) ([]*models.Bill, error) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, days)

	query := selectBillColumns + `
		WHERE user_id = $1 AND status != $2 AND due_date >= $3 AND due_date <= $4
		ORDER BY due_date ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, userID, string(types.BillPaid), now, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming bills: %w", err)
	}
	defer rows.Close()

	return collectBills(rows)
}

// ListByStatus returns every bill for a user in the given status
func (r *BillRepository) ListByStatus(ctx context.Context, userID string, status types.BillStatus) ([]*models.Bill, error) {
	query := selectBillColumns + ` WHERE user_id = $1 AND status = $2 ORDER BY due_date ASC`

	rows, err := r.db.Pool().Query(ctx, query, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list bills by status: %w", err)
	}
	defer rows.Close()

	return collectBills(rows)
}

// Update rewrites a bill's mutable fields
func (r *BillRepository) Update(ctx context.Context, bill *models.Bill) error {
	bill.UpdatedAt = time.Now()

	query := `
		UPDATE bills
		SET provider = $2, category = $3, amount = $4, due_date = $5,
		    status = $6, payment_id = $7, updated_at = $8
		WHERE id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		bill.ID,
		bill.Provider,
		bill.Category,
		bill.Amount,
		bill.DueDate,
		string(bill.Status),
		bill.PaymentID,
		bill.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bill not found: %s", bill.ID)
	}

	return nil
}

// MarkOverdue transitions every pending bill past its due date to
// OVERDUE and returns the affected bills.
func (r *BillRepository) MarkOverdue(ctx context.Context, now time.Time) ([]*models.Bill, error) {
	query := `
		UPDATE bills
		SET status = $1, updated_at = $2
		WHERE status = $3 AND due_date < $2
		RETURNING ` + billColumns

	rows, err := r.db.Pool().Query(ctx, query,
		string(types.BillOverdue),
		now,
		string(types.BillPending),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark overdue bills: %w", err)
	}
	defer rows.Close()

	return collectBills(rows)
}

const billColumns = `id, user_id, provider, category, amount, due_date,
	       status, source, payment_id, created_at, updated_at`

const selectBillColumns = `
	SELECT ` + billColumns + `
	FROM bills`

func scanBill(row pgx.Row) (*models.Bill, error) {
	var bill models.Bill
	var status string

	err := row.Scan(
		&bill.ID,
		&bill.UserID,
		&bill.Provider,
		&bill.Category,
		&bill.Amount,
		&bill.DueDate,
		&status,
		&bill.Source,
		&bill.PaymentID,
		&bill.CreatedAt,
		&bill.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	bill.Status = types.BillStatus(status)
	return &bill, nil
}

func collectBills(rows pgx.Rows) ([]*models.Bill, error) {
	var bills []*models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	return bills, rows.Err()
}
