// Package importer provides CSV statement importers for the bill and
// ledger domains. Statements are dropped under a per-user directory:
//
//	<dir>/<userID>/bills.csv     provider,category,amount,due_date
//	<dir>/<userID>/income.csv    amount,category,description,occurred_at
//	<dir>/<userID>/expenses.csv  amount,category,description,occurred_at
//
// Rows that fail to parse are counted and skipped; one bad row never
// aborts an import.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kosha-finance/internal/logging"
	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/retry"
	"github.com/kosha-finance/internal/types"
	"github.com/shopspring/decimal"
)

const sourceCSV = "csv-import"

// BillWriter is the slice of the bill storage layer the importer needs.
type BillWriter interface {
	Create(ctx context.Context, bill *models.Bill) error
}

// LedgerWriter is the slice of the ledger storage layer the importer
// needs. Batch writes may be retried, so they must be idempotent at the
// row-id level.
type LedgerWriter interface {
	InsertBatch(ctx context.Context, entries []*models.LedgerEntry) error
}

// BillCSV imports bills from <dir>/<userID>/bills.csv.
type BillCSV struct {
	dir   string
	bills BillWriter
}

// NewBillCSV creates a bill statement importer rooted at dir.
func NewBillCSV(dir string, bills BillWriter) *BillCSV {
	return &BillCSV{dir: dir, bills: bills}
}

// Import parses the user's bill statement and creates one pending bill
// per valid row.
func (i *BillCSV) Import(ctx context.Context, userID string) (imported, failed int, err error) {
	rows, err := readStatement(filepath.Join(i.dir, userID, "bills.csv"))
	if err != nil {
		return 0, 0, err
	}

	log := logging.FromContext(ctx)
	now := time.Now()

	for _, row := range rows {
		bill, parseErr := parseBillRow(row, userID, now)
		if parseErr != nil {
			log.WithError(parseErr).Warn("skipping unparseable bill row")
			failed++
			continue
		}
		if createErr := i.bills.Create(ctx, bill); createErr != nil {
			log.WithError(createErr).Warn("failed to store imported bill")
			failed++
			continue
		}
		imported++
	}

	return imported, failed, nil
}

func parseBillRow(row []string, userID string, now time.Time) (*models.Bill, error) {
	if len(row) != 4 {
		return nil, fmt.Errorf("expected 4 columns, got %d", len(row))
	}
	if row[0] == "" {
		return nil, fmt.Errorf("provider is empty")
	}
	amount, err := decimal.NewFromString(row[2])
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", row[2], err)
	}
	dueDate, err := parseStatementDate(row[3])
	if err != nil {
		return nil, fmt.Errorf("invalid due_date %q: %w", row[3], err)
	}

	return &models.Bill{
		ID:        uuid.New().String(),
		UserID:    userID,
		Provider:  row[0],
		Category:  row[1],
		Amount:    amount,
		DueDate:   dueDate,
		Status:    types.BillPending,
		Source:    sourceCSV,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// LedgerCSV imports ledger entries from <dir>/<userID>/<filename>.
// Entries land in a single batch; the batch write is retried on
// transient failures.
type LedgerCSV struct {
	dir      string
	filename string
	ledger   LedgerWriter
}

// NewIncomeCSV creates an income statement importer rooted at dir.
func NewIncomeCSV(dir string, ledger LedgerWriter) *LedgerCSV {
	return &LedgerCSV{dir: dir, filename: "income.csv", ledger: ledger}
}

// NewExpenseCSV creates an expense statement importer rooted at dir.
func NewExpenseCSV(dir string, ledger LedgerWriter) *LedgerCSV {
	return &LedgerCSV{dir: dir, filename: "expenses.csv", ledger: ledger}
}

// Import parses the user's statement and batch-inserts the valid rows.
func (i *LedgerCSV) Import(ctx context.Context, userID string) (imported, failed int, err error) {
	rows, err := readStatement(filepath.Join(i.dir, userID, i.filename))
	if err != nil {
		return 0, 0, err
	}

	log := logging.FromContext(ctx)
	now := time.Now()

	entries := make([]*models.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entry, parseErr := parseLedgerRow(row, userID, now)
		if parseErr != nil {
			log.WithError(parseErr).Warn("skipping unparseable ledger row")
			failed++
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return 0, failed, nil
	}

	err = retry.WithRetry(ctx, func(ctx context.Context, attempt int) error {
		return i.ledger.InsertBatch(ctx, entries)
	})
	if err != nil {
		return 0, failed + len(entries), fmt.Errorf("failed to store imported entries: %w", err)
	}

	return len(entries), failed, nil
}

func parseLedgerRow(row []string, userID string, now time.Time) (*models.LedgerEntry, error) {
	if len(row) != 4 {
		return nil, fmt.Errorf("expected 4 columns, got %d", len(row))
	}
	amount, err := decimal.NewFromString(row[0])
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", row[0], err)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", row[0])
	}
	occurredAt, err := parseStatementDate(row[3])
	if err != nil {
		return nil, fmt.Errorf("invalid occurred_at %q: %w", row[3], err)
	}

	return &models.LedgerEntry{
		ID:          uuid.New().String(),
		UserID:      userID,
		Amount:      amount,
		Category:    row[1],
		Description: row[2],
		OccurredAt:  occurredAt,
		Source:      sourceCSV,
		CreatedAt:   now,
	}, nil
}

// readStatement reads all data rows, skipping a header row when the
// file starts with one.
func readStatement(path string) ([][]string, error) {
	f, err := os.Open(path) // #nosec G304 - path is rooted at the configured statements dir
	if err != nil {
		return nil, fmt.Errorf("failed to open statement: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read statement: %w", err)
		}
		rows = append(rows, row)
	}

	if len(rows) > 0 && isHeaderRow(rows[0]) {
		rows = rows[1:]
	}
	return rows, nil
}

// isHeaderRow treats a row as a header when its amount column is not a
// number.
func isHeaderRow(row []string) bool {
	for _, cell := range row {
		if _, err := decimal.NewFromString(cell); err == nil {
			return false
		}
	}
	return true
}

func parseStatementDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
