package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/types"
	"github.com/shopspring/decimal"
)

// LedgerRepository interface for one ledger (income or expenses)
type LedgerRepository interface {
	Insert(ctx context.Context, entry *models.LedgerEntry) error
	InsertBatch(ctx context.Context, entries []*models.LedgerEntry) error
	List(ctx context.Context, userID string, startDate, endDate *time.Time, limit, offset int) ([]*models.LedgerEntry, error)
	Delete(ctx context.Context, userID, id string) error
	Summary(ctx context.Context, userID string, startDate, endDate *time.Time) (*models.LedgerSummary, error)
}

// LedgerImporter is the abstract statement importer for a ledger
type LedgerImporter interface {
	Import(ctx context.Context, userID string) (imported, failed int, err error)
}

// RecordEntryInput represents input for recording one ledger entry
type RecordEntryInput struct {
	UserID      string          `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Source      string          `json:"source"`
}

// ledgerService holds the behavior shared by the income and expense
// domains; the exported services embed it.
type ledgerService struct {
	repo     LedgerRepository
	importer LedgerImporter
	kind     string
}

// RecordEntry appends one entry to the ledger
func (s *ledgerService) RecordEntry(ctx context.Context, input *RecordEntryInput) (*models.LedgerEntry, error) {
	if input.UserID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}
	if !input.Amount.IsPositive() {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "amount must be positive",
		}
	}
	if input.Category == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "category is required",
		}
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	entry := &models.LedgerEntry{
		UserID:      input.UserID,
		Amount:      input.Amount,
		Category:    input.Category,
		Description: input.Description,
		OccurredAt:  occurredAt,
		Source:      input.Source,
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record %s entry: %w", s.kind, err)
	}

	return entry, nil
}

// ListEntries returns the caller's entries within the window
func (s *ledgerService) ListEntries(ctx context.Context, userID string, startDate, endDate *time.Time, limit, offset int) ([]*models.LedgerEntry, error) {
	if userID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.repo.List(ctx, userID, startDate, endDate, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s entries: %w", s.kind, err)
	}

	return entries, nil
}

// DeleteEntry removes an entry the caller owns
func (s *ledgerService) DeleteEntry(ctx context.Context, userID, id string) error {
	if userID == "" || id == "" {
		return &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId and id are required",
		}
	}

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to delete %s entry: %w", s.kind, err)
	}

	return nil
}

// ImportStatements runs the configured statement importer
func (s *ledgerService) ImportStatements(ctx context.Context, userID string) (*ImportResult, error) {
	if s.importer == nil {
		return nil, &types.ServiceError{
			Code:    "DEPENDENCY_FAILURE",
			Message: fmt.Sprintf("no %s import source configured", s.kind),
		}
	}

	imported, failed, err := s.importer.Import(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s import failed: %w", s.kind, err)
	}

	return &ImportResult{Imported: imported, Failed: failed}, nil
}

func (s *ledgerService) summary(ctx context.Context, userID string, startDate, endDate *time.Time) (*models.LedgerSummary, error) {
	if userID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}

	summary, err := s.repo.Summary(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize %s: %w", s.kind, err)
	}

	return summary, nil
}

// IncomeService handles the income ledger
type IncomeService struct {
	ledgerService
}

// NewIncomeService creates a new income service. The importer may be nil.
func NewIncomeService(repo LedgerRepository, importer LedgerImporter) *IncomeService {
	return &IncomeService{ledgerService{repo: repo, importer: importer, kind: "income"}}
}

// GetSummary returns the windowed income aggregate
func (s *IncomeService) GetSummary(ctx context.Context, userID string, startDate, endDate *time.Time) (*models.LedgerSummary, error) {
	return s.summary(ctx, userID, startDate, endDate)
}

// ExpenseService handles the expense ledger
type ExpenseService struct {
	ledgerService
}

// NewExpenseService creates a new expense service. The importer may be nil.
func NewExpenseService(repo LedgerRepository, importer LedgerImporter) *ExpenseService {
	return &ExpenseService{ledgerService{repo: repo, importer: importer, kind: "expense"}}
}

// GetSummary returns the windowed expense aggregate plus the burn rate:
// total divided by the number of days in the window, 30 when the window
// is unbounded.
func (s *ExpenseService) GetSummary(ctx context.Context, userID string, startDate, endDate *time.Time) (*models.ExpenseSummary, error) {
	summary, err := s.summary(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	return &models.ExpenseSummary{
		LedgerSummary: *summary,
		BurnRate:      burnRate(summary.Total, startDate, endDate),
	}, nil
}

func burnRate(total decimal.Decimal, startDate, endDate *time.Time) decimal.Decimal {
	days := decimal.NewFromInt(30)
	if startDate != nil && endDate != nil {
		span := endDate.Sub(*startDate).Hours() / 24
		if span >= 1 {
			days = decimal.NewFromFloat(span)
		}
	}
	return total.Div(days)
}
