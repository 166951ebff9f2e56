package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/storage"
	"github.com/kosha-finance/internal/types"
	"github.com/shopspring/decimal"
)

// BillRepository interface for bill data operations
type BillRepository interface {
	Create(ctx context.Context, bill *models.Bill) error
	GetByID(ctx context.Context, id string) (*models.Bill, error)
	ListByUser(ctx context.Context, userID string, filters *storage.BillFilters, limit, offset int) ([]*models.Bill, int, error)
	ListUpcoming(ctx context.Context, userID string, days int) ([]*models.Bill, error)
	ListByStatus(ctx context.Context, userID string, status types.BillStatus) ([]*models.Bill, error)
	Update(ctx context.Context, bill *models.Bill) error
}

// BillImporter is the abstract statement importer. Concrete providers
// (mail scraping, SMS parsing) live outside this service and only
// report counts.
type BillImporter interface {
	Import(ctx context.Context, userID string) (imported, failed int, err error)
}

// BillService handles the bill domain
type BillService struct {
	billRepo BillRepository
	importer BillImporter
}

// NewBillService creates a new bill service. The importer may be nil
// when no statement source is configured.
func NewBillService(billRepo BillRepository, importer BillImporter) *BillService {
	return &BillService{
		billRepo: billRepo,
		importer: importer,
	}
}

// CreateBillInput represents input for recording a bill
type CreateBillInput struct {
	UserID   string          `json:"userId"`
	Provider string          `json:"provider"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  time.Time       `json:"dueDate"`
	Source   string          `json:"source"`
}

// BillPage is a paginated bill listing
type BillPage struct {
	Bills []*models.Bill `json:"bills"`
	Total int            `json:"total"`
}

// ImportResult reports how a statement import went
type ImportResult struct {
	Imported int `json:"imported"`
	Failed   int `json:"failed"`
}

// CreateBill records a new pending bill
func (s *BillService) CreateBill(ctx context.Context, input *CreateBillInput) (*models.Bill, error) {
	if input.UserID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}
	if input.Provider == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "provider is required",
		}
	}
	if !input.Amount.IsPositive() {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "amount must be positive",
		}
	}

	bill := &models.Bill{
		UserID:   input.UserID,
		Provider: input.Provider,
		Category: input.Category,
		Amount:   input.Amount,
		DueDate:  input.DueDate,
		Status:   types.BillPending,
		Source:   input.Source,
	}

	if err := s.billRepo.Create(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}

	return bill, nil
}

// ListBills returns the caller's bills, filtered and paginated
func (s *BillService) ListBills(ctx context.Context, userID string, filters *storage.BillFilters, limit, offset int) (*BillPage, error) {
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

	bills, total, err := s.billRepo.ListByUser(ctx, userID, filters, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}

	return &BillPage{Bills: bills, Total: total}, nil
}

// ListUpcomingBills returns unpaid bills due within the horizon,
// ascending by due date.
func (s *BillService) ListUpcomingBills(ctx context.Context, userID string, days int) ([]*models.Bill, error) {
	if userID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}
	if days <= 0 {
		days = 30
	}

	bills, err := s.billRepo.ListUpcoming(ctx, userID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming bills: %w", err)
	}

	return bills, nil
}

// ListBillsInWindow returns every bill due within [startDate, endDate]
// regardless of status. Used by the health metrics aggregation.
func (s *BillService) ListBillsInWindow(ctx context.Context, userID string, startDate, endDate time.Time) ([]*models.Bill, error) {
	filters := &storage.BillFilters{
		StartDate: &startDate,
		EndDate:   &endDate,
	}

	bills, _, err := s.billRepo.ListByUser(ctx, userID, filters, 1000, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills in window: %w", err)
	}

	return bills, nil
}

// ListPendingBills returns every pending bill regardless of due date
func (s *BillService) ListPendingBills(ctx context.Context, userID string) ([]*models.Bill, error) {
	bills, err := s.billRepo.ListByStatus(ctx, userID, types.BillPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending bills: %w", err)
	}
	return bills, nil
}

// MarkPaid transitions a bill the caller owns to PAID, recording the
// payment reference.
func (s *BillService) MarkPaid(ctx context.Context, billID, userID string, paymentID *string) (*models.Bill, error) {
	bill, err := s.ownedBill(ctx, billID, userID)
	if err != nil {
		return nil, err
	}

	bill.Status = types.BillPaid
	bill.PaymentID = paymentID

	if err := s.billRepo.Update(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to mark bill paid: %w", err)
	}

	return bill, nil
}

// ImportStatements runs the configured statement importer for a user
func (s *BillService) ImportStatements(ctx context.Context, userID string) (*ImportResult, error) {
	if s.importer == nil {
		return nil, &types.ServiceError{
			Code:    "DEPENDENCY_FAILURE",
			Message: "no bill import source configured",
		}
	}

	imported, failed, err := s.importer.Import(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("bill import failed: %w", err)
	}

	return &ImportResult{Imported: imported, Failed: failed}, nil
}

func (s *BillService) ownedBill(ctx context.Context, billID, userID string) (*models.Bill, error) {
	if billID == "" || userID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "billId and userId are required",
		}
	}

	bill, err := s.billRepo.GetByID(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	if bill == nil {
		return nil, &types.ServiceError{
			Code:    "BILL_NOT_FOUND",
			Message: fmt.Sprintf("bill not found: %s", billID),
			Details: map[string]interface{}{"billId": billID},
		}
	}
	if bill.UserID != userID {
		return nil, &types.ServiceError{
			Code:    "FORBIDDEN",
			Message: "bill belongs to a different user",
			Details: map[string]interface{}{"billId": billID},
		}
	}

	return bill, nil
}
