package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/service"
	"github.com/kosha-finance/internal/storage"
	"github.com/kosha-finance/internal/types"
	"github.com/shopspring/decimal"
)

const testJWTSecret = "test-secret"

// Mock services for testing

type mockDashboardService struct {
	getSummaryFunc func(ctx context.Context, userID string, startDate, endDate *time.Time) (*service.DashboardSummary, error)
	getTrendsFunc  func(ctx context.Context, userID string, period types.Period, metric types.TrendMetric) ([]service.TrendPoint, error)
}

func (m *mockDashboardService) GetSummary(ctx context.Context, userID string, startDate, endDate *time.Time) (*service.DashboardSummary, error) {
	if m.getSummaryFunc != nil {
		return m.getSummaryFunc(ctx, userID, startDate, endDate)
	}
	return &service.DashboardSummary{
		TotalIncome:   decimal.NewFromInt(5000),
		TotalExpenses: decimal.NewFromInt(3000),
		NetSavings:    decimal.NewFromInt(2000),
		NetWorth:      decimal.NewFromInt(10000),
	}, nil
}

func (m *mockDashboardService) GetHealthMetrics(ctx context.Context, userID string, period types.Period) (*service.HealthMetrics, error) {
	return &service.HealthMetrics{
		SavingsRate: decimal.NewFromInt(40),
		CashFlow:    decimal.NewFromInt(2000),
	}, nil
}

func (m *mockDashboardService) GetTrends(ctx context.Context, userID string, period types.Period, metric types.TrendMetric) ([]service.TrendPoint, error) {
	if m.getTrendsFunc != nil {
		return m.getTrendsFunc(ctx, userID, period, metric)
	}
	return []service.TrendPoint{
		{Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Value: decimal.NewFromInt(1000)},
	}, nil
}

type mockInvestmentService struct {
	addAssetFunc       func(ctx context.Context, input *service.AddAssetInput) (*models.Asset, error)
	addTransactionFunc func(ctx context.Context, input *service.AddTransactionInput) (*models.AssetTransaction, error)
}

func (m *mockInvestmentService) AddAsset(ctx context.Context, input *service.AddAssetInput) (*models.Asset, error) {
	if m.addAssetFunc != nil {
		return m.addAssetFunc(ctx, input)
	}
	return &models.Asset{
		ID:     "asset-123",
		UserID: input.UserID,
		Symbol: input.Symbol,
		Type:   input.Type,
		Name:   input.Name,
	}, nil
}

func (m *mockInvestmentService) UpdateAsset(ctx context.Context, input *service.UpdateAssetInput) (*models.Asset, error) {
	return &models.Asset{ID: input.AssetID, UserID: input.UserID}, nil
}

func (m *mockInvestmentService) AddTransaction(ctx context.Context, input *service.AddTransactionInput) (*models.AssetTransaction, error) {
	if m.addTransactionFunc != nil {
		return m.addTransactionFunc(ctx, input)
	}
	return &models.AssetTransaction{
		ID:              "tx-123",
		AssetID:         input.AssetID,
		UserID:          input.UserID,
		TransactionType: input.TransactionType,
		Units:           input.Units,
		PricePerUnit:    input.PricePerUnit,
		Fees:            input.Fees,
		TotalAmount:     input.Units.Mul(input.PricePerUnit).Add(input.Fees),
	}, nil
}

func (m *mockInvestmentService) UpdateTransaction(ctx context.Context, input *service.UpdateTransactionInput) (*models.AssetTransaction, error) {
	return &models.AssetTransaction{ID: input.TransactionID, UserID: input.UserID}, nil
}

func (m *mockInvestmentService) DeleteTransaction(ctx context.Context, transactionID, userID string) error {
	return nil
}

func (m *mockInvestmentService) GetTransactionHistory(ctx context.Context, userID string, filters *storage.TransactionFilters, limit, offset int) ([]*models.AssetTransaction, int, error) {
	return []*models.AssetTransaction{
		{ID: "tx-123", UserID: userID, TransactionType: types.TransactionBuy},
	}, 1, nil
}

func (m *mockInvestmentService) RecordPrice(ctx context.Context, input *service.RecordPriceInput) (*models.AssetPrice, error) {
	return &models.AssetPrice{
		ID:     "price-123",
		Symbol: input.Symbol,
		Price:  input.Price,
		Date:   time.Now(),
	}, nil
}

func (m *mockInvestmentService) GetPriceHistory(ctx context.Context, symbol string, startDate, endDate time.Time) ([]models.PricePoint, error) {
	return []models.PricePoint{
		{Date: startDate, Price: decimal.NewFromInt(100)},
	}, nil
}

func (m *mockInvestmentService) ListInvestments(ctx context.Context, userID string, assetType *types.AssetType) ([]*service.AssetValuation, error) {
	return []*service.AssetValuation{
		{
			Asset:        &models.Asset{ID: "asset-123", UserID: userID, Symbol: "VTI"},
			LatestPrice:  decimal.NewFromInt(100),
			CurrentValue: decimal.NewFromInt(1000),
		},
	}, nil
}

func (m *mockInvestmentService) GetPortfolioSummary(ctx context.Context, userID string) (*service.PortfolioSummary, error) {
	return &service.PortfolioSummary{
		TotalValue:    decimal.NewFromInt(10000),
		TotalCost:     decimal.NewFromInt(8000),
		ROI:           decimal.NewFromInt(2000),
		ROIPercentage: decimal.NewFromInt(25),
		ByAsset: []service.AssetValue{
			{Symbol: "VTI", Value: decimal.NewFromInt(10000)},
		},
	}, nil
}

type mockBillService struct {
	createBillFunc func(ctx context.Context, input *service.CreateBillInput) (*models.Bill, error)
	markPaidFunc   func(ctx context.Context, billID, userID string, paymentID *string) (*models.Bill, error)
}

func (m *mockBillService) CreateBill(ctx context.Context, input *service.CreateBillInput) (*models.Bill, error) {
	if m.createBillFunc != nil {
		return m.createBillFunc(ctx, input)
	}
	return &models.Bill{
		ID:       "bill-123",
		UserID:   input.UserID,
		Provider: input.Provider,
		Amount:   input.Amount,
		Status:   types.BillPending,
	}, nil
}

func (m *mockBillService) ListBills(ctx context.Context, userID string, filters *storage.BillFilters, limit, offset int) (*service.BillPage, error) {
	return &service.BillPage{
		Bills: []*models.Bill{{ID: "bill-123", UserID: userID, Status: types.BillPending}},
		Total: 1,
	}, nil
}

func (m *mockBillService) ListUpcomingBills(ctx context.Context, userID string, days int) ([]*models.Bill, error) {
	return []*models.Bill{{ID: "bill-123", UserID: userID, Status: types.BillPending}}, nil
}

func (m *mockBillService) MarkPaid(ctx context.Context, billID, userID string, paymentID *string) (*models.Bill, error) {
	if m.markPaidFunc != nil {
		return m.markPaidFunc(ctx, billID, userID, paymentID)
	}
	return &models.Bill{ID: billID, UserID: userID, Status: types.BillPaid, PaymentID: paymentID}, nil
}

func (m *mockBillService) ImportStatements(ctx context.Context, userID string) (*service.ImportResult, error) {
	return &service.ImportResult{Imported: 3, Failed: 0}, nil
}

type mockLedgerService struct {
	recordEntryFunc func(ctx context.Context, input *service.RecordEntryInput) (*models.LedgerEntry, error)
}

func (m *mockLedgerService) RecordEntry(ctx context.Context, input *service.RecordEntryInput) (*models.LedgerEntry, error) {
	if m.recordEntryFunc != nil {
		return m.recordEntryFunc(ctx, input)
	}
	return &models.LedgerEntry{
		ID:       "entry-123",
		UserID:   input.UserID,
		Amount:   input.Amount,
		Category: input.Category,
	}, nil
}

func (m *mockLedgerService) ListEntries(ctx context.Context, userID string, startDate, endDate *time.Time, limit, offset int) ([]*models.LedgerEntry, error) {
	return []*models.LedgerEntry{{ID: "entry-123", UserID: userID, Amount: decimal.NewFromInt(100)}}, nil
}

func (m *mockLedgerService) DeleteEntry(ctx context.Context, userID, id string) error {
	return nil
}

func (m *mockLedgerService) ImportStatements(ctx context.Context, userID string) (*service.ImportResult, error) {
	return &service.ImportResult{Imported: 5, Failed: 1}, nil
}

type mockIncomeService struct {
	mockLedgerService
}

func (m *mockIncomeService) GetSummary(ctx context.Context, userID string, startDate, endDate *time.Time) (*models.LedgerSummary, error) {
	return &models.LedgerSummary{
		Total:      decimal.NewFromInt(5000),
		ByCategory: map[string]decimal.Decimal{"salary": decimal.NewFromInt(5000)},
		ByMonth:    map[string]decimal.Decimal{"2026-01": decimal.NewFromInt(5000)},
	}, nil
}

type mockExpenseService struct {
	mockLedgerService
}

func (m *mockExpenseService) GetSummary(ctx context.Context, userID string, startDate, endDate *time.Time) (*models.ExpenseSummary, error) {
	return &models.ExpenseSummary{
		LedgerSummary: models.LedgerSummary{
			Total:      decimal.NewFromInt(3000),
			ByCategory: map[string]decimal.Decimal{"rent": decimal.NewFromInt(3000)},
		},
		BurnRate: decimal.NewFromInt(100),
	}, nil
}

type mockNotificationService struct {
	scheduleFunc func(ctx context.Context, input *service.ScheduleInput) (*models.Notification, error)
}

func (m *mockNotificationService) Schedule(ctx context.Context, input *service.ScheduleInput) (*models.Notification, error) {
	if m.scheduleFunc != nil {
		return m.scheduleFunc(ctx, input)
	}
	return &models.Notification{
		ID:     "notif-123",
		UserID: input.UserID,
		Title:  input.Title,
		Status: types.NotificationScheduled,
	}, nil
}

func (m *mockNotificationService) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error) {
	return []*models.Notification{{ID: "notif-123", UserID: userID}}, nil
}

func (m *mockNotificationService) GetPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	return &models.NotificationPreferences{UserID: userID, EmailEnabled: true, PushEnabled: true}, nil
}

func (m *mockNotificationService) UpdatePreferences(ctx context.Context, prefs *models.NotificationPreferences) error {
	return nil
}

// Helper function to create test server
// Note: This creates a server with mock-backed services for testing
// For full integration tests, use real service implementations
func createTestServer() *Server {
	config := &ServerConfig{
		Host:              "localhost",
		Port:              "8080",
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		JWTSecret:         testJWTSecret,
		RequestsPerSecond: 100,
		Burst:             200,
	}

	return NewServer(
		config,
		&mockDashboardService{},
		&mockInvestmentService{},
		&mockBillService{},
		&mockIncomeService{},
		&mockExpenseService{},
		&mockNotificationService{},
	)
}

// bearerToken mints a signed token for the given user
func bearerToken(t *testing.T, userID string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return "Bearer " + signed
}

// TestHealthEndpoint tests the health check endpoint
func TestHealthEndpoint(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", response["status"])
	}
}

// TestAuth_MissingToken tests that API routes require authentication
func TestAuth_MissingToken(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/api/dashboard/summary", nil)
	w := httptest.NewRecorder()

	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

// TestAuth_InvalidToken tests rejection of tokens signed with another key
func TestAuth_InvalidToken(t *testing.T) {
	server := createTestServer()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-123"})
	signed, err := token.SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/dashboard/summary", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()

	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

// TestAuth_ValidToken tests that a valid token reaches the handler
func TestAuth_ValidToken(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/api/dashboard/summary", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-123"))
	w := httptest.NewRecorder()

	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var summary service.DashboardSummary
	if err := json.NewDecoder(w.Body).Decode(&summary); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !summary.NetSavings.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Expected netSavings 2000, got %s", summary.NetSavings)
	}
}
