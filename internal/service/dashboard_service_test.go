package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/storage"
	"github.com/kosha-finance/internal/types"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Stub collaborators that count invocations

type stubIncome struct {
	summary *models.LedgerSummary
	calls   int
}

func (s *stubIncome) GetSummary(ctx context.Context, userID string, startDate, endDate *time.Time) (*models.LedgerSummary, error) {
	s.calls++
	return s.summary, nil
}

type stubExpense struct {
	summary *models.ExpenseSummary
	calls   int
}

func (s *stubExpense) GetSummary(ctx context.Context, userID string, startDate, endDate *time.Time) (*models.ExpenseSummary, error) {
	s.calls++
	return s.summary, nil
}

type stubBills struct {
	upcoming []*models.Bill
	pending  []*models.Bill
	window   []*models.Bill
	calls    int
}

func (s *stubBills) ListUpcomingBills(ctx context.Context, userID string, days int) ([]*models.Bill, error) {
	s.calls++
	return s.upcoming, nil
}

func (s *stubBills) ListPendingBills(ctx context.Context, userID string) ([]*models.Bill, error) {
	s.calls++
	return s.pending, nil
}

func (s *stubBills) ListBillsInWindow(ctx context.Context, userID string, startDate, endDate time.Time) ([]*models.Bill, error) {
	s.calls++
	return s.window, nil
}

type stubPortfolio struct {
	summary *PortfolioSummary
	calls   int
}

func (s *stubPortfolio) GetPortfolioSummary(ctx context.Context, userID string) (*PortfolioSummary, error) {
	s.calls++
	return s.summary, nil
}

func emptyLedgerSummary() *models.LedgerSummary {
	return &models.LedgerSummary{
		Total:      decimal.Zero,
		ByCategory: map[string]decimal.Decimal{},
		ByMonth:    map[string]decimal.Decimal{},
	}
}

func emptyPortfolio() *PortfolioSummary {
	return &PortfolioSummary{
		ByType:  map[string]decimal.Decimal{},
		ByAsset: []AssetValue{},
	}
}

type dashboardFixture struct {
	svc       *DashboardService
	income    *stubIncome
	expense   *stubExpense
	bills     *stubBills
	portfolio *stubPortfolio
	redis     *miniredis.Miniredis
}

func setupDashboard(t *testing.T) *dashboardFixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &dashboardFixture{
		income:    &stubIncome{summary: emptyLedgerSummary()},
		expense:   &stubExpense{summary: &models.ExpenseSummary{LedgerSummary: *emptyLedgerSummary()}},
		bills:     &stubBills{},
		portfolio: &stubPortfolio{summary: emptyPortfolio()},
		redis:     mr,
	}

	cache := storage.NewCacheService(storage.NewRedisCacheFromClient(client), 300*time.Second)
	f.svc = NewDashboardService(f.income, f.expense, f.bills, f.portfolio, cache, 10*time.Second)
	return f
}

func TestGetSummary_Derivations(t *testing.T) {
	f := setupDashboard(t)

	f.income.summary = &models.LedgerSummary{
		Total:      decimal.NewFromInt(5000),
		ByCategory: map[string]decimal.Decimal{"salary": decimal.NewFromInt(5000)},
		ByMonth:    map[string]decimal.Decimal{},
	}
	f.expense.summary = &models.ExpenseSummary{LedgerSummary: models.LedgerSummary{
		Total:      decimal.NewFromInt(3000),
		ByCategory: map[string]decimal.Decimal{"rent": decimal.NewFromInt(3000)},
		ByMonth:    map[string]decimal.Decimal{},
	}}
	f.portfolio.summary.TotalValue = decimal.NewFromInt(10000)
	f.bills.pending = []*models.Bill{
		{Amount: decimal.NewFromInt(700)},
		{Amount: decimal.NewFromInt(300)},
	}

	summary, err := f.svc.GetSummary(context.Background(), "user-1", nil, nil)
	require.NoError(t, err)

	assert.True(t, summary.NetSavings.Equal(decimal.NewFromInt(2000)))
	assert.True(t, summary.OutstandingBills.Equal(decimal.NewFromInt(1000)))
	// Net worth is investment value minus all pending bills.
	assert.True(t, summary.NetWorth.Equal(decimal.NewFromInt(9000)))
	assert.True(t, summary.InvestmentValue.Equal(decimal.NewFromInt(10000)))
}

func TestGetSummary_CacheRoundTrip(t *testing.T) {
	f := setupDashboard(t)
	ctx := context.Background()

	_, err := f.svc.GetSummary(ctx, "user-1", nil, nil)
	require.NoError(t, err)
	firstCalls := f.income.calls + f.expense.calls + f.bills.calls + f.portfolio.calls
	assert.Equal(t, 5, firstCalls)

	// Second identical call within the TTL is served from the cache.
	_, err = f.svc.GetSummary(ctx, "user-1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, firstCalls, f.income.calls+f.expense.calls+f.bills.calls+f.portfolio.calls)

	// After expiry the fetchers run again.
	f.redis.FastForward(301 * time.Second)
	_, err = f.svc.GetSummary(ctx, "user-1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2*firstCalls, f.income.calls+f.expense.calls+f.bills.calls+f.portfolio.calls)
}

func TestGetSummary_DifferentWindowRecomputes(t *testing.T) {
	f := setupDashboard(t)
	ctx := context.Background()

	_, err := f.svc.GetSummary(ctx, "user-1", nil, nil)
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.GetSummary(ctx, "user-1", &start, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, f.portfolio.calls, "a different window must not share the cache entry")
}

func TestGetSummary_CacheUnavailableFallsThrough(t *testing.T) {
	f := setupDashboard(t)
	f.redis.Close()

	summary, err := f.svc.GetSummary(context.Background(), "user-1", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 1, f.portfolio.calls)
}

func TestGetSummary_UpcomingBillsTruncatedToTen(t *testing.T) {
	f := setupDashboard(t)

	for i := 0; i < 15; i++ {
		f.bills.upcoming = append(f.bills.upcoming, &models.Bill{
			ID:      string(rune('a' + i)),
			DueDate: time.Now().AddDate(0, 0, i),
		})
	}

	summary, err := f.svc.GetSummary(context.Background(), "user-1", nil, nil)
	require.NoError(t, err)

	require.Len(t, summary.UpcomingBills, 10)
	// Truncation keeps the earliest-due prefix of the sorted input.
	assert.Equal(t, f.bills.upcoming[0].ID, summary.UpcomingBills[0].ID)
	assert.Equal(t, f.bills.upcoming[9].ID, summary.UpcomingBills[9].ID)
}

func TestGetHealthMetrics_ZeroIncomeGuards(t *testing.T) {
	f := setupDashboard(t)
	f.expense.summary.Total = decimal.NewFromInt(500)

	metrics, err := f.svc.GetHealthMetrics(context.Background(), "user-1", types.PeriodMonth)
	require.NoError(t, err)

	assert.True(t, metrics.SavingsRate.IsZero())
	assert.True(t, metrics.ExpenseToIncomeRatio.IsZero())
	assert.True(t, metrics.CashFlow.Equal(decimal.NewFromInt(-500)))
}

func TestGetHealthMetrics_Ratios(t *testing.T) {
	f := setupDashboard(t)

	f.income.summary.Total = decimal.NewFromInt(4000)
	f.expense.summary.Total = decimal.NewFromInt(1000)
	f.portfolio.summary.ROIPercentage = decimal.NewFromInt(12)
	f.bills.window = []*models.Bill{
		{Status: types.BillPaid},
		{Status: types.BillPaid},
		{Status: types.BillPending},
		{Status: types.BillOverdue},
	}

	metrics, err := f.svc.GetHealthMetrics(context.Background(), "user-1", types.PeriodQuarter)
	require.NoError(t, err)

	assert.True(t, metrics.SavingsRate.Equal(decimal.NewFromInt(75)), "savingsRate = %s", metrics.SavingsRate)
	assert.True(t, metrics.ExpenseToIncomeRatio.Equal(decimal.NewFromFloat(0.25)))
	assert.True(t, metrics.BillPaymentRate.Equal(decimal.NewFromInt(50)), "billPaymentRate = %s", metrics.BillPaymentRate)
	assert.True(t, metrics.InvestmentGrowth.Equal(decimal.NewFromInt(12)))
	assert.True(t, metrics.CashFlow.Equal(decimal.NewFromInt(3000)))
}

func TestGetTrends_SavingsUnionsMonthKeys(t *testing.T) {
	f := setupDashboard(t)

	f.income.summary.ByMonth = map[string]decimal.Decimal{
		"2024-01": decimal.NewFromInt(1000),
	}
	f.expense.summary.ByMonth = map[string]decimal.Decimal{
		"2024-02": decimal.NewFromInt(500),
	}

	points, err := f.svc.GetTrends(context.Background(), "user-1", types.PeriodYear, types.MetricSavings)
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.True(t, points[0].Value.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), points[1].Date)
	assert.True(t, points[1].Value.Equal(decimal.NewFromInt(-500)))
}

func TestGetTrends_IncomeAscendingByDate(t *testing.T) {
	f := setupDashboard(t)

	f.income.summary.ByMonth = map[string]decimal.Decimal{
		"2024-03": decimal.NewFromInt(3),
		"2024-01": decimal.NewFromInt(1),
		"2024-02": decimal.NewFromInt(2),
	}

	points, err := f.svc.GetTrends(context.Background(), "user-1", types.PeriodYear, types.MetricIncome)
	require.NoError(t, err)

	require.Len(t, points, 3)
	for i := 1; i < len(points); i++ {
		assert.True(t, points[i-1].Date.Before(points[i].Date))
	}
}

func TestGetTrends_InvestmentSnapshotPoint(t *testing.T) {
	f := setupDashboard(t)
	f.portfolio.summary.TotalValue = decimal.NewFromInt(7500)

	before := time.Now()
	points, err := f.svc.GetTrends(context.Background(), "user-1", types.PeriodMonth, types.MetricInvestment)
	require.NoError(t, err)

	require.Len(t, points, 1)
	assert.True(t, points[0].Value.Equal(decimal.NewFromInt(7500)))
	assert.False(t, points[0].Date.Before(before))
}

func TestGetTrends_RejectsUnknownMetric(t *testing.T) {
	f := setupDashboard(t)

	_, err := f.svc.GetTrends(context.Background(), "user-1", types.PeriodMonth, types.TrendMetric("VIBES"))
	require.Error(t, err)
}
