package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kosha-finance/internal/logging"
	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/storage"
	"github.com/kosha-finance/internal/types"
	"github.com/shopspring/decimal"
)

// Collaborator interfaces. The dashboard only reads from the other
// domains; each is consumed through the narrowest surface it needs.

// IncomeProvider supplies the windowed income aggregate
type IncomeProvider interface {
	GetSummary(ctx context.Context, userID string, startDate, endDate *time.Time) (*models.LedgerSummary, error)
}

// ExpenseProvider supplies the windowed expense aggregate
type ExpenseProvider interface {
	GetSummary(ctx context.Context, userID string, startDate, endDate *time.Time) (*models.ExpenseSummary, error)
}

// BillProvider supplies bill lists for aggregation
type BillProvider interface {
	ListUpcomingBills(ctx context.Context, userID string, days int) ([]*models.Bill, error)
	ListPendingBills(ctx context.Context, userID string) ([]*models.Bill, error)
	ListBillsInWindow(ctx context.Context, userID string, startDate, endDate time.Time) ([]*models.Bill, error)
}

// PortfolioProvider supplies the marked-to-market portfolio aggregate
type PortfolioProvider interface {
	GetPortfolioSummary(ctx context.Context, userID string) (*PortfolioSummary, error)
}

// DashboardService orchestrates the cross-domain aggregation. It owns
// no state beyond the collaborators and the cache.
type DashboardService struct {
	income        IncomeProvider
	expense       ExpenseProvider
	bills         BillProvider
	portfolio     PortfolioProvider
	cache         *storage.CacheService
	fanoutTimeout time.Duration
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	income IncomeProvider,
	expense ExpenseProvider,
	bills BillProvider,
	portfolio PortfolioProvider,
	cache *storage.CacheService,
	fanoutTimeout time.Duration,
) *DashboardService {
	if fanoutTimeout <= 0 {
		fanoutTimeout = 10 * time.Second
	}
	return &DashboardService{
		income:        income,
		expense:       expense,
		bills:         bills,
		portfolio:     portfolio,
		cache:         cache,
		fanoutTimeout: fanoutTimeout,
	}
}

// Output types

// DashboardSummary is the cached cross-domain aggregate. NetWorth is
// investment value minus outstanding bills only; cash and other
// liabilities are not modeled.
type DashboardSummary struct {
	TotalIncome         decimal.Decimal            `json:"totalIncome"`
	TotalExpenses       decimal.Decimal            `json:"totalExpenses"`
	NetSavings          decimal.Decimal            `json:"netSavings"`
	UpcomingBills       []*models.Bill             `json:"upcomingBills"`
	ExpenseDistribution map[string]decimal.Decimal `json:"expenseDistribution"`
	IncomeDistribution  map[string]decimal.Decimal `json:"incomeDistribution"`
	NetWorth            decimal.Decimal            `json:"netWorth"`
	InvestmentValue     decimal.Decimal            `json:"investmentValue"`
	OutstandingBills    decimal.Decimal            `json:"outstandingBills"`
}

// HealthMetrics is the set of period-scoped financial ratios
type HealthMetrics struct {
	SavingsRate          decimal.Decimal `json:"savingsRate"`
	ExpenseToIncomeRatio decimal.Decimal `json:"expenseToIncomeRatio"`
	BillPaymentRate      decimal.Decimal `json:"billPaymentRate"`
	InvestmentGrowth     decimal.Decimal `json:"investmentGrowth"`
	CashFlow             decimal.Decimal `json:"cashFlow"`
}

// TrendPoint is one entry of a trend series
type TrendPoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// GetSummary returns the dashboard summary for an optional date window,
// serving from the cache when a fresh entry exists. Cache failures in
// either direction are logged and swallowed; the live path never
// depends on the cache.
func (s *DashboardService) GetSummary(ctx context.Context, userID string, startDate, endDate *time.Time) (*DashboardSummary, error) {
	if userID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}

	log := logging.FromContext(ctx)
	key := s.cache.SummaryKey(userID, startDate, endDate)

	var cached DashboardSummary
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("dashboard cache read failed, computing live")
	} else if hit {
		return &cached, nil
	}

	summary, err := s.computeSummary(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, summary); err != nil {
		log.WithError(err).WithField("key", key).Warn("dashboard cache write failed")
	}

	return summary, nil
}

func (s *DashboardService) computeSummary(ctx context.Context, userID string, startDate, endDate *time.Time) (*DashboardSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fanoutTimeout)
	defer cancel()

	var (
		incomeSummary  *models.LedgerSummary
		expenseSummary *models.ExpenseSummary
		upcomingBills  []*models.Bill
		pendingBills   []*models.Bill
		portfolio      *PortfolioSummary
	)

	errs := make([]error, 5)
	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		incomeSummary, errs[0] = s.income.GetSummary(ctx, userID, startDate, endDate)
	}()
	go func() {
		defer wg.Done()
		expenseSummary, errs[1] = s.expense.GetSummary(ctx, userID, startDate, endDate)
	}()
	go func() {
		defer wg.Done()
		upcomingBills, errs[2] = s.bills.ListUpcomingBills(ctx, userID, 30)
	}()
	go func() {
		defer wg.Done()
		pendingBills, errs[3] = s.bills.ListPendingBills(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		portfolio, errs[4] = s.portfolio.GetPortfolioSummary(ctx, userID)
	}()

	wg.Wait()

	// All five branches are critical: a partial aggregate is never
	// returned.
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	outstanding := decimal.Zero
	for _, bill := range pendingBills {
		outstanding = outstanding.Add(bill.Amount)
	}

	if len(upcomingBills) > 10 {
		upcomingBills = upcomingBills[:10]
	}

	return &DashboardSummary{
		TotalIncome:         incomeSummary.Total,
		TotalExpenses:       expenseSummary.Total,
		NetSavings:          incomeSummary.Total.Sub(expenseSummary.Total),
		UpcomingBills:       upcomingBills,
		ExpenseDistribution: expenseSummary.ByCategory,
		IncomeDistribution:  incomeSummary.ByCategory,
		NetWorth:            portfolio.TotalValue.Sub(outstanding),
		InvestmentValue:     portfolio.TotalValue,
		OutstandingBills:    outstanding,
	}, nil
}

// GetHealthMetrics derives the financial health ratios for a period.
// billPaymentRate counts bills in PAID status over all bills in the
// window; investmentGrowth is the portfolio's snapshot ROI percentage.
func (s *DashboardService) GetHealthMetrics(ctx context.Context, userID string, period types.Period) (*HealthMetrics, error) {
	if userID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}
	if period == "" {
		period = types.PeriodMonth
	}
	if !period.Valid() {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "unknown period: " + string(period),
		}
	}

	startDate, endDate := period.Range(time.Now())

	ctx, cancel := context.WithTimeout(ctx, s.fanoutTimeout)
	defer cancel()

	var (
		incomeSummary  *models.LedgerSummary
		expenseSummary *models.ExpenseSummary
		portfolio      *PortfolioSummary
		bills          []*models.Bill
	)

	errs := make([]error, 4)
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		incomeSummary, errs[0] = s.income.GetSummary(ctx, userID, &startDate, &endDate)
	}()
	go func() {
		defer wg.Done()
		expenseSummary, errs[1] = s.expense.GetSummary(ctx, userID, &startDate, &endDate)
	}()
	go func() {
		defer wg.Done()
		portfolio, errs[2] = s.portfolio.GetPortfolioSummary(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		bills, errs[3] = s.bills.ListBillsInWindow(ctx, userID, startDate, endDate)
	}()

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	totalIncome := incomeSummary.Total
	totalExpenses := expenseSummary.Total
	hundred := decimal.NewFromInt(100)

	savingsRate := decimal.Zero
	expenseToIncome := decimal.Zero
	if totalIncome.IsPositive() {
		savingsRate = totalIncome.Sub(totalExpenses).Div(totalIncome).Mul(hundred)
		expenseToIncome = totalExpenses.Div(totalIncome)
	}

	billPaymentRate := decimal.Zero
	if len(bills) > 0 {
		paid := 0
		for _, bill := range bills {
			if bill.Status == types.BillPaid {
				paid++
			}
		}
		billPaymentRate = decimal.NewFromInt(int64(paid)).Div(decimal.NewFromInt(int64(len(bills)))).Mul(hundred)
	}

	return &HealthMetrics{
		SavingsRate:          savingsRate,
		ExpenseToIncomeRatio: expenseToIncome,
		BillPaymentRate:      billPaymentRate,
		InvestmentGrowth:     portfolio.ROIPercentage,
		CashFlow:             totalIncome.Sub(totalExpenses),
	}, nil
}

// GetTrends builds the time series for a metric over a period, ascending
// by date. Income and expense series carry one point per month bucket;
// SAVINGS subtracts expense from income over the union of month keys;
// INVESTMENT is a single current-value snapshot, since no historical
// valuations are stored.
func (s *DashboardService) GetTrends(ctx context.Context, userID string, period types.Period, metric types.TrendMetric) ([]TrendPoint, error) {
	if userID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}
	if period == "" {
		period = types.PeriodMonth
	}
	if !period.Valid() {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "unknown period: " + string(period),
		}
	}
	if !metric.Valid() {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "unknown metric: " + string(metric),
		}
	}

	now := time.Now()
	startDate, endDate := period.Range(now)

	var points []TrendPoint

	switch metric {
	case types.MetricIncome:
		summary, err := s.income.GetSummary(ctx, userID, &startDate, &endDate)
		if err != nil {
			return nil, err
		}
		points = monthPoints(summary.ByMonth)

	case types.MetricExpense:
		summary, err := s.expense.GetSummary(ctx, userID, &startDate, &endDate)
		if err != nil {
			return nil, err
		}
		points = monthPoints(summary.ByMonth)

	case types.MetricSavings:
		var (
			incomeSummary  *models.LedgerSummary
			expenseSummary *models.ExpenseSummary
		)
		errs := make([]error, 2)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			incomeSummary, errs[0] = s.income.GetSummary(ctx, userID, &startDate, &endDate)
		}()
		go func() {
			defer wg.Done()
			expenseSummary, errs[1] = s.expense.GetSummary(ctx, userID, &startDate, &endDate)
		}()
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
		points = savingsPoints(incomeSummary.ByMonth, expenseSummary.ByMonth)

	case types.MetricInvestment:
		portfolio, err := s.portfolio.GetPortfolioSummary(ctx, userID)
		if err != nil {
			return nil, err
		}
		points = []TrendPoint{{Date: now, Value: portfolio.TotalValue}}
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	return points, nil
}

// monthPoints turns "YYYY-MM" buckets into first-of-month points
func monthPoints(byMonth map[string]decimal.Decimal) []TrendPoint {
	points := make([]TrendPoint, 0, len(byMonth))
	for key, value := range byMonth {
		points = append(points, TrendPoint{Date: types.MonthStart(key), Value: value})
	}
	return points
}

// savingsPoints subtracts expense from income over the union of month
// keys, treating a missing bucket as zero on either side.
func savingsPoints(incomeByMonth, expenseByMonth map[string]decimal.Decimal) []TrendPoint {
	keys := make(map[string]struct{}, len(incomeByMonth)+len(expenseByMonth))
	for key := range incomeByMonth {
		keys[key] = struct{}{}
	}
	for key := range expenseByMonth {
		keys[key] = struct{}{}
	}

	points := make([]TrendPoint, 0, len(keys))
	for key := range keys {
		value := incomeByMonth[key].Sub(expenseByMonth[key])
		points = append(points, TrendPoint{Date: types.MonthStart(key), Value: value})
	}
	return points
}
