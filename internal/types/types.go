// Package types provides common type definitions shared across the kosha backend.
package types

import "time"

// TransactionType represents the direction of an asset ledger entry
type TransactionType string

const (
	// TransactionBuy represents a purchase of units
	TransactionBuy TransactionType = "BUY"
	// TransactionSell represents a disposal of units
	TransactionSell TransactionType = "SELL"
)

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	return t == TransactionBuy || t == TransactionSell
}

// AssetType represents the broad class of an investment asset
type AssetType string

const (
	// AssetStock represents listed equity
	AssetStock AssetType = "STOCK"
	// AssetMutualFund represents mutual fund units
	AssetMutualFund AssetType = "MUTUAL_FUND"
	// AssetCrypto represents crypto holdings
	AssetCrypto AssetType = "CRYPTO"
	// AssetGold represents gold instruments
	AssetGold AssetType = "GOLD"
	// AssetFixedDeposit represents fixed deposits
	AssetFixedDeposit AssetType = "FIXED_DEPOSIT"
)

// BillStatus represents the lifecycle state of a bill
type BillStatus string

const (
	// BillPending represents an unpaid bill
	BillPending BillStatus = "PENDING"
	// BillPaid represents a settled bill
	BillPaid BillStatus = "PAID"
	// BillOverdue represents an unpaid bill past its due date
	BillOverdue BillStatus = "OVERDUE"
)

// Period represents a lookback window ending now
type Period string

const (
	// PeriodWeek is the last 7 days
	PeriodWeek Period = "WEEK"
	// PeriodMonth is the last calendar month
	PeriodMonth Period = "MONTH"
	// PeriodQuarter is the last 3 calendar months
	PeriodQuarter Period = "QUARTER"
	// PeriodYear is the last calendar year
	PeriodYear Period = "YEAR"
)

// Valid reports whether p is a known period
func (p Period) Valid() bool {
	switch p {
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return true
	}
	return false
}

// Range resolves the period to a concrete [start, end] window ending at now.
func (p Period) Range(now time.Time) (start, end time.Time) {
	end = now
	switch p {
	case PeriodWeek:
		start = now.AddDate(0, 0, -7)
	case PeriodQuarter:
		start = now.AddDate(0, -3, 0)
	case PeriodYear:
		start = now.AddDate(-1, 0, 0)
	default:
		start = now.AddDate(0, -1, 0)
	}
	return start, end
}

// TrendMetric represents the series requested from the trend builder
type TrendMetric string

const (
	// MetricIncome is the monthly income series
	MetricIncome TrendMetric = "INCOME"
	// MetricExpense is the monthly expense series
	MetricExpense TrendMetric = "EXPENSE"
	// MetricSavings is income minus expense per month
	MetricSavings TrendMetric = "SAVINGS"
	// MetricInvestment is the current portfolio value snapshot
	MetricInvestment TrendMetric = "INVESTMENT"
)

// Valid reports whether m is a known trend metric
func (m TrendMetric) Valid() bool {
	switch m {
	case MetricIncome, MetricExpense, MetricSavings, MetricInvestment:
		return true
	}
	return false
}

// NotificationStatus represents the delivery state of a notification
type NotificationStatus string

const (
	// NotificationScheduled means the notification is waiting for its send time
	NotificationScheduled NotificationStatus = "SCHEDULED"
	// NotificationSent means the notification was delivered
	NotificationSent NotificationStatus = "SENT"
	// NotificationFailed means delivery failed
	NotificationFailed NotificationStatus = "FAILED"
)

// MonthKey formats a timestamp as the "YYYY-MM" bucket key used by the
// income and expense summaries.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// MonthStart parses a "YYYY-MM" bucket key back into the first day of
// that month. Returns the zero time when the key is malformed.
func MonthStart(key string) time.Time {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
