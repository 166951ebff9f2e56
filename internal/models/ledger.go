package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry represents one income or expense record. Entries are
// append-heavy and live in ClickHouse; summaries are computed with
// aggregate queries, never by mutating rows.
type LedgerEntry struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"userId" db:"user_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Category    string          `json:"category" db:"category"`
	Description string          `json:"description" db:"description"`
	OccurredAt  time.Time       `json:"occurredAt" db:"occurred_at"`
	Source      string          `json:"source" db:"source"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// LedgerSummary is the windowed aggregate shape shared by the income and
// expense domains: a grand total plus per-category and per-month buckets.
// Month keys are "YYYY-MM".
type LedgerSummary struct {
	Total      decimal.Decimal            `json:"total"`
	ByCategory map[string]decimal.Decimal `json:"byCategory"`
	ByMonth    map[string]decimal.Decimal `json:"byMonth"`
}

// ExpenseSummary is a ledger summary extended with the burn rate
// (expense total divided by days in the window).
type ExpenseSummary struct {
	LedgerSummary
	BurnRate decimal.Decimal `json:"burnRate"`
}
