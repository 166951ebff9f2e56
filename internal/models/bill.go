package models

import (
	"time"

	"github.com/kosha-finance/internal/types"
	"github.com/shopspring/decimal"
)

// Bill represents a payable obligation with a due date
type Bill struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"userId" db:"user_id"`
	Provider  string           `json:"provider" db:"provider"`
	Category  string           `json:"category" db:"category"`
	Amount    decimal.Decimal  `json:"amount" db:"amount"`
	DueDate   time.Time        `json:"dueDate" db:"due_date"`
	Status    types.BillStatus `json:"status" db:"status"`
	Source    string           `json:"source" db:"source"`
	PaymentID *string          `json:"paymentId,omitempty" db:"payment_id"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time        `json:"updatedAt" db:"updated_at"`
}
