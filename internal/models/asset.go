package models

import (
	"time"

	"github.com/kosha-finance/internal/types"
	"github.com/shopspring/decimal"
)

// Asset represents an investment instrument owned by a user
type Asset struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"userId" db:"user_id"`
	Symbol      string          `json:"symbol" db:"symbol"`
	Type        types.AssetType `json:"type" db:"type"`
	Name        string          `json:"name" db:"name"`
	Institution *string         `json:"institution,omitempty" db:"institution"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// AssetTransaction represents one append-only ledger entry for an asset.
// TotalAmount is computed as units*pricePerUnit+fees at write time and
// stored; it is never recomputed on read.
type AssetTransaction struct {
	ID              string                `json:"id" db:"id"`
	AssetID         string                `json:"assetId" db:"asset_id"`
	UserID          string                `json:"userId" db:"user_id"`
	TransactionType types.TransactionType `json:"transactionType" db:"transaction_type"`
	TransactionDate time.Time             `json:"transactionDate" db:"transaction_date"`
	Units           decimal.Decimal       `json:"units" db:"units"`
	PricePerUnit    decimal.Decimal       `json:"pricePerUnit" db:"price_per_unit"`
	Fees            decimal.Decimal       `json:"fees" db:"fees"`
	TotalAmount     decimal.Decimal       `json:"totalAmount" db:"total_amount"`
	CreatedAt       time.Time             `json:"createdAt" db:"created_at"`
}

// AssetPrice represents a point-in-time price observation for a symbol.
// Observations are unique per (symbol, date); the latest by date is the
// current price.
type AssetPrice struct {
	ID     string          `json:"id" db:"id"`
	Symbol string          `json:"symbol" db:"symbol"`
	Price  decimal.Decimal `json:"price" db:"price"`
	Date   time.Time       `json:"date" db:"date"`
	Source *string         `json:"source,omitempty" db:"source"`
}

// PricePoint is one entry of a symbol's price history
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Price decimal.Decimal `json:"price"`
}
