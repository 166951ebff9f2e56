package service

import (
	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/types"
	"github.com/shopspring/decimal"
)

// Holdings is the derived current position for one asset: net units held
// and the weighted-average cost per unit. It is never persisted; it is
// recomputed from the transaction ledger on demand.
type Holdings struct {
	TotalUnits  decimal.Decimal `json:"totalUnits"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	AverageCost decimal.Decimal `json:"averageCost"`
}

// ComputeHoldings folds an asset's full transaction ledger into its
// current holdings. The reduction is commutative, so transaction order
// does not matter: BUY adds units and the stored totalAmount to the
// running cost, SELL subtracts both. A SELL subtracts its own recorded
// totalAmount from cost, not the sold units at the running average, so
// cost can go negative or non-monotonic under some sell patterns.
// Negative net units from overselling are retained as-is, not clamped.
func ComputeHoldings(transactions []*models.AssetTransaction) Holdings {
	totalUnits := decimal.Zero
	totalCost := decimal.Zero

	for _, tx := range transactions {
		switch tx.TransactionType {
		case types.TransactionBuy:
			totalUnits = totalUnits.Add(tx.Units)
			totalCost = totalCost.Add(tx.TotalAmount)
		case types.TransactionSell:
			totalUnits = totalUnits.Sub(tx.Units)
			totalCost = totalCost.Sub(tx.TotalAmount)
		}
	}

	averageCost := decimal.Zero
	if totalUnits.IsPositive() {
		averageCost = totalCost.Div(totalUnits)
	}

	return Holdings{
		TotalUnits:  totalUnits,
		TotalCost:   totalCost,
		AverageCost: averageCost,
	}
}
