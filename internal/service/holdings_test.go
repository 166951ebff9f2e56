package service

import (
	"testing"

	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func buyTx(units, pricePerUnit, fees float64) *models.AssetTransaction {
	return ledgerTx(types.TransactionBuy, units, pricePerUnit, fees)
}

func sellTx(units, pricePerUnit, fees float64) *models.AssetTransaction {
	return ledgerTx(types.TransactionSell, units, pricePerUnit, fees)
}

func ledgerTx(txType types.TransactionType, units, pricePerUnit, fees float64) *models.AssetTransaction {
	u := decimal.NewFromFloat(units)
	p := decimal.NewFromFloat(pricePerUnit)
	f := decimal.NewFromFloat(fees)
	return &models.AssetTransaction{
		TransactionType: txType,
		Units:           u,
		PricePerUnit:    p,
		Fees:            f,
		TotalAmount:     u.Mul(p).Add(f),
	}
}

func TestComputeHoldings_BuyThenSell(t *testing.T) {
	// BUY 10 @ 100, SELL 4 @ 120: net 6 units, cost 1000 - 480 = 520.
	holdings := ComputeHoldings([]*models.AssetTransaction{
		buyTx(10, 100, 0),
		sellTx(4, 120, 0),
	})

	assert.True(t, holdings.TotalUnits.Equal(decimal.NewFromInt(6)), "totalUnits = %s", holdings.TotalUnits)
	assert.True(t, holdings.TotalCost.Equal(decimal.NewFromInt(520)), "totalCost = %s", holdings.TotalCost)

	wantAvg := decimal.NewFromInt(520).Div(decimal.NewFromInt(6))
	assert.True(t, holdings.AverageCost.Equal(wantAvg), "averageCost = %s", holdings.AverageCost)
}

func TestComputeHoldings_Empty(t *testing.T) {
	holdings := ComputeHoldings(nil)

	assert.True(t, holdings.TotalUnits.IsZero())
	assert.True(t, holdings.TotalCost.IsZero())
	assert.True(t, holdings.AverageCost.IsZero())
}

func TestComputeHoldings_FeesIncludedInCost(t *testing.T) {
	holdings := ComputeHoldings([]*models.AssetTransaction{
		buyTx(10, 100, 25),
	})

	assert.True(t, holdings.TotalCost.Equal(decimal.NewFromInt(1025)), "totalCost = %s", holdings.TotalCost)
}

func TestComputeHoldings_OversellNotClamped(t *testing.T) {
	holdings := ComputeHoldings([]*models.AssetTransaction{
		buyTx(5, 100, 0),
		sellTx(8, 100, 0),
	})

	assert.True(t, holdings.TotalUnits.Equal(decimal.NewFromInt(-3)), "totalUnits = %s", holdings.TotalUnits)
	// Average cost falls back to zero when no positive position remains.
	assert.True(t, holdings.AverageCost.IsZero())
}

func TestComputeHoldings_OrderIndependent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	type txSpec struct {
		Buy   bool
		Units float64
		Price float64
		Fees  float64
	}

	genTx := gopter.CombineGens(
		gen.Bool(),
		gen.Float64Range(0.01, 1000),
		gen.Float64Range(0.01, 5000),
		gen.Float64Range(0, 50),
	).Map(func(vals []interface{}) txSpec {
		return txSpec{
			Buy:   vals[0].(bool),
			Units: vals[1].(float64),
			Price: vals[2].(float64),
			Fees:  vals[3].(float64),
		}
	})

	properties.Property("holdings are invariant under ledger permutation", prop.ForAll(
		func(specs []txSpec, seed int64) bool {
			txs := make([]*models.AssetTransaction, len(specs))
			for i, s := range specs {
				txType := types.TransactionSell
				if s.Buy {
					txType = types.TransactionBuy
				}
				txs[i] = ledgerTx(txType, s.Units, s.Price, s.Fees)
			}

			shuffled := make([]*models.AssetTransaction, len(txs))
			copy(shuffled, txs)
			// Deterministic Fisher-Yates driven by the generated seed.
			r := seed
			for i := len(shuffled) - 1; i > 0; i-- {
				r = r*6364136223846793005 + 1442695040888963407
				j := int((r%int64(i+1) + int64(i+1)) % int64(i+1))
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			}

			a := ComputeHoldings(txs)
			b := ComputeHoldings(shuffled)
			return a.TotalUnits.Equal(b.TotalUnits) && a.TotalCost.Equal(b.TotalCost)
		},
		gen.SliceOf(genTx),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
