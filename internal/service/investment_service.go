package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/storage"
	"github.com/kosha-finance/internal/types"
	"github.com/shopspring/decimal"
)

// maxValuationConcurrency caps the per-asset fan-out in portfolio valuation.
const maxValuationConcurrency = 8

// Repository interfaces for dependency injection

// AssetRepository interface for asset data operations
type AssetRepository interface {
	Create(ctx context.Context, asset *models.Asset) error
	GetByID(ctx context.Context, id string) (*models.Asset, error)
	ListByUser(ctx context.Context, userID string, assetType *types.AssetType) ([]*models.Asset, error)
	Update(ctx context.Context, asset *models.Asset) error
}

// AssetTransactionRepository interface for the asset ledger
type AssetTransactionRepository interface {
	Create(ctx context.Context, tx *models.AssetTransaction) error
	GetByID(ctx context.Context, id string) (*models.AssetTransaction, error)
	ListByAsset(ctx context.Context, assetID string) ([]*models.AssetTransaction, error)
	ListByUser(ctx context.Context, userID string, filters *storage.TransactionFilters, limit, offset int) ([]*models.AssetTransaction, int, error)
	Update(ctx context.Context, tx *models.AssetTransaction) error
	Delete(ctx context.Context, id string) error
}

// PriceRepository interface for price observations
type PriceRepository interface {
	Upsert(ctx context.Context, price *models.AssetPrice) error
	GetLatest(ctx context.Context, symbol string) (*models.AssetPrice, error)
	History(ctx context.Context, symbol string, startDate, endDate time.Time) ([]models.PricePoint, error)
}

// InvestmentService owns the investment write path and the portfolio
// valuation read path.
type InvestmentService struct {
	assetRepo AssetRepository
	txRepo    AssetTransactionRepository
	priceRepo PriceRepository
}

// NewInvestmentService creates a new investment service
func NewInvestmentService(assetRepo AssetRepository, txRepo AssetTransactionRepository, priceRepo PriceRepository) *InvestmentService {
	return &InvestmentService{
		assetRepo: assetRepo,
		txRepo:    txRepo,
		priceRepo: priceRepo,
	}
}

// Input types

// AddAssetInput represents input for registering an asset
type AddAssetInput struct {
	UserID      string          `json:"userId"`
	Symbol      string          `json:"symbol"`
	Type        types.AssetType `json:"type"`
	Name        string          `json:"name"`
	Institution *string         `json:"institution,omitempty"`
}

// UpdateAssetInput represents metadata edits to an existing asset
type UpdateAssetInput struct {
	AssetID     string  `json:"assetId"`
	UserID      string  `json:"userId"`
	Name        *string `json:"name,omitempty"`
	Institution *string `json:"institution,omitempty"`
}

// AddTransactionInput represents input for appending a ledger entry
type AddTransactionInput struct {
	AssetID         string                `json:"assetId"`
	UserID          string                `json:"userId"`
	TransactionType types.TransactionType `json:"transactionType"`
	TransactionDate time.Time             `json:"transactionDate"`
	Units           decimal.Decimal       `json:"units"`
	PricePerUnit    decimal.Decimal       `json:"pricePerUnit"`
	Fees            decimal.Decimal       `json:"fees"`
}

// UpdateTransactionInput represents edits to a ledger entry. Nil fields
// are left unchanged.
type UpdateTransactionInput struct {
	TransactionID   string                 `json:"transactionId"`
	UserID          string                 `json:"userId"`
	TransactionType *types.TransactionType `json:"transactionType,omitempty"`
	TransactionDate *time.Time             `json:"transactionDate,omitempty"`
	Units           *decimal.Decimal       `json:"units,omitempty"`
	PricePerUnit    *decimal.Decimal       `json:"pricePerUnit,omitempty"`
	Fees            *decimal.Decimal       `json:"fees,omitempty"`
}

// RecordPriceInput represents a price observation to upsert
type RecordPriceInput struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Date   time.Time       `json:"date"`
	Source *string         `json:"source,omitempty"`
}

// Output types

// AssetValuation is one asset marked to market
type AssetValuation struct {
	Asset        *models.Asset   `json:"asset"`
	Holdings     Holdings        `json:"holdings"`
	LatestPrice  decimal.Decimal `json:"latestPrice"`
	CurrentValue decimal.Decimal `json:"currentValue"`
	CurrentCost  decimal.Decimal `json:"currentCost"`
	ROI          decimal.Decimal `json:"roi"`
	ROIPercent   decimal.Decimal `json:"roiPercentage"`
}

// AssetValue is one byAsset entry of the portfolio summary
type AssetValue struct {
	Symbol string          `json:"symbol"`
	Value  decimal.Decimal `json:"value"`
}

// PortfolioSummary aggregates a user's holdings marked to market
type PortfolioSummary struct {
	TotalValue    decimal.Decimal            `json:"totalValue"`
	TotalCost     decimal.Decimal            `json:"totalCost"`
	ROI           decimal.Decimal            `json:"roi"`
	ROIPercentage decimal.Decimal            `json:"roiPercentage"`
	ByType        map[string]decimal.Decimal `json:"byType"`
	ByAsset       []AssetValue               `json:"byAsset"`
}

// AddAsset registers a new asset for a user
func (s *InvestmentService) AddAsset(ctx context.Context, input *AddAssetInput) (*models.Asset, error) {
	if input.UserID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}
	if input.Symbol == "" {
		return nil, &types.ServiceError{
			Code:    "SYMBOL_REQUIRED",
			Message: "asset symbol is required",
		}
	}
	if !validAssetType(input.Type) {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: fmt.Sprintf("unknown asset type: %s", input.Type),
		}
	}

	asset := &models.Asset{
		UserID:      input.UserID,
		Symbol:      input.Symbol,
		Type:        input.Type,
		Name:        input.Name,
		Institution: input.Institution,
	}

	if err := s.assetRepo.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}

	return asset, nil
}

// UpdateAsset applies metadata edits to an asset the caller owns
func (s *InvestmentService) UpdateAsset(ctx context.Context, input *UpdateAssetInput) (*models.Asset, error) {
	asset, err := s.ownedAsset(ctx, input.AssetID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		asset.Name = *input.Name
	}
	if input.Institution != nil {
		asset.Institution = input.Institution
	}

	if err := s.assetRepo.Update(ctx, asset); err != nil {
		return nil, fmt.Errorf("failed to update asset: %w", err)
	}

	return asset, nil
}

// AddTransaction appends a ledger entry to an asset the caller owns.
// TotalAmount is computed here, at write time, and stored.
func (s *InvestmentService) AddTransaction(ctx context.Context, input *AddTransactionInput) (*models.AssetTransaction, error) {
	if !input.TransactionType.Valid() {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: fmt.Sprintf("unknown transaction type: %s", input.TransactionType),
		}
	}
	if !input.Units.IsPositive() {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "units must be positive",
		}
	}
	if !input.PricePerUnit.IsPositive() {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "pricePerUnit must be positive",
		}
	}
	if input.Fees.IsNegative() {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "fees must not be negative",
		}
	}

	// Ownership is checked before any write.
	if _, err := s.ownedAsset(ctx, input.AssetID, input.UserID); err != nil {
		return nil, err
	}

	tx := &models.AssetTransaction{
		AssetID:         input.AssetID,
		UserID:          input.UserID,
		TransactionType: input.TransactionType,
		TransactionDate: input.TransactionDate,
		Units:           input.Units,
		PricePerUnit:    input.PricePerUnit,
		Fees:            input.Fees,
		TotalAmount:     computeTotalAmount(input.Units, input.PricePerUnit, input.Fees),
	}

	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return tx, nil
}

// UpdateTransaction edits a ledger entry the caller owns, recomputing
// TotalAmount whenever units, price or fees change.
func (s *InvestmentService) UpdateTransaction(ctx context.Context, input *UpdateTransactionInput) (*models.AssetTransaction, error) {
	tx, err := s.ownedTransaction(ctx, input.TransactionID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.TransactionType != nil {
		if !input.TransactionType.Valid() {
			return nil, &types.ServiceError{
				Code:    "INVALID_INPUT",
				Message: fmt.Sprintf("unknown transaction type: %s", *input.TransactionType),
			}
		}
		tx.TransactionType = *input.TransactionType
	}
	if input.TransactionDate != nil {
		tx.TransactionDate = *input.TransactionDate
	}

	recompute := false
	if input.Units != nil {
		if !input.Units.IsPositive() {
			return nil, &types.ServiceError{
				Code:    "INVALID_INPUT",
				Message: "units must be positive",
			}
		}
		tx.Units = *input.Units
		recompute = true
	}
	if input.PricePerUnit != nil {
		if !input.PricePerUnit.IsPositive() {
			return nil, &types.ServiceError{
				Code:    "INVALID_INPUT",
				Message: "pricePerUnit must be positive",
			}
		}
		tx.PricePerUnit = *input.PricePerUnit
		recompute = true
	}
	if input.Fees != nil {
		if input.Fees.IsNegative() {
			return nil, &types.ServiceError{
				Code:    "INVALID_INPUT",
				Message: "fees must not be negative",
			}
		}
		tx.Fees = *input.Fees
		recompute = true
	}
	if recompute {
		tx.TotalAmount = computeTotalAmount(tx.Units, tx.PricePerUnit, tx.Fees)
	}

	if err := s.txRepo.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	return tx, nil
}

// DeleteTransaction removes a ledger entry the caller owns
func (s *InvestmentService) DeleteTransaction(ctx context.Context, transactionID, userID string) error {
	if _, err := s.ownedTransaction(ctx, transactionID, userID); err != nil {
		return err
	}

	if err := s.txRepo.Delete(ctx, transactionID); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	return nil
}

// GetTransactionHistory returns the caller's ledger, filtered and paginated
func (s *InvestmentService) GetTransactionHistory(ctx context.Context, userID string, filters *storage.TransactionFilters, limit, offset int) ([]*models.AssetTransaction, int, error) {
	if userID == "" {
		return nil, 0, &types.ServiceError{
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

	return s.txRepo.ListByUser(ctx, userID, filters, limit, offset)
}

// RecordPrice upserts a price observation for a symbol
func (s *InvestmentService) RecordPrice(ctx context.Context, input *RecordPriceInput) (*models.AssetPrice, error) {
	if input.Symbol == "" {
		return nil, &types.ServiceError{
			Code:    "SYMBOL_REQUIRED",
			Message: "symbol is required",
		}
	}
	if !input.Price.IsPositive() {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "price must be positive",
		}
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	price := &models.AssetPrice{
		Symbol: input.Symbol,
		Price:  input.Price,
		Date:   date,
		Source: input.Source,
	}

	if err := s.priceRepo.Upsert(ctx, price); err != nil {
		return nil, fmt.Errorf("failed to record price: %w", err)
	}

	return price, nil
}

// GetPriceHistory returns a symbol's price observations within a window
func (s *InvestmentService) GetPriceHistory(ctx context.Context, symbol string, startDate, endDate time.Time) ([]models.PricePoint, error) {
	if symbol == "" {
		return nil, &types.ServiceError{
			Code:    "SYMBOL_REQUIRED",
			Message: "symbol is required",
		}
	}

	points, err := s.priceRepo.History(ctx, symbol, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}

	return points, nil
}

// ListInvestments returns every asset the user owns, each marked to
// market. Per-asset lookups run concurrently; a missing price values
// the position at zero rather than failing.
func (s *InvestmentService) ListInvestments(ctx context.Context, userID string, assetType *types.AssetType) ([]*AssetValuation, error) {
	if userID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}

	assets, err := s.assetRepo.ListByUser(ctx, userID, assetType)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	return s.valuateAll(ctx, assets)
}

// GetPortfolioSummary marks the user's whole portfolio to market and
// aggregates: totals, ROI, per-type value map, per-asset value list
// sorted descending.
func (s *InvestmentService) GetPortfolioSummary(ctx context.Context, userID string) (*PortfolioSummary, error) {
	if userID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "userId is required",
		}
	}

	assets, err := s.assetRepo.ListByUser(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	valuations, err := s.valuateAll(ctx, assets)
	if err != nil {
		return nil, err
	}

	summary := &PortfolioSummary{
		TotalValue: decimal.Zero,
		TotalCost:  decimal.Zero,
		ByType:     make(map[string]decimal.Decimal),
		ByAsset:    make([]AssetValue, 0, len(valuations)),
	}

	for _, v := range valuations {
		summary.TotalValue = summary.TotalValue.Add(v.CurrentValue)
		summary.TotalCost = summary.TotalCost.Add(v.CurrentCost)
		typeKey := string(v.Asset.Type)
		summary.ByType[typeKey] = summary.ByType[typeKey].Add(v.CurrentValue)
		summary.ByAsset = append(summary.ByAsset, AssetValue{
			Symbol: v.Asset.Symbol,
			Value:  v.CurrentValue,
		})
	}

	sort.SliceStable(summary.ByAsset, func(i, j int) bool {
		return summary.ByAsset[i].Value.GreaterThan(summary.ByAsset[j].Value)
	})

	summary.ROI = summary.TotalValue.Sub(summary.TotalCost)
	if summary.TotalCost.IsPositive() {
		summary.ROIPercentage = summary.ROI.Div(summary.TotalCost).Mul(decimal.NewFromInt(100))
	} else {
		summary.ROIPercentage = decimal.Zero
	}

	return summary, nil
}

// valuateAll computes per-asset valuations concurrently. All branches
// must complete before aggregation; the first error fails the whole
// call.
func (s *InvestmentService) valuateAll(ctx context.Context, assets []*models.Asset) ([]*AssetValuation, error) {
	valuations := make([]*AssetValuation, len(assets))
	errs := make([]error, len(assets))

	sem := make(chan struct{}, maxValuationConcurrency)
	var wg sync.WaitGroup
	for i, asset := range assets {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, asset *models.Asset) {
			defer wg.Done()
			defer func() { <-sem }()
			valuations[i], errs[i] = s.valuate(ctx, asset)
		}(i, asset)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return valuations, nil
}

// valuate marks one asset to market. No transactions means zero units;
// no price observation means zero value. Neither is an error.
func (s *InvestmentService) valuate(ctx context.Context, asset *models.Asset) (*AssetValuation, error) {
	transactions, err := s.txRepo.ListByAsset(ctx, asset.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for asset %s: %w", asset.ID, err)
	}

	holdings := ComputeHoldings(transactions)

	price := decimal.Zero
	latest, err := s.priceRepo.GetLatest(ctx, asset.Symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest price for %s: %w", asset.Symbol, err)
	}
	if latest != nil {
		price = latest.Price
	}

	currentValue := holdings.TotalUnits.Mul(price)
	currentCost := holdings.AverageCost.Mul(holdings.TotalUnits)
	roi := currentValue.Sub(currentCost)

	roiPercent := decimal.Zero
	if currentCost.IsPositive() {
		roiPercent = roi.Div(currentCost).Mul(decimal.NewFromInt(100))
	}

	return &AssetValuation{
		Asset:        asset,
		Holdings:     holdings,
		LatestPrice:  price,
		CurrentValue: currentValue,
		CurrentCost:  currentCost,
		ROI:          roi,
		ROIPercent:   roiPercent,
	}, nil
}

// ownedAsset loads an asset and enforces ownership
func (s *InvestmentService) ownedAsset(ctx context.Context, assetID, userID string) (*models.Asset, error) {
	if assetID == "" || userID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "assetId and userId are required",
		}
	}

	asset, err := s.assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	if asset == nil {
		return nil, &types.ServiceError{
			Code:    "ASSET_NOT_FOUND",
			Message: fmt.Sprintf("asset not found: %s", assetID),
			Details: map[string]interface{}{"assetId": assetID},
		}
	}
	if asset.UserID != userID {
		return nil, &types.ServiceError{
			Code:    "FORBIDDEN",
			Message: "asset belongs to a different user",
			Details: map[string]interface{}{"assetId": assetID},
		}
	}

	return asset, nil
}

// ownedTransaction loads a ledger entry and enforces ownership
func (s *InvestmentService) ownedTransaction(ctx context.Context, transactionID, userID string) (*models.AssetTransaction, error) {
	if transactionID == "" || userID == "" {
		return nil, &types.ServiceError{
			Code:    "INVALID_INPUT",
			Message: "transactionId and userId are required",
		}
	}

	tx, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if tx == nil {
		return nil, &types.ServiceError{
			Code:    "TRANSACTION_NOT_FOUND",
			Message: fmt.Sprintf("transaction not found: %s", transactionID),
			Details: map[string]interface{}{"transactionId": transactionID},
		}
	}
	if tx.UserID != userID {
		return nil, &types.ServiceError{
			Code:    "FORBIDDEN",
			Message: "transaction belongs to a different user",
			Details: map[string]interface{}{"transactionId": transactionID},
		}
	}

	return tx, nil
}

func computeTotalAmount(units, pricePerUnit, fees decimal.Decimal) decimal.Decimal {
	return units.Mul(pricePerUnit).Add(fees)
}

func validAssetType(t types.AssetType) bool {
	switch t {
	case types.AssetStock, types.AssetMutualFund, types.AssetCrypto, types.AssetGold, types.AssetFixedDeposit:
		return true
	}
	return false
}
