package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/kosha-finance/internal/service"
	"github.com/kosha-finance/internal/storage"
	"github.com/kosha-finance/internal/types"
	"github.com/shopspring/decimal"
)

// handleListInvestments handles GET /api/investments?type
func (s *Server) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var assetType *types.AssetType
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := types.AssetType(raw)
		assetType = &t
	}

	valuations, err := s.investmentService.ListInvestments(r.Context(), userID, assetType)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, valuations)
}

// handleGetPortfolio handles GET /api/investments/portfolio
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	summary, err := s.investmentService.GetPortfolioSummary(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// handleAddAsset handles POST /api/investments/assets
func (s *Server) handleAddAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var req struct {
		Symbol      string  `json:"symbol"`
		Type        string  `json:"type"`
		Name        string  `json:"name"`
		Institution *string `json:"institution,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	asset, err := s.investmentService.AddAsset(r.Context(), &service.AddAssetInput{
		UserID:      userID,
		Symbol:      req.Symbol,
		Type:        types.AssetType(req.Type),
		Name:        req.Name,
		Institution: req.Institution,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, asset)
}

// handleUpdateAsset handles PUT /api/investments/assets/{id}
func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var req struct {
		Name        *string `json:"name,omitempty"`
		Institution *string `json:"institution,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	asset, err := s.investmentService.UpdateAsset(r.Context(), &service.UpdateAssetInput{
		AssetID:     mux.Vars(r)["id"],
		UserID:      userID,
		Name:        req.Name,
		Institution: req.Institution,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, asset)
}

// handleAddTransaction handles POST /api/investments/transactions
func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var req struct {
		AssetID         string          `json:"assetId"`
		TransactionType string          `json:"transactionType"`
		TransactionDate time.Time       `json:"transactionDate"`
		Units           decimal.Decimal `json:"units"`
		PricePerUnit    decimal.Decimal `json:"pricePerUnit"`
		Fees            decimal.Decimal `json:"fees"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	tx, err := s.investmentService.AddTransaction(r.Context(), &service.AddTransactionInput{
		AssetID:         req.AssetID,
		UserID:          userID,
		TransactionType: types.TransactionType(req.TransactionType),
		TransactionDate: req.TransactionDate,
		Units:           req.Units,
		PricePerUnit:    req.PricePerUnit,
		Fees:            req.Fees,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, tx)
}

// handleUpdateTransaction handles PUT /api/investments/transactions/{id}
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var req struct {
		TransactionType *string          `json:"transactionType,omitempty"`
		TransactionDate *time.Time       `json:"transactionDate,omitempty"`
		Units           *decimal.Decimal `json:"units,omitempty"`
		PricePerUnit    *decimal.Decimal `json:"pricePerUnit,omitempty"`
		Fees            *decimal.Decimal `json:"fees,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	input := &service.UpdateTransactionInput{
		TransactionID:   mux.Vars(r)["id"],
		UserID:          userID,
		TransactionDate: req.TransactionDate,
		Units:           req.Units,
		PricePerUnit:    req.PricePerUnit,
		Fees:            req.Fees,
	}
	if req.TransactionType != nil {
		t := types.TransactionType(*req.TransactionType)
		input.TransactionType = &t
	}

	tx, err := s.investmentService.UpdateTransaction(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tx)
}

// handleDeleteTransaction handles DELETE /api/investments/transactions/{id}
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	if err := s.investmentService.DeleteTransaction(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// handleGetTransactionHistory handles GET /api/investments/transactions
func (s *Server) handleGetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	filters := &storage.TransactionFilters{
		AssetID: r.URL.Query().Get("assetId"),
	}
	if raw := r.URL.Query().Get("transactionType"); raw != "" {
		t := types.TransactionType(raw)
		filters.TransactionType = &t
	}
	var err error
	if filters.StartDate, err = parseDateParam(r, "startDate"); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "startDate must be RFC3339 or YYYY-MM-DD", nil)
		return
	}
	if filters.EndDate, err = parseDateParam(r, "endDate"); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "endDate must be RFC3339 or YYYY-MM-DD", nil)
		return
	}

	limit := parseIntParam(r, "limit", 50)
	offset := parseIntParam(r, "offset", 0)

	transactions, total, err := s.investmentService.GetTransactionHistory(r.Context(), userID, filters, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"total":        total,
	})
}

// handleRecordPrice handles POST /api/investments/prices
func (s *Server) handleRecordPrice(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserIDFromContext(r.Context()); !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var req struct {
		Symbol string          `json:"symbol"`
		Price  decimal.Decimal `json:"price"`
		Date   time.Time       `json:"date"`
		Source *string         `json:"source,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	price, err := s.investmentService.RecordPrice(r.Context(), &service.RecordPriceInput{
		Symbol: req.Symbol,
		Price:  req.Price,
		Date:   req.Date,
		Source: req.Source,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, price)
}

// handleGetPriceHistory handles GET /api/investments/prices/{symbol}/history
func (s *Server) handleGetPriceHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserIDFromContext(r.Context()); !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	startDate, err := parseDateParam(r, "startDate")
	if err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "startDate must be RFC3339 or YYYY-MM-DD", nil)
		return
	}
	endDate, err := parseDateParam(r, "endDate")
	if err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "endDate must be RFC3339 or YYYY-MM-DD", nil)
		return
	}

	now := time.Now()
	start := now.AddDate(-1, 0, 0)
	end := now
	if startDate != nil {
		start = *startDate
	}
	if endDate != nil {
		end = *endDate
	}

	points, err := s.investmentService.GetPriceHistory(r.Context(), mux.Vars(r)["symbol"], start, end)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, points)
}
