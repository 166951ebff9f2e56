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

// handleCreateBill handles POST /api/bills
func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var req struct {
		Provider string          `json:"provider"`
		Category string          `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
		DueDate  time.Time       `json:"dueDate"`
		Source   string          `json:"source"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	bill, err := s.billService.CreateBill(r.Context(), &service.CreateBillInput{
		UserID:   userID,
		Provider: req.Provider,
		Category: req.Category,
		Amount:   req.Amount,
		DueDate:  req.DueDate,
		Source:   req.Source,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, bill)
}

// handleListBills handles GET /api/bills?status&category&startDate&endDate&limit&offset
func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	filters := &storage.BillFilters{
		Category: r.URL.Query().Get("category"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := types.BillStatus(raw)
		filters.Status = &status
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

	page, err := s.billService.ListBills(r.Context(), userID, filters, parseIntParam(r, "limit", 50), parseIntParam(r, "offset", 0))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// handleListUpcomingBills handles GET /api/bills/upcoming?days
func (s *Server) handleListUpcomingBills(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	bills, err := s.billService.ListUpcomingBills(r.Context(), userID, parseIntParam(r, "days", 30))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, bills)
}

// handleMarkBillPaid handles POST /api/bills/{id}/pay
func (s *Server) handleMarkBillPaid(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var req struct {
		PaymentID *string `json:"paymentId,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := parseJSONBody(r, &req); err != nil {
			respondErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
			return
		}
	}

	bill, err := s.billService.MarkPaid(r.Context(), mux.Vars(r)["id"], userID, req.PaymentID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, bill)
}

// handleImportBills handles POST /api/bills/import
func (s *Server) handleImportBills(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	result, err := s.billService.ImportStatements(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
