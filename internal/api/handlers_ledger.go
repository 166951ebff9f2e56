package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/kosha-finance/internal/service"
	"github.com/shopspring/decimal"
)

// The income and expense endpoints share their request handling; only
// the summary responses differ in shape.

type recordEntryRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Source      string          `json:"source"`
}

func (s *Server) recordLedgerEntry(w http.ResponseWriter, r *http.Request, svc LedgerServiceInterface) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var req recordEntryRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	entry, err := svc.RecordEntry(r.Context(), &service.RecordEntryInput{
		UserID:      userID,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		OccurredAt:  req.OccurredAt,
		Source:      req.Source,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

func (s *Server) listLedgerEntries(w http.ResponseWriter, r *http.Request, svc LedgerServiceInterface) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
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

	entries, err := svc.ListEntries(r.Context(), userID, startDate, endDate, parseIntParam(r, "limit", 100), parseIntParam(r, "offset", 0))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) deleteLedgerEntry(w http.ResponseWriter, r *http.Request, svc LedgerServiceInterface) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	if err := svc.DeleteEntry(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) importLedgerStatements(w http.ResponseWriter, r *http.Request, svc LedgerServiceInterface) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	result, err := svc.ImportStatements(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Income endpoints

func (s *Server) handleRecordIncome(w http.ResponseWriter, r *http.Request) {
	s.recordLedgerEntry(w, r, s.incomeService)
}

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	s.listLedgerEntries(w, r, s.incomeService)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	s.deleteLedgerEntry(w, r, s.incomeService)
}

func (s *Server) handleImportIncome(w http.ResponseWriter, r *http.Request) {
	s.importLedgerStatements(w, r, s.incomeService)
}

// handleIncomeSummary handles GET /api/income/summary?startDate&endDate
func (s *Server) handleIncomeSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
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

	summary, err := s.incomeService.GetSummary(r.Context(), userID, startDate, endDate)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// Expense endpoints

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	s.recordLedgerEntry(w, r, s.expenseService)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	s.listLedgerEntries(w, r, s.expenseService)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.deleteLedgerEntry(w, r, s.expenseService)
}

func (s *Server) handleImportExpenses(w http.ResponseWriter, r *http.Request) {
	s.importLedgerStatements(w, r, s.expenseService)
}

// handleExpenseSummary handles GET /api/expenses/summary?startDate&endDate
func (s *Server) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
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

	summary, err := s.expenseService.GetSummary(r.Context(), userID, startDate, endDate)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
