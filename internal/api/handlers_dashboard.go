package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kosha-finance/internal/types"
)

// handleGetSummary handles GET /api/dashboard/summary?startDate&endDate
func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
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

	summary, err := s.dashboardService.GetSummary(r.Context(), userID, startDate, endDate)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// handleGetHealthMetrics handles GET /api/dashboard/health?period
func (s *Server) handleGetHealthMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	period := types.Period(r.URL.Query().Get("period"))

	metrics, err := s.dashboardService.GetHealthMetrics(r.Context(), userID, period)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, metrics)
}

// handleGetTrends handles GET /api/dashboard/trends?period&metric
func (s *Server) handleGetTrends(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	period := types.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = types.PeriodMonth
	}
	metric := types.TrendMetric(r.URL.Query().Get("metric"))
	if metric == "" {
		metric = types.MetricSavings
	}

	points, err := s.dashboardService.GetTrends(r.Context(), userID, period, metric)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, points)
}

// parseDateParam reads an optional date query parameter, accepting
// RFC3339 or bare dates.
func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseIntParam reads an optional integer query parameter
func parseIntParam(r *http.Request, name string, defaultValue int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
