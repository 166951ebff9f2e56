package api

import (
	"net/http"
	"time"

	"github.com/kosha-finance/internal/models"
	"github.com/kosha-finance/internal/service"
)

// handleListNotifications handles GET /api/notifications
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	notifications, err := s.notificationService.ListNotifications(r.Context(), userID, parseIntParam(r, "limit", 50), parseIntParam(r, "offset", 0))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, notifications)
}

// handleScheduleNotification handles POST /api/notifications
func (s *Server) handleScheduleNotification(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var req struct {
		Title       string    `json:"title"`
		Body        string    `json:"body"`
		Channel     string    `json:"channel"`
		ScheduledAt time.Time `json:"scheduledAt"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	notification, err := s.notificationService.Schedule(r.Context(), &service.ScheduleInput{
		UserID:      userID,
		Title:       req.Title,
		Body:        req.Body,
		Channel:     req.Channel,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, notification)
}

// handleGetPreferences handles GET /api/notifications/preferences
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	prefs, err := s.notificationService.GetPreferences(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, prefs)
}

// handleUpdatePreferences handles PUT /api/notifications/preferences
func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	var req struct {
		EmailEnabled bool    `json:"emailEnabled"`
		PushEnabled  bool    `json:"pushEnabled"`
		DNDStart     *string `json:"dndStart"`
		DNDEnd       *string `json:"dndEnd"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondErrorCode(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}

	prefs := &models.NotificationPreferences{
		UserID:       userID,
		EmailEnabled: req.EmailEnabled,
		PushEnabled:  req.PushEnabled,
		DNDStart:     req.DNDStart,
		DNDEnd:       req.DNDEnd,
	}
	if err := s.notificationService.UpdatePreferences(r.Context(), prefs); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, prefs)
}
