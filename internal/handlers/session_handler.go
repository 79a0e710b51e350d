package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/models"
	"github.com/lucron9090/cruis-api/internal/services/session"
)

// SessionHandler manages stored sessions.
type SessionHandler struct {
	manager *session.Manager
	logger  arbor.ILogger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(manager *session.Manager, logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		logger:  logger,
	}
}

// DeleteHandler removes a session by id. Unknown ids are a 404, so clients can
// distinguish a cleanup no-op from a successful logout.
func (h *SessionHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	correlationID := common.CorrelationID(r)

	sessionID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/session/"), "/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		WriteError(w, http.StatusBadRequest, "expected /api/session/{id}", correlationID)
		return
	}

	if err := h.manager.Delete(r.Context(), sessionID); err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			WriteError(w, http.StatusNotFound, "session not found", correlationID)
			return
		}
		h.logger.Error().
			Err(err).
			Str("correlation_id", correlationID).
			Str("session_id", sessionID).
			Msg("Failed to delete session")
		WriteError(w, http.StatusInternalServerError, "failed to delete session", correlationID)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"sessionId":     sessionID,
		"correlationId": correlationID,
	})
}
