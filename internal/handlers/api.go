package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/services/session"
)

type APIHandler struct {
	manager *session.Manager
	logger  arbor.ILogger
}

func NewAPIHandler(manager *session.Manager, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		manager: manager,
		logger:  logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.Build,
		"git_commit": common.GitCommit,
	})
}

// HealthHandler returns health check status, the live session count, and the
// validity of the shared session when one is configured.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	count, err := h.manager.Count(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count sessions for health check")
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"activeSessions": count,
		"sharedSession": map[string]bool{
			"configured": h.manager.SharedConfigured(),
			"valid":      h.manager.SharedValid(r.Context()),
		},
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
