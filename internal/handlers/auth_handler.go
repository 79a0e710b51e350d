package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/services/session"
)

// AuthHandler exposes the library-card login flow.
type AuthHandler struct {
	manager  *session.Manager
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(manager *session.Manager, logger arbor.ILogger) *AuthHandler {
	return &AuthHandler{
		manager:  manager,
		validate: validator.New(),
		logger:   logger,
	}
}

type authRequest struct {
	CardNumber string `json:"cardNumber" validate:"required"`
}

// AuthenticateHandler runs the login flow with the submitted card number and
// returns the new session id plus client-safe credential fields.
func (h *AuthHandler) AuthenticateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	correlationID := common.CorrelationID(r)

	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body", correlationID)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "cardNumber is required", correlationID)
		return
	}

	h.logger.Info().
		Str("correlation_id", correlationID).
		Msg("Authentication requested")

	sessionID, creds, err := h.manager.Authenticate(r.Context(), req.CardNumber)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("correlation_id", correlationID).
			Msg("Authentication failed")
		WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success":       false,
			"error":         "authentication failed: " + err.Error(),
			"correlationId": correlationID,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"sessionId":     sessionID,
		"correlationId": correlationID,
		"credentials":   creds.Summary(),
	})
}
