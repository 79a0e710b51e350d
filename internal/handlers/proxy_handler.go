package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/models"
	"github.com/lucron9090/cruis-api/internal/services/proxy"
	"github.com/lucron9090/cruis-api/internal/services/session"
)

// Response headers recomputed by the transport rather than relayed.
var skippedResponseHeaders = map[string]struct{}{
	"content-length":    {},
	"transfer-encoding": {},
	"connection":        {},
}

// ProxyHandler forwards client requests to the Motor upstreams using stored
// session credentials.
type ProxyHandler struct {
	manager    *session.Manager
	dispatcher *proxy.Dispatcher
	logger     arbor.ILogger
}

// NewProxyHandler creates a new ProxyHandler.
func NewProxyHandler(manager *session.Manager, dispatcher *proxy.Dispatcher, logger arbor.ILogger) *ProxyHandler {
	return &ProxyHandler{
		manager:    manager,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SitesProxyHandler forwards /api/motor/* to the cookie-authenticated sites host.
func (h *ProxyHandler) SitesProxyHandler(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, proxy.TargetSites, strings.TrimPrefix(r.URL.Path, "/api/motor/"), "")
}

// APIProxyHandler forwards /api/motorv1/* to the signature-authenticated API host.
func (h *ProxyHandler) APIProxyHandler(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, proxy.TargetAPI, strings.TrimPrefix(r.URL.Path, "/api/motorv1/"), "")
}

// SitesSessionProxyHandler handles /api/motor-session/{id}/* with the session
// id in the path.
func (h *ProxyHandler) SitesSessionProxyHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, rest, ok := splitSessionPath(r.URL.Path, "/api/motor-session/")
	if !ok {
		WriteError(w, http.StatusBadRequest, "expected /api/motor-session/{id}/{path}", common.CorrelationID(r))
		return
	}
	h.forward(w, r, proxy.TargetSites, rest, sessionID)
}

// APISessionProxyHandler handles /api/motorv1-session/{id}/*.
func (h *ProxyHandler) APISessionProxyHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, rest, ok := splitSessionPath(r.URL.Path, "/api/motorv1-session/")
	if !ok {
		WriteError(w, http.StatusBadRequest, "expected /api/motorv1-session/{id}/{path}", common.CorrelationID(r))
		return
	}
	h.forward(w, r, proxy.TargetAPI, rest, sessionID)
}

// TokenHandler issues a signed POST /Token against the API host, returning the
// vendor's bearer-token response verbatim.
func (h *ProxyHandler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	h.forward(w, r, proxy.TargetAPI, "Token", "")
}

func (h *ProxyHandler) forward(w http.ResponseWriter, r *http.Request, target, upstreamPath, explicitSession string) {
	correlationID := common.CorrelationID(r)

	creds, err := h.resolveCredentials(r, explicitSession)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			WriteError(w, http.StatusUnauthorized, "invalid or expired session", correlationID)
			return
		}
		h.logger.Error().
			Err(err).
			Str("correlation_id", correlationID).
			Msg("Failed to resolve proxy credentials")
		WriteError(w, http.StatusUnauthorized, "unable to authenticate request: "+err.Error(), correlationID)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read request body", correlationID)
		return
	}

	resp, err := h.dispatcher.Dispatch(r.Context(), creds, &proxy.Request{
		Target: target,
		Method: r.Method,
		Path:   upstreamPath,
		Query:  r.URL.RawQuery,
		Header: r.Header,
		Body:   body,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("correlation_id", correlationID).
			Str("path", upstreamPath).
			Msg("Upstream request failed")
		WriteError(w, http.StatusBadGateway, "upstream request failed", correlationID)
		return
	}

	if h.dispatcher.HTMLPolicy() == "error" && proxy.IsHTML(resp) {
		WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"status":        "error",
			"error":         "upstream returned an HTML document instead of data",
			"hint":          "use the JSON API endpoints under /api/motorv1/ (e.g. Information/Years, Information/Makes)",
			"correlationId": correlationID,
		})
		return
	}

	for name, values := range resp.Header {
		if _, skip := skippedResponseHeaders[strings.ToLower(name)]; skip {
			continue
		}
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	w.Header().Set(common.CorrelationHeader, correlationID)
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

// resolveCredentials finds the credentials for one proxied call. Resolution
// order: explicit path session id, X-Session-Id header, ?session= query,
// ad hoc credential headers, then the shared session when configured.
func (h *ProxyHandler) resolveCredentials(r *http.Request, explicitSession string) (*models.MotorCredentials, error) {
	sessionID := explicitSession
	if sessionID == "" {
		sessionID = r.Header.Get("X-Session-Id")
	}
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session")
	}
	if sessionID != "" {
		return h.manager.Resolve(r.Context(), sessionID)
	}

	publicKey := r.Header.Get("X-Public-Key")
	tokenValue := r.Header.Get("X-Api-Token-Value")
	if publicKey != "" && tokenValue != "" {
		return &models.MotorCredentials{
			PublicKey:     publicKey,
			ApiTokenKey:   r.Header.Get("X-Api-Token-Key"),
			ApiTokenValue: tokenValue,
		}, nil
	}

	if h.manager.SharedConfigured() {
		sharedID, err := h.manager.EnsureShared(r.Context())
		if err != nil {
			return nil, err
		}
		return h.manager.Resolve(r.Context(), sharedID)
	}

	return nil, models.ErrSessionNotFound
}

// splitSessionPath splits "/api/motor-session/{id}/{rest}" into id and rest.
func splitSessionPath(path, prefix string) (string, string, bool) {
	remainder := strings.TrimPrefix(path, prefix)
	if remainder == path || remainder == "" {
		return "", "", false
	}
	id, rest, found := strings.Cut(remainder, "/")
	if !found || id == "" || rest == "" {
		return "", "", false
	}
	return id, rest, true
}
