package common

import (
	"net/http"

	"github.com/google/uuid"
)

// CorrelationHeader is the canonical correlation id header. Inbound requests
// may carry any of the accepted aliases; the middleware normalizes onto this
// name so handlers never scan variants themselves.
const CorrelationHeader = "X-Correlation-Id"

// correlationAliases lists the accepted inbound header variants, checked in
// order. The canonical name is first so a normalized request short-circuits.
var correlationAliases = []string{
	CorrelationHeader,
	"X-CorrelationId",
	"X-Correlation",
	"XCorrelationId",
}

// CorrelationID returns the request's correlation id, consulting the alias
// list, or generates a fresh one when no variant is present.
func CorrelationID(r *http.Request) string {
	for _, name := range correlationAliases {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return NewCorrelationID()
}

// NewCorrelationID generates a fresh correlation id.
func NewCorrelationID() string {
	return uuid.New().String()
}

// NewSessionID generates an opaque session identifier.
func NewSessionID() string {
	return uuid.New().String()
}
