package models

import "errors"

var (
	// ErrTooManyRedirects is returned when a redirect chain exceeds the hop
	// ceiling without reaching a terminal response.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrNavigationTimeout is returned when the login page fails to load
	// within the navigation deadline.
	ErrNavigationTimeout = errors.New("login page navigation timed out")

	// ErrLoginFormNotFound is returned when the card-number input never
	// appears on the login page.
	ErrLoginFormNotFound = errors.New("login form not found")

	// ErrAuthTimeout is returned when the login flow completes without the
	// vendor credentials appearing within the polling cap.
	ErrAuthTimeout = errors.New("timeout waiting for Motor credentials")

	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session not found")
)
