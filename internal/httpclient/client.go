package httpclient

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// NewClient creates a resty client with a timeout and browser-like user agent.
// Redirects follow normally; use NewNoRedirectClient when the caller needs to
// inspect each redirect response itself.
func NewClient(timeout time.Duration, userAgent string) *resty.Client {
	client := resty.New().SetTimeout(timeout)
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return client
}

// NewNoRedirectClient creates a resty client that returns redirect responses
// to the caller instead of following them. Status codes are never treated as
// errors, so 4xx/5xx bodies stay inspectable.
func NewNoRedirectClient(timeout time.Duration, userAgent string) *resty.Client {
	client := NewClient(timeout, userAgent)
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	return client
}
