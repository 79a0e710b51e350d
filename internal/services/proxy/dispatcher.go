package proxy

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/httpclient"
	"github.com/lucron9090/cruis-api/internal/models"
	"github.com/lucron9090/cruis-api/internal/services/auth"
)

// Upstream targets. The sites host authenticates with the captured cookie bag;
// the API host expects a per-request shared-key signature.
const (
	TargetSites = "sites"
	TargetAPI   = "api"
)

// Headers never copied from the client request to the upstream. The proxy owns
// authentication, so client-supplied cookies and session markers must not leak
// through, and hop-by-hop headers are recomputed by the transport.
var deniedHeaders = map[string]struct{}{
	"host":           {},
	"cookie":         {},
	"x-session-id":   {},
	"content-length": {},
	"connection":     {},
	"session":        {},
}

// Request describes one client call to forward upstream.
type Request struct {
	Target string // TargetSites or TargetAPI
	Method string
	Path   string // path under the upstream base
	Query  string // raw query string, may be empty
	Header http.Header
	Body   []byte
}

// Response is the upstream reply, relayed to the client whatever its status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Dispatcher forwards client requests to the Motor upstreams, injecting the
// authentication material each host expects.
type Dispatcher struct {
	client *resty.Client
	config *common.UpstreamConfig
	logger arbor.ILogger
}

// NewDispatcher creates the upstream dispatcher.
func NewDispatcher(config *common.Config, logger arbor.ILogger) *Dispatcher {
	return &Dispatcher{
		client: httpclient.NewClient(config.Upstream.RequestTimeout, ""),
		config: &config.Upstream,
		logger: logger,
	}
}

// Dispatch forwards one request using the given credentials. Upstream statuses
// are relayed verbatim; only transport failures return an error.
func (d *Dispatcher) Dispatch(ctx context.Context, creds *models.MotorCredentials, preq *Request) (*Response, error) {
	targetURL, signPath, err := d.buildURL(preq)
	if err != nil {
		return nil, err
	}

	req := d.client.R().SetContext(ctx)

	for name, values := range preq.Header {
		if _, denied := deniedHeaders[strings.ToLower(name)]; denied {
			continue
		}
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	switch preq.Target {
	case TargetAPI:
		// Signature covers the verb, epoch, and URI path, so it is
		// computed fresh for every request.
		for name, value := range auth.SignatureHeaders(creds, preq.Method, signPath, time.Now()) {
			req.SetHeader(name, value)
		}
	default:
		cookie := creds.CookieString
		if cookie == "" {
			cookie = auth.BuildAuthCookie(creds)
		}
		sitesBase := strings.TrimRight(d.config.SitesURL, "/")
		req.SetHeader("Cookie", cookie)
		req.SetHeader("Referer", sitesBase+"/")
		req.SetHeader("Origin", sitesBase)
	}

	if len(preq.Body) > 0 {
		req.SetBody(preq.Body)
	}

	d.logger.Debug().
		Str("target", preq.Target).
		Str("method", preq.Method).
		Str("path", signPath).
		Msg("Dispatching upstream request")

	resp, err := req.Execute(preq.Method, targetURL)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed for %s %s: %w", preq.Method, signPath, err)
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

// HTMLPolicy reports the configured handling for HTML upstream responses.
func (d *Dispatcher) HTMLPolicy() string {
	return d.config.HTMLPolicy
}

// buildURL joins the upstream base with the request path and returns the full
// URL plus the URI path used as signing material.
func (d *Dispatcher) buildURL(preq *Request) (string, string, error) {
	base := d.config.SitesURL
	if preq.Target == TargetAPI {
		base = d.config.APIURL
	}
	// Chained deployments forward everything to another bridge instance.
	if d.config.ProxyBaseURL != "" {
		base = d.config.ProxyBaseURL
	}

	full := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(preq.Path, "/")
	if preq.Query != "" {
		full += "?" + preq.Query
	}

	parsed, err := url.Parse(full)
	if err != nil {
		return "", "", fmt.Errorf("invalid upstream url %q: %w", full, err)
	}
	return full, parsed.Path, nil
}

// IsHTML reports whether an upstream response is an HTML document, by content
// type or by sniffing the body prefix.
func IsHTML(resp *Response) bool {
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/html") {
		return true
	}
	trimmed := bytes.ToLower(bytes.TrimSpace(resp.Body))
	return bytes.HasPrefix(trimmed, []byte("<!doctype html")) || bytes.HasPrefix(trimmed, []byte("<html"))
}
