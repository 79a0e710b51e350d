package httpclient

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/lucron9090/cruis-api/internal/models"
)

// RedirectResult carries the terminal state of one follow operation: the final
// response, the merged cookie jar, and the ordered chain of URLs visited.
// Ephemeral: callers discard it once cookies/credentials are lifted out.
type RedirectResult struct {
	StatusCode int
	Body       []byte
	Header     map[string][]string
	Cookies    string
	FinalURL   string
	Chain      []string
	Hops       int
}

// Follower issues manual GETs with redirects disabled at the transport so each
// server response is inspected directly. Set-Cookie headers are merged into a
// running cookie string at every hop.
type Follower struct {
	client  *resty.Client
	limiter *rate.Limiter
	maxHops int
	logger  arbor.ILogger
}

// NewFollower creates a redirect follower with the given hop ceiling and
// minimum spacing between hops.
func NewFollower(client *resty.Client, maxHops int, hopDelay time.Duration, logger arbor.ILogger) *Follower {
	if maxHops <= 0 {
		maxHops = 10
	}
	limit := rate.Inf
	if hopDelay > 0 {
		limit = rate.Every(hopDelay)
	}
	return &Follower{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		maxHops: maxHops,
		logger:  logger,
	}
}

// Follow walks the redirect chain from startURL, sending cookies on each
// request and merging Set-Cookie responses into the running jar.
//
// Termination, checked in order after each response:
//  1. status >= 500: stop and return the response for inspection (not an error)
//  2. Location header present: resolve relative to the current URL and continue
//  3. otherwise: terminal response, return it with merged cookies
//
// Exceeding the hop ceiling without a terminal response fails with
// models.ErrTooManyRedirects after exactly maxHops requests.
func (f *Follower) Follow(ctx context.Context, startURL, cookies string, headers map[string]string) (*RedirectResult, error) {
	currentURL := startURL
	chain := []string{startURL}

	for hop := 0; hop < f.maxHops; hop++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req := f.client.R().SetContext(ctx).SetHeaders(headers)
		if cookies != "" {
			req.SetHeader("Cookie", cookies)
		}

		resp, err := req.Get(currentURL)
		if err != nil {
			return nil, fmt.Errorf("redirect hop %d failed for %s: %w", hop+1, currentURL, err)
		}

		if setCookies := resp.Header().Values("Set-Cookie"); len(setCookies) > 0 {
			cookies = MergeCookies(cookies, setCookies)
		}

		result := &RedirectResult{
			StatusCode: resp.StatusCode(),
			Body:       resp.Body(),
			Header:     resp.Header(),
			Cookies:    cookies,
			FinalURL:   currentURL,
			Chain:      chain,
			Hops:       hop + 1,
		}

		// 5xx stops the chain but stays inspectable for the caller.
		if resp.StatusCode() >= 500 {
			f.logger.Warn().
				Int("status", resp.StatusCode()).
				Str("url", currentURL).
				Msg("Redirect chain stopped on server error")
			return result, nil
		}

		location := resp.Header().Get("Location")
		if location == "" {
			return result, nil
		}

		next, err := resolveLocation(currentURL, location)
		if err != nil {
			return nil, fmt.Errorf("invalid redirect location %q from %s: %w", location, currentURL, err)
		}

		f.logger.Debug().
			Int("hop", hop+1).
			Int("status", resp.StatusCode()).
			Str("next", truncateURL(next)).
			Msg("Following redirect")

		currentURL = next
		chain = append(chain, next)
	}

	return nil, fmt.Errorf("%w: exceeded %d hops from %s", models.ErrTooManyRedirects, f.maxHops, startURL)
}

// resolveLocation resolves a possibly-relative Location header against the
// URL that produced it.
func resolveLocation(current, location string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	loc, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(loc).String(), nil
}

func truncateURL(u string) string {
	if len(u) > 100 {
		return u[:100] + "..."
	}
	return u
}
