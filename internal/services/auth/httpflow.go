package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/lucron9090/cruis-api/internal/httpclient"
	"github.com/lucron9090/cruis-api/internal/models"
)

// Continuations that arrive as a rendered page instead of a Location header.
var (
	metaRefreshPattern    = regexp.MustCompile(`(?i)<meta[^>]+http-equiv=["']refresh["'][^>]+content=["']\d+;\s*url=([^"']+)["']`)
	scriptRedirectPattern = regexp.MustCompile(`(?i)window\.location(?:\.href)?\s*=\s*["']([^"']+)["']`)
)

// httpFlow replays the login redirect chain over plain HTTP: walk the EBSCO
// entry chain, submit the card number to the prompted-login API, then chase
// the continuation until the AuthUserInfo cookie appears on the vendor domain.
// Cheaper than the browser flow but brittle against login-page changes.
func (s *Service) httpFlow(ctx context.Context, cardNumber string) (*models.MotorCredentials, error) {
	headers := s.browserHeaders()

	initial, err := s.follower.Follow(ctx, s.config.LoginURL, "", headers)
	if err != nil {
		return nil, err
	}
	cookies := initial.Cookies

	// IP-authorized networks can land on the vendor domain without a prompt.
	if creds, ok := ExtractCredentials(cookies); ok {
		return creds, nil
	}

	continuation := continuationFromURL(initial.FinalURL)

	next, updated, err := s.submitCardNumber(ctx, cardNumber, cookies, headers)
	if err != nil {
		return nil, err
	}
	cookies = updated
	if next != "" {
		continuation = next
	}
	if continuation == "" {
		s.logger.Warn().Str("final_url", initial.FinalURL).Msg("Login flow produced no continuation URL")
		return nil, models.ErrAuthTimeout
	}

	// Chase continuations; each round may end in another rendered page that
	// names the next URL, so the loop is bounded separately from the
	// per-round hop ceiling.
	for round := 0; round < 5; round++ {
		result, err := s.follower.Follow(ctx, continuation, cookies, headers)
		if err != nil {
			return nil, err
		}
		cookies = result.Cookies

		if creds, ok := ExtractCredentials(cookies); ok {
			return creds, nil
		}

		body := string(result.Body)
		if nextURL, ok := htmlContinuation(body, result.FinalURL); ok {
			s.logger.Debug().Str("next", nextURL).Msg("Following rendered-page continuation")
			continuation = nextURL
			continue
		}

		if data, ok := ExtractEmbeddedJSON(body); ok {
			if creds, ok := CredentialsFromEmbedded(data, cookies); ok {
				return creds, nil
			}
		}

		break
	}

	return nil, models.ErrAuthTimeout
}

// submitCardNumber posts the card number to the prompted-login API and returns
// the continuation URL the response names, plus the updated cookie jar.
func (s *Service) submitCardNumber(ctx context.Context, cardNumber, cookies string, headers map[string]string) (string, string, error) {
	payload := map[string]interface{}{
		"action": "signin",
		"values": map[string]string{
			"prompt":         cardNumber,
			"passwordPrompt": "",
		},
	}

	req := s.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetHeader("Content-Type", "application/json").
		SetBody(payload)
	if cookies != "" {
		req.SetHeader("Cookie", cookies)
	}

	resp, err := req.Post(s.config.NextStepURL)
	if err != nil {
		return "", cookies, fmt.Errorf("card number submission failed: %w", err)
	}

	if setCookies := resp.Header().Values("Set-Cookie"); len(setCookies) > 0 {
		cookies = httpclient.MergeCookies(cookies, setCookies)
	}

	if location := resp.Header().Get("Location"); location != "" {
		return location, cookies, nil
	}

	// The prompted-login API answers JSON naming the next redirect.
	var body struct {
		RedirectURI string `json:"redirectUri"`
		Context     struct {
			RedirectURI string `json:"redirectUri"`
		} `json:"context"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		if body.RedirectURI != "" {
			return body.RedirectURI, cookies, nil
		}
		if body.Context.RedirectURI != "" {
			return body.Context.RedirectURI, cookies, nil
		}
	}

	return "", cookies, nil
}

func (s *Service) browserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      s.config.UserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
}

// continuationFromURL pulls a continuation target out of a login URL's query
// string.
func continuationFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	query := parsed.Query()
	for _, key := range []string{"redirect_uri", "redirectUri", "returnUrl", "return_url"} {
		if value := query.Get(key); value != "" {
			return value
		}
	}
	return ""
}

// htmlContinuation finds a meta-refresh or script redirect inside a rendered
// page and resolves it against the page URL.
func htmlContinuation(body, pageURL string) (string, bool) {
	if !strings.Contains(strings.ToLower(body), "<html") && !strings.Contains(body, "window.location") {
		return "", false
	}

	for _, pattern := range []*regexp.Regexp{metaRefreshPattern, scriptRedirectPattern} {
		match := pattern.FindStringSubmatch(body)
		if match == nil {
			continue
		}
		base, err := url.Parse(pageURL)
		if err != nil {
			return match[1], true
		}
		target, err := url.Parse(strings.TrimSpace(match[1]))
		if err != nil {
			continue
		}
		return base.ResolveReference(target).String(), true
	}
	return "", false
}
