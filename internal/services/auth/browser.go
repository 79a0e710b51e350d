package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/lucron9090/cruis-api/internal/models"
)

// The card prompt appears under either selector depending on which login
// template EBSCO serves.
const (
	cardInputSelector    = `input[data-auto="prompt-input"], input#prompt-input`
	submitButtonSelector = `button[data-auto="login-submit-btn"]`
)

// browserFlow drives the real login pages in headless Chrome: navigate to the
// EBSCO entry point, type the card number, submit, then poll the page URL
// until the browser lands on the vendor domain and the AuthUserInfo cookie can
// be lifted from its cookie store.
func (s *Service) browserFlow(ctx context.Context, cardNumber string) (*models.MotorCredentials, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.config.Headless),
		chromedp.Flag("no-sandbox", s.config.NoSandbox),
		chromedp.Flag("disable-setuid-sandbox", s.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(s.config.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	s.logger.Debug().Str("url", s.config.LoginURL).Msg("Navigating to login page")

	navCtx, navCancel := context.WithTimeout(browserCtx, s.config.NavigationTimeout)
	defer navCancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(s.config.LoginURL)); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNavigationTimeout, err)
	}

	selCtx, selCancel := context.WithTimeout(browserCtx, s.config.SelectorTimeout)
	defer selCancel()
	if err := chromedp.Run(selCtx,
		chromedp.WaitVisible(cardInputSelector, chromedp.ByQuery),
		chromedp.SendKeys(cardInputSelector, cardNumber, chromedp.ByQuery),
		chromedp.Click(submitButtonSelector, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrLoginFormNotFound, err)
	}

	s.logger.Debug().Msg("Card number submitted, polling for vendor domain")

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for poll := 1; poll <= s.config.MaxPollAttempts; poll++ {
		select {
		case <-browserCtx.Done():
			return nil, browserCtx.Err()
		case <-ticker.C:
		}

		var currentURL string
		if err := chromedp.Run(browserCtx, chromedp.Location(&currentURL)); err != nil {
			return nil, fmt.Errorf("failed to read browser location: %w", err)
		}

		s.logger.Debug().
			Int("poll", poll).
			Str("url", currentURL).
			Msg("Polling login continuation")

		if !strings.Contains(currentURL, s.config.TargetDomain) {
			continue
		}

		if creds, ok := s.captureBrowserCredentials(browserCtx); ok {
			return creds, nil
		}
		// On the vendor domain but no cookie yet; the page may still be
		// settling, so keep polling until the cap.
	}

	return nil, models.ErrAuthTimeout
}

// captureBrowserCredentials lifts vendor-domain cookies out of the browser and
// decodes the AuthUserInfo payload. When the landing page renders without the
// cookie, the page HTML is scraped for embedded JSON state as a fallback.
func (s *Service) captureBrowserCredentials(browserCtx context.Context) (*models.MotorCredentials, bool) {
	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read browser cookies")
		return nil, false
	}

	var pairs []string
	for _, c := range cookies {
		if strings.Contains(c.Domain, s.config.TargetDomain) {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
	}
	cookieString := strings.Join(pairs, "; ")

	if creds, ok := ExtractCredentials(cookieString); ok {
		return creds, true
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read landing page HTML")
		return nil, false
	}
	if data, ok := ExtractEmbeddedJSON(html); ok {
		if creds, ok := CredentialsFromEmbedded(data, cookieString); ok {
			s.logger.Debug().Msg("Credentials recovered from embedded page state")
			return creds, true
		}
	}

	return nil, false
}
