package auth

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lucron9090/cruis-api/internal/models"
)

// Inline-script state assignments seen across the vendor's rendered pages.
var statePatterns = []*regexp.Regexp{
	regexp.MustCompile(`window\.__INITIAL_STATE__\s*=\s*(\{[\s\S]*?\})\s*;`),
	regexp.MustCompile(`window\.__DATA__\s*=\s*(\{[\s\S]*?\})\s*;`),
	regexp.MustCompile(`var\s+initialState\s*=\s*(\{[\s\S]*?\})\s*;`),
	regexp.MustCompile(`__PRELOADED_STATE__\s*=\s*(\{[\s\S]*?\})\s*;`),
}

// ExtractEmbeddedJSON scrapes a rendered HTML page for an embedded JSON state
// object. Some login continuations end in a page that carries the session
// state inline instead of issuing a further redirect, so this is the fallback
// when no AuthUserInfo cookie appears.
//
// Strategies run in order and the first parseable object wins:
// structured-data script tags, inline state assignments, then data attributes.
func ExtractEmbeddedJSON(html string) (map[string]interface{}, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}

	var found map[string]interface{}

	doc.Find(`script[type="application/json"], script[type="application/ld+json"]`).
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if data, ok := parseJSONObject(s.Text()); ok {
				found = data
				return false
			}
			return true
		})
	if found != nil {
		return found, true
	}

	var scripts strings.Builder
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scripts.WriteString(s.Text())
		scripts.WriteString("\n")
	})
	inline := scripts.String()
	for _, pattern := range statePatterns {
		match := pattern.FindStringSubmatch(inline)
		if match == nil {
			continue
		}
		if data, ok := parseJSONObject(match[1]); ok {
			return data, true
		}
	}

	doc.Find(`[data-json], [data-state], [data-props]`).
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			for _, attr := range []string{"data-json", "data-state", "data-props"} {
				raw, exists := s.Attr(attr)
				if !exists {
					continue
				}
				if data, ok := parseJSONObject(raw); ok {
					found = data
					return false
				}
			}
			return true
		})
	if found != nil {
		return found, true
	}

	return nil, false
}

// CredentialsFromEmbedded maps a scraped state object onto a credentials
// record. The cookie string captured alongside the page is attached so the
// record stays replayable against the sites host.
func CredentialsFromEmbedded(data map[string]interface{}, cookies string) (*models.MotorCredentials, bool) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}

	var creds models.MotorCredentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, false
	}
	if creds.PublicKey == "" || creds.ApiTokenKey == "" {
		return nil, false
	}

	creds.CookieString = cookies
	return &creds, true
}

func parseJSONObject(raw string) (map[string]interface{}, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "{") {
		return nil, false
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	return data, true
}
