package auth

import (
	"encoding/base64"
	"encoding/json"

	"github.com/lucron9090/cruis-api/internal/httpclient"
	"github.com/lucron9090/cruis-api/internal/models"
)

// ExtractCredentials locates the AuthUserInfo cookie in an accumulated cookie
// string and decodes its base64 JSON payload into a credentials record. The
// full cookie string is preserved on the record: it is the reusable credential
// for proxied calls, not just the decoded fields.
//
// Returns (nil, false) when the cookie is absent or undecodable. Callers treat
// that as "keep trying", never as a terminal error.
func ExtractCredentials(cookies string) (*models.MotorCredentials, bool) {
	if cookies == "" {
		return nil, false
	}

	value, ok := httpclient.CookieValue(cookies, models.AuthCookieName)
	if !ok {
		return nil, false
	}

	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		// Cookie values frequently arrive without padding.
		decoded, err = base64.RawStdEncoding.DecodeString(value)
		if err != nil {
			return nil, false
		}
	}

	var creds models.MotorCredentials
	if err := json.Unmarshal(decoded, &creds); err != nil {
		return nil, false
	}
	if creds.PublicKey == "" && creds.ApiTokenKey == "" {
		return nil, false
	}

	creds.CookieString = cookies
	return &creds, true
}

// BuildAuthCookie re-encodes a credentials record into an AuthUserInfo cookie
// pair, filling the vendor's expected envelope fields with trial-account
// defaults. Used when a proxied call arrives with only the structured keys and
// no captured cookie bag.
func BuildAuthCookie(creds *models.MotorCredentials) string {
	userName := creds.UserName
	if userName == "" {
		userName = "TruSpeedTrialEBSCO"
	}
	subscriptions := creds.Subscriptions
	if len(subscriptions) == 0 {
		subscriptions = []string{"TruSpeed"}
	}

	envelope := map[string]interface{}{
		"PublicKey":            creds.PublicKey,
		"ApiTokenKey":          creds.ApiTokenKey,
		"ApiTokenValue":        creds.ApiTokenValue,
		"ApiTokenExpiration":   creds.ApiTokenExpiration,
		"UserName":             userName,
		"FirstName":            "TruSpeed Trial",
		"LastName":             "EBSCO",
		"LogoutUrl":            "/",
		"Subscriptions":        subscriptions,
		"BypassIdentityServer": true,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return ""
	}
	return models.AuthCookieName + "=" + base64.StdEncoding.EncodeToString(payload)
}
