package models

import "time"

// AuthCookieName is the vendor cookie that carries the API credential payload,
// base64-encoded JSON.
const AuthCookieName = "AuthUserInfo"

// DefaultSessionTTL applies when the credential payload carries no usable
// expiration timestamp.
const DefaultSessionTTL = 24 * time.Hour

// MotorCredentials is the decoded AuthUserInfo payload plus the full cookie
// string it was captured with. The cookie string is the credential for the
// sites host; the key fields sign requests to the API host.
type MotorCredentials struct {
	PublicKey          string   `json:"PublicKey"`
	ApiTokenKey        string   `json:"ApiTokenKey"`
	ApiTokenValue      string   `json:"ApiTokenValue"`
	ApiTokenExpiration string   `json:"ApiTokenExpiration"`
	UserName           string   `json:"UserName"`
	Subscriptions      []string `json:"Subscriptions"`

	// CookieString is the merged cookie bag from the login flow. Never
	// serialized back to clients.
	CookieString string `json:"-"`
}

// ExpiresAt parses the credential expiration. The second return is false when
// the payload carries none or it is unparseable.
func (c *MotorCredentials) ExpiresAt() (time.Time, bool) {
	if c.ApiTokenExpiration == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, c.ApiTokenExpiration)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Summary returns the client-safe view of the credentials. The token value is
// a signing secret and never leaves the service.
func (c *MotorCredentials) Summary() map[string]interface{} {
	return map[string]interface{}{
		"publicKey":          c.PublicKey,
		"apiTokenKey":        c.ApiTokenKey,
		"apiTokenExpiration": c.ApiTokenExpiration,
		"userName":           c.UserName,
		"subscriptions":      c.Subscriptions,
	}
}

// Session is one stored credential set addressable by id.
type Session struct {
	ID          string            `json:"id" badgerhold:"key"`
	Credentials *MotorCredentials `json:"credentials"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// NewSession wraps credentials in a session record. Expiry tracks the
// credential expiration when present, else a fixed TTL from creation.
func NewSession(id string, creds *MotorCredentials, now time.Time) *Session {
	expires, ok := creds.ExpiresAt()
	if !ok {
		expires = now.Add(DefaultSessionTTL)
	}
	return &Session{
		ID:          id,
		Credentials: creds,
		CreatedAt:   now,
		ExpiresAt:   expires,
	}
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
