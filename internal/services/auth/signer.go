package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/lucron9090/cruis-api/internal/models"
)

// SignRequest computes the shared-key signature for one vendor API request:
// HMAC-SHA256 over "publicKey\nVERB\nepoch\npath", base64 encoded. The path is
// the URI path only, without scheme, host, or query string.
func SignRequest(publicKey, privateKey, verb string, epoch int64, uriPath string) string {
	data := fmt.Sprintf("%s\n%s\n%d\n%s", publicKey, verb, epoch, uriPath)
	mac := hmac.New(sha256.New, []byte(privateKey))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignatureHeaders returns the Authorization and Date headers for a single
// vendor API request at the given instant. The timestamp is part of the signed
// material, so headers must be regenerated for every request and never cached.
func SignatureHeaders(creds *models.MotorCredentials, verb, uriPath string, at time.Time) map[string]string {
	signature := SignRequest(creds.PublicKey, creds.ApiTokenValue, verb, at.Unix(), uriPath)
	return map[string]string{
		"Authorization": fmt.Sprintf("Shared %s:%s", creds.PublicKey, signature),
		"Date":          at.UTC().Format(http.TimeFormat),
	}
}
