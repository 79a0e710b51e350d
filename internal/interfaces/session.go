package interfaces

import (
	"context"

	"github.com/lucron9090/cruis-api/internal/models"
)

// SessionStore maps opaque session ids to captured Motor credentials.
// Get enforces expiry lazily: a read past the session's expiry deletes the
// entry as a side effect and reports models.ErrSessionNotFound. There is no
// background sweep; expired entries linger until the next read or an explicit
// delete.
type SessionStore interface {
	// Create stores freshly captured credentials and returns the new
	// session id.
	Create(ctx context.Context, creds *models.MotorCredentials) (string, error)

	// Get resolves a session id to its credentials, or
	// models.ErrSessionNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*models.MotorCredentials, error)

	// Delete removes a session, returning models.ErrSessionNotFound when the
	// id is unknown.
	Delete(ctx context.Context, id string) error

	// Count reports the number of stored sessions, expired entries included.
	Count(ctx context.Context) (int, error)

	// Close releases any underlying storage resources.
	Close() error
}
