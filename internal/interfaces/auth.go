package interfaces

import (
	"context"

	"github.com/lucron9090/cruis-api/internal/models"
)

// Authenticator runs the library-card login flow and yields Motor credentials.
// Implementations serialize concurrent calls process-wide: while an attempt is
// in flight, additional callers wait for it and share its outcome rather than
// starting a duplicate flow.
type Authenticator interface {
	Authenticate(ctx context.Context, cardNumber string) (*models.MotorCredentials, error)
}
