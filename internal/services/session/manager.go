package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/interfaces"
	"github.com/lucron9090/cruis-api/internal/models"
)

// Manager ties the authenticator to the session store. It also owns the
// optional shared session: when a card number is configured, the service keeps
// one server-side session that proxied calls can use without a prior client
// /auth call.
type Manager struct {
	store         interfaces.SessionStore
	authenticator interfaces.Authenticator
	config        *common.AuthConfig
	logger        arbor.ILogger

	mu       sync.Mutex
	sharedID string
}

// NewManager creates the session manager.
func NewManager(store interfaces.SessionStore, authenticator interfaces.Authenticator, config *common.Config, logger arbor.ILogger) *Manager {
	return &Manager{
		store:         store,
		authenticator: authenticator,
		config:        &config.Auth,
		logger:        logger,
	}
}

// Authenticate runs the login flow with the given card number and stores the
// captured credentials as a new session.
func (m *Manager) Authenticate(ctx context.Context, cardNumber string) (string, *models.MotorCredentials, error) {
	creds, err := m.authenticator.Authenticate(ctx, cardNumber)
	if err != nil {
		return "", nil, err
	}

	id, err := m.store.Create(ctx, creds)
	if err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}
	return id, creds, nil
}

// Resolve returns the credentials for a stored session.
// Returns models.ErrSessionNotFound for unknown or expired ids.
func (m *Manager) Resolve(ctx context.Context, id string) (*models.MotorCredentials, error) {
	return m.store.Get(ctx, id)
}

// Delete removes a session. Returns models.ErrSessionNotFound when absent.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// Count reports the number of live sessions.
func (m *Manager) Count(ctx context.Context) (int, error) {
	return m.store.Count(ctx)
}

// SharedConfigured reports whether a card number is configured for the shared
// session.
func (m *Manager) SharedConfigured() bool {
	return m.config.CardNumber != ""
}

// EnsureShared returns the shared session id, authenticating with the
// configured card number when the session is missing or expired.
func (m *Manager) EnsureShared(ctx context.Context) (string, error) {
	if !m.SharedConfigured() {
		return "", models.ErrSessionNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sharedID != "" {
		if _, err := m.store.Get(ctx, m.sharedID); err == nil {
			return m.sharedID, nil
		}
	}

	m.logger.Info().Msg("Establishing shared session")
	id, _, err := m.authenticateShared(ctx)
	if err != nil {
		return "", err
	}
	m.sharedID = id
	return id, nil
}

// RefreshShared re-authenticates the shared session unconditionally, replacing
// the previous one. No-op when no card number is configured.
func (m *Manager) RefreshShared(ctx context.Context) error {
	if !m.SharedConfigured() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, _, err := m.authenticateShared(ctx)
	if err != nil {
		return err
	}

	if m.sharedID != "" && m.sharedID != id {
		if err := m.store.Delete(ctx, m.sharedID); err != nil && err != models.ErrSessionNotFound {
			m.logger.Warn().Err(err).Str("session_id", m.sharedID).Msg("Failed to delete previous shared session")
		}
	}
	m.sharedID = id
	m.logger.Info().Str("session_id", id).Msg("Shared session refreshed")
	return nil
}

// SharedValid reports whether the shared session currently resolves. Used by
// the health endpoint; never triggers authentication.
func (m *Manager) SharedValid(ctx context.Context) bool {
	m.mu.Lock()
	id := m.sharedID
	m.mu.Unlock()

	if id == "" {
		return false
	}
	_, err := m.store.Get(ctx, id)
	return err == nil
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) authenticateShared(ctx context.Context) (string, *models.MotorCredentials, error) {
	creds, err := m.authenticator.Authenticate(ctx, m.config.CardNumber)
	if err != nil {
		return "", nil, err
	}
	id, err := m.store.Create(ctx, creds)
	if err != nil {
		return "", nil, fmt.Errorf("failed to store shared session: %w", err)
	}
	return id, creds, nil
}
