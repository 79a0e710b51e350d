package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/interfaces"
	"github.com/lucron9090/cruis-api/internal/models"
)

// SessionStore is the process-memory session store. Sessions are lost on
// restart and never shared across process instances.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	logger   arbor.ILogger
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore(logger arbor.ILogger) interfaces.SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.Session),
		logger:   logger,
	}
}

func (s *SessionStore) Create(ctx context.Context, creds *models.MotorCredentials) (string, error) {
	if creds == nil {
		return "", fmt.Errorf("credentials are required")
	}

	session := models.NewSession(common.NewSessionID(), creds, time.Now())

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Debug().
		Str("session_id", session.ID).
		Str("expires_at", session.ExpiresAt.Format(time.RFC3339)).
		Msg("Session created")

	return session.ID, nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*models.MotorCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}

	// Lazy expiry: an expired read deletes the entry and reports it absent.
	if session.Expired(time.Now()) {
		delete(s.sessions, id)
		s.logger.Debug().Str("session_id", id).Msg("Session expired on read")
		return nil, models.ErrSessionNotFound
	}

	return session.Credentials, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return models.ErrSessionNotFound
	}

	delete(s.sessions, id)
	s.logger.Debug().Str("session_id", id).Msg("Session deleted")
	return nil
}

func (s *SessionStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions), nil
}

func (s *SessionStore) Close() error {
	return nil
}
