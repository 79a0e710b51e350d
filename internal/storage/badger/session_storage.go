package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/interfaces"
	"github.com/lucron9090/cruis-api/internal/models"
)

// SessionStorage implements the SessionStore interface for Badger. Sessions
// survive process restarts, so a horizontally scaled deployment pointed at the
// same database shares one session space. Creation is last-writer-wins; there
// is no compare-and-swap on the session document.
type SessionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSessionStorage creates a new SessionStorage instance
func NewSessionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SessionStore {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SessionStorage) Create(ctx context.Context, creds *models.MotorCredentials) (string, error) {
	if creds == nil {
		return "", fmt.Errorf("credentials are required")
	}

	session := models.NewSession(common.NewSessionID(), creds, time.Now())

	if err := s.db.Store().Upsert(session.ID, session); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Debug().
		Str("session_id", session.ID).
		Str("expires_at", session.ExpiresAt.Format(time.RFC3339)).
		Msg("Session created")

	return session.ID, nil
}

func (s *SessionStorage) Get(ctx context.Context, id string) (*models.MotorCredentials, error) {
	var session models.Session
	if err := s.db.Store().Get(id, &session); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	// Lazy expiry: an expired read deletes the entry and reports it absent.
	if session.Expired(time.Now()) {
		if err := s.db.Store().Delete(id, &models.Session{}); err != nil && err != badgerhold.ErrNotFound {
			s.logger.Warn().Err(err).Str("session_id", id).Msg("Failed to delete expired session")
		}
		s.logger.Debug().Str("session_id", id).Msg("Session expired on read")
		return nil, models.ErrSessionNotFound
	}

	return session.Credentials, nil
}

func (s *SessionStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Session{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return models.ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Debug().Str("session_id", id).Msg("Session deleted")
	return nil
}

func (s *SessionStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Session{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return int(count), nil
}

func (s *SessionStorage) Close() error {
	return s.db.Close()
}
