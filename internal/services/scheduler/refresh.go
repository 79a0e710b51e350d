package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/lucron9090/cruis-api/internal/services/session"
)

// RefreshScheduler periodically re-authenticates the shared session so it
// never expires under proxied traffic.
type RefreshScheduler struct {
	manager *session.Manager
	cron    *cron.Cron
	logger  arbor.ILogger
}

// NewRefreshScheduler creates the shared-session refresh scheduler.
func NewRefreshScheduler(manager *session.Manager, logger arbor.ILogger) *RefreshScheduler {
	return &RefreshScheduler{
		manager: manager,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start begins scheduled refreshes. No-op when no card number is configured,
// since there is no shared session to refresh.
func (s *RefreshScheduler) Start(schedule string) error {
	if !s.manager.SharedConfigured() {
		s.logger.Debug().Msg("No card number configured, refresh scheduler idle")
		return nil
	}
	if schedule == "" {
		// Default: every 6 hours
		schedule = "0 */6 * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runRefresh()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Shared session refresh scheduler started")

	return nil
}

// Stop stops the scheduler.
func (s *RefreshScheduler) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Shared session refresh scheduler stopped")
}

// RunNow triggers an immediate refresh.
func (s *RefreshScheduler) RunNow() {
	s.logger.Info().Msg("Triggering immediate shared session refresh")
	go s.runRefresh()
}

func (s *RefreshScheduler) runRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s.logger.Info().Msg("Starting scheduled shared session refresh")

	if err := s.manager.RefreshShared(ctx); err != nil {
		s.logger.Error().
			Err(err).
			Msg("Scheduled shared session refresh failed")
		return
	}

	s.logger.Info().Msg("Scheduled shared session refresh completed")
}
