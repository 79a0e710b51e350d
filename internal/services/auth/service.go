package auth

import (
	"context"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/httpclient"
	"github.com/lucron9090/cruis-api/internal/interfaces"
	"github.com/lucron9090/cruis-api/internal/models"
)

// Service runs the EBSCO login flow and captures Motor credentials from it.
// Two flows implement the same contract: a headless-browser flow that drives
// the real login pages, and an HTTP flow that replays the redirect chain
// directly. Config selects which one runs.
type Service struct {
	config   *common.AuthConfig
	follower *httpclient.Follower
	client   *resty.Client
	logger   arbor.ILogger

	mu       sync.Mutex
	inflight *attempt

	// flow is swapped out in tests to exercise the serialization contract
	// without a browser.
	flow func(ctx context.Context, cardNumber string) (*models.MotorCredentials, error)
}

// attempt is one in-flight authentication shared by every caller that arrives
// while it runs.
type attempt struct {
	done  chan struct{}
	creds *models.MotorCredentials
	err   error
}

// NewService creates the authentication service for the configured mode.
func NewService(config *common.Config, logger arbor.ILogger) interfaces.Authenticator {
	client := httpclient.NewNoRedirectClient(config.Upstream.RequestTimeout, config.Auth.UserAgent)
	s := &Service{
		config:   &config.Auth,
		follower: httpclient.NewFollower(client, config.Redirects.MaxHops, config.Redirects.HopDelay, logger),
		client:   client,
		logger:   logger,
	}
	if config.Auth.Mode == "http" {
		s.flow = s.httpFlow
	} else {
		s.flow = s.browserFlow
	}
	return s
}

// Authenticate runs the login flow for the given card number. Concurrent calls
// never start a second flow: callers that arrive while one is in flight wait
// on it and receive the same credentials or error.
func (s *Service) Authenticate(ctx context.Context, cardNumber string) (*models.MotorCredentials, error) {
	s.mu.Lock()
	if running := s.inflight; running != nil {
		s.mu.Unlock()
		s.logger.Debug().Msg("Authentication already in progress, waiting for result")
		select {
		case <-running.done:
			return running.creds, running.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	current := &attempt{done: make(chan struct{})}
	s.inflight = current
	s.mu.Unlock()

	s.logger.Info().Str("mode", s.config.Mode).Msg("Starting authentication flow")
	creds, err := s.flow(ctx, cardNumber)
	current.creds, current.err = creds, err

	s.mu.Lock()
	s.inflight = nil
	s.mu.Unlock()
	close(current.done)

	if err != nil {
		s.logger.Warn().Err(err).Msg("Authentication flow failed")
		return nil, err
	}

	s.logger.Info().
		Str("public_key", creds.PublicKey).
		Str("user_name", creds.UserName).
		Msg("Motor credentials captured")
	return creds, nil
}
