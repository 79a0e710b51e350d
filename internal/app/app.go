package app

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/handlers"
	"github.com/lucron9090/cruis-api/internal/services/auth"
	"github.com/lucron9090/cruis-api/internal/services/proxy"
	"github.com/lucron9090/cruis-api/internal/services/scheduler"
	"github.com/lucron9090/cruis-api/internal/services/session"
	"github.com/lucron9090/cruis-api/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	SessionManager   *session.Manager
	RefreshScheduler *scheduler.RefreshScheduler

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	AuthHandler    *handlers.AuthHandler
	ProxyHandler   *handlers.ProxyHandler
	SessionHandler *handlers.SessionHandler
}

// New wires the service graph: storage, authenticator, session manager,
// upstream dispatcher, scheduler, and the HTTP handlers over them.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	store, err := storage.NewSessionStore(logger, config)
	if err != nil {
		return nil, err
	}

	authenticator := auth.NewService(config, logger)
	manager := session.NewManager(store, authenticator, config, logger)
	dispatcher := proxy.NewDispatcher(config, logger)

	return &App{
		Config:           config,
		Logger:           logger,
		SessionManager:   manager,
		RefreshScheduler: scheduler.NewRefreshScheduler(manager, logger),
		APIHandler:       handlers.NewAPIHandler(manager, logger),
		AuthHandler:      handlers.NewAuthHandler(manager, logger),
		ProxyHandler:     handlers.NewProxyHandler(manager, dispatcher, logger),
		SessionHandler:   handlers.NewSessionHandler(manager, logger),
	}, nil
}

// Start launches background components.
func (a *App) Start() error {
	if a.Config.Refresh.Enabled {
		if err := a.RefreshScheduler.Start(a.Config.Refresh.Schedule); err != nil {
			return err
		}
	}
	return nil
}

// Close stops background components and releases storage.
func (a *App) Close(ctx context.Context) error {
	a.RefreshScheduler.Stop()

	if err := a.SessionManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close session store")
		return err
	}
	return nil
}
