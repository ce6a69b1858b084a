package connection

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/zhixinliu/kook-bridge/internal/api"
	"github.com/zhixinliu/kook-bridge/internal/event"
	"github.com/zhixinliu/kook-bridge/internal/sequence"
)

// Manager owns the set of configured credentials and runs one session task
// per credential.
type Manager interface {
	// Start launches one session per configured token. Per-credential
	// failures are logged, never fatal for the other credentials.
	Start(ctx context.Context) error

	// Stop cancels all session tasks and awaits their settlement.
	Stop(ctx context.Context) error

	// Stats returns current connection statistics.
	Stats() ManagerStats
}

// manager implements the Manager interface.
type manager struct {
	cfg     ManagerConfig
	models  *event.Registry
	handler Handler
	logger  *slog.Logger

	store    *sequence.Store
	registry *Registry
	sessions []*Session

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewManager creates a connection manager. The models registry and handler
// are shared by every session.
func NewManager(cfg ManagerConfig, models *event.Registry, handler Handler, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &manager{
		cfg:      cfg,
		models:   models,
		handler:  handler,
		logger:   logger,
		store:    sequence.NewStore(),
		registry: NewRegistry(),
	}
}

// Start launches one session task per credential.
func (m *manager) Start(ctx context.Context) error {
	if len(m.cfg.Tokens) == 0 {
		return errors.New("no credentials configured")
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.group = &errgroup.Group{}

	resolver := event.NewResolver(m.models, nil, m.logger)

	for _, token := range m.cfg.Tokens {
		client := api.NewClient(m.cfg.BaseURL, token,
			api.WithTimeout(m.cfg.APITimeout),
			api.WithRetries(m.cfg.MaxRetries, m.cfg.Session.ReconnectInterval),
			api.WithLogger(m.logger),
		)

		s := NewSession(token, m.cfg.Session, client, resolver, m.store, m.registry, m.handler, m.logger)
		m.sessions = append(m.sessions, s)

		m.group.Go(func() error {
			err := s.Run(m.ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				// Terminal for this credential only; the other sessions
				// keep running.
				m.logger.Error("session terminated",
					"session_id", s.ID(),
					"error", err,
				)
			}
			return nil
		})
	}

	m.logger.Info("connection manager started", "sessions", len(m.sessions))

	return nil
}

// Stop cancels all sessions and waits for them to settle.
func (m *manager) Stop(ctx context.Context) error {
	m.logger.Info("stopping connection manager")

	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.group.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, abandoning session tasks")
		return ctx.Err()
	}

	m.logger.Info("connection manager stopped")
	return nil
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	return ManagerStats{
		Sessions:      len(m.sessions),
		BoundSessions: m.registry.Len(),
	}
}
