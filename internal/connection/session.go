package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhixinliu/kook-bridge/internal/event"
	"github.com/zhixinliu/kook-bridge/internal/protocol"
	"github.com/zhixinliu/kook-bridge/internal/sequence"
)

// Session owns one credential's websocket lifecycle: gateway URL fetch,
// connect, handshake, identity binding, receive loop, heartbeat, and
// reconnect-on-failure.
type Session struct {
	id       uuid.UUID
	token    string
	cfg      SessionConfig
	api      GatewayAPI
	decoder  *protocol.Decoder
	resolver *event.Resolver
	store    *sequence.Store
	registry *Registry
	handler  Handler
	logger   *slog.Logger

	// Bound identity; empty until the handshake completes.
	mu       sync.RWMutex
	selfID   string
	selfName string

	dispatchWG sync.WaitGroup
}

// NewSession creates a session for one credential. The sequence store and
// connection registry are shared across sessions; decoder state is per
// session because compression is selected per connection.
func NewSession(
	token string,
	cfg SessionConfig,
	gw GatewayAPI,
	resolver *event.Resolver,
	store *sequence.Store,
	registry *Registry,
	handler Handler,
	logger *slog.Logger,
) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New()
	return &Session{
		id:       id,
		token:    token,
		cfg:      cfg,
		api:      gw,
		decoder:  protocol.NewDecoder(cfg.Compress, store, logger),
		resolver: resolver,
		store:    store,
		registry: registry,
		handler:  handler,
		logger:   logger.With("session_id", id),
	}
}

// ID returns the session's instance ID, stable across reconnect cycles.
func (s *Session) ID() uuid.UUID { return s.id }

// SelfID returns the bound bot identity, or "" before binding.
func (s *Session) SelfID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selfID
}

// SelfName returns the bound bot display name, or "" before binding.
func (s *Session) SelfName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selfName
}

// Run drives the session until ctx is cancelled or the credential is
// rejected. Every other failure reconnects after the configured backoff.
func (s *Session) Run(ctx context.Context) error {
	defer s.dispatchWG.Wait()

	for {
		url, err := s.api.Gateway(ctx, s.cfg.Compress)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("failed to fetch gateway url", "error", err)
			if !s.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		err = s.runConnection(ctx, url)

		var credErr *protocol.CredentialError
		if errors.As(err, &credErr) {
			s.logger.Error("credential rejected by gateway, giving up",
				"code", credErr.Code,
			)
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.logger.Warn("connection lost, reconnecting",
			"error", err,
			"backoff", s.cfg.ReconnectInterval,
		)
		if !s.sleep(ctx) {
			return ctx.Err()
		}
	}
}

// runConnection handles one websocket connection from dial to teardown.
func (s *Session) runConnection(ctx context.Context, url string) error {
	client := NewClient(ClientConfig{
		URL:              url,
		Token:            s.token,
		HandshakeTimeout: s.cfg.HandshakeTimeout,
		WriteTimeout:     s.cfg.WriteTimeout,
		BufferSize:       s.cfg.BufferSize,
	}, s.logger)

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	defer s.teardown(client)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-client.Errors():
			return err

		case msg, ok := <-client.Messages():
			if !ok {
				return ErrConnectionClosed
			}

			frame, err := s.decoder.Decode(msg.Data, s.SelfID())
			if err != nil {
				// Reconnect demands and credential rejections end the
				// connection; so does envelope-level corruption.
				return err
			}

			if err := s.handleFrame(ctx, client, frame); err != nil {
				return err
			}
		}
	}
}

// handleFrame consumes one decoded frame inside the receive loop.
func (s *Session) handleFrame(ctx context.Context, client Client, frame protocol.Frame) error {
	switch frame.Kind {
	case protocol.FrameHello:
		if s.SelfID() == "" {
			if err := s.bind(ctx, client); err != nil {
				return fmt.Errorf("bind identity: %w", err)
			}
		}
		s.dispatch(s.resolver.MetaConnect(frame.Payload))

	case protocol.FramePong:
		if s.SelfID() == "" {
			return nil
		}
		s.dispatch(s.resolver.MetaHeartbeat())

	case protocol.FrameEvent:
		selfID := s.SelfID()
		if selfID == "" {
			// Events before the handshake completes have no identity to
			// attribute them to.
			return nil
		}
		ev, err := s.resolver.Resolve(frame, selfID)
		if err != nil {
			// Drop this frame only; the connection stays up.
			s.logger.Error("failed to resolve event",
				"sn", frame.SN,
				"error", err,
			)
			return nil
		}
		s.dispatch(ev)

	case protocol.FrameIgnore:
	}

	return nil
}

// bind resolves the bot identity for the credential and publishes the bound
// connection: registry entry, handler notification, heartbeat task.
func (s *Session) bind(ctx context.Context, client Client) error {
	user, err := s.api.Me(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.selfID = user.ID
	s.selfName = user.Username
	s.mu.Unlock()

	s.registry.Set(user.ID, client)
	s.handler.OnBound(s)
	go s.heartbeat(ctx, user.ID)

	s.logger.Info("bot connected",
		"self_id", user.ID,
		"username", user.Username,
	)

	return nil
}

// heartbeat sends a ping envelope carrying the latest sequence number while
// the registry still reports a client for identity. It exits silently once
// the binding disappears or a send fails; the receive loop owns recovery.
func (s *Session) heartbeat(ctx context.Context, identity string) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		client, ok := s.registry.Get(identity)
		if !ok {
			return
		}

		if err := client.Send(protocol.HeartbeatFrame(s.store.Get(identity))); err != nil {
			s.logger.Debug("heartbeat send failed", "error", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// teardown closes the socket and clears all per-connection state. The
// sequence number must read 0 before the next connection processes an EVENT:
// the server issues a fresh sequence space after session loss.
func (s *Session) teardown(client Client) {
	client.Close()

	identity := s.SelfID()
	if identity == "" {
		return
	}

	s.store.Reset(identity)
	s.registry.Delete(identity)
	s.handler.OnUnbound(s)

	s.mu.Lock()
	s.selfID = ""
	s.selfName = ""
	s.mu.Unlock()

	s.logger.Info("bot disconnected", "self_id", identity)
}

// dispatch hands a resolved event to the handler as its own unit of work.
// The receive loop never blocks on downstream processing.
func (s *Session) dispatch(ev event.Event) {
	s.dispatchWG.Add(1)
	go func() {
		defer s.dispatchWG.Done()
		s.handler.OnEvent(s, ev)
	}()
}

// sleep waits out the reconnect backoff; false means ctx was cancelled.
func (s *Session) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(s.cfg.ReconnectInterval):
		return true
	}
}
