package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zhixinliu/kook-bridge/internal/config"
	"github.com/zhixinliu/kook-bridge/internal/connection"
	"github.com/zhixinliu/kook-bridge/internal/event"
	"github.com/zhixinliu/kook-bridge/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/bridge.local.yaml", "path to config file")
	listenAddr := flag.String("listen", "", "health endpoint address (disabled when empty)")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting bridge",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"bots", len(cfg.Bots),
		"api_url", cfg.API.BaseURL,
		"compress", cfg.Connection.Compress,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	tokens := make([]string, 0, len(cfg.Bots))
	for _, bot := range cfg.Bots {
		tokens = append(tokens, bot.Token)
	}

	manager := connection.NewManager(connection.ManagerConfig{
		BaseURL:    cfg.API.BaseURL,
		APITimeout: cfg.API.Timeout,
		MaxRetries: cfg.API.MaxRetries,
		Tokens:     tokens,
		Session: connection.SessionConfig{
			Compress:          cfg.Connection.Compress,
			ReconnectInterval: cfg.Connection.ReconnectInterval,
			HeartbeatInterval: cfg.Connection.HeartbeatInterval,
			HandshakeTimeout:  cfg.Connection.HandshakeTimeout,
			WriteTimeout:      cfg.Connection.WriteTimeout,
			BufferSize:        cfg.Connection.BufferSize,
		},
	}, event.NewRegistry(event.BuiltinModels()...), &logHandler{logger: logger}, logger)

	if err := manager.Start(ctx); err != nil {
		logger.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}

	// Optional health endpoint exposing session counts
	var healthServer *http.Server
	if *listenAddr != "" {
		healthServer = &http.Server{
			Addr:    *listenAddr,
			Handler: createHealthHandler(manager),
		}
		go func() {
			logger.Info("starting health server", "addr", *listenAddr)
			if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
				logger.Error("health server error", "error", err)
			}
		}()
	}

	// Periodic status log
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := manager.Stats()
				logger.Info("status",
					"sessions", stats.Sessions,
					"bound", stats.BoundSessions,
				)
			}
		}
	}()

	logger.Info("bridge running", "sessions", manager.Stats().Sessions)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if healthServer != nil {
		healthServer.Shutdown(shutdownCtx)
	}
	if err := manager.Stop(shutdownCtx); err != nil {
		logger.Error("connection manager stop", "error", err)
	}

	logger.Info("bridge stopped")
}

// logHandler logs session lifecycle transitions and resolved events. A real
// deployment would forward events to downstream consumers here.
type logHandler struct {
	logger *slog.Logger
}

func (h *logHandler) OnBound(s *connection.Session) {
	h.logger.Info("session bound",
		"session_id", s.ID(),
		"self_id", s.SelfID(),
		"username", s.SelfName(),
	)
}

func (h *logHandler) OnUnbound(s *connection.Session) {
	h.logger.Info("session unbound", "session_id", s.ID())
}

func (h *logHandler) OnEvent(s *connection.Session, ev event.Event) {
	h.logger.Debug("event",
		"self_id", s.SelfID(),
		"path", ev.Path(),
	)
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(manager connection.Manager) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := manager.Stats()

		health := struct {
			Status   string                 `json:"status"`
			Sessions map[string]interface{} `json:"sessions"`
		}{
			Status: "healthy",
			Sessions: map[string]interface{}{
				"configured": stats.Sessions,
				"bound":      stats.BoundSessions,
			},
		}
		if stats.BoundSessions < stats.Sessions {
			health.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
