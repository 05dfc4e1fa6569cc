package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"marketmaker/internal/config"
)

// Server runs the HTTP/WebSocket dashboard.
type Server struct {
	cfg      config.DashboardConfig
	provider Provider
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer creates a new dashboard server.
func NewServer(cfg config.DashboardConfig, provider Provider, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(provider, cfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		provider: provider,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "dashboard-server"),
	}
}

// Start runs the hub and the periodic broadcaster, then blocks serving
// HTTP until the server is stopped.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.broadcastLoop()

	s.logger.Info("dashboard server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("stopping dashboard server", "connected_clients", s.hub.ClientCount())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// broadcastLoop periodically pushes a fresh snapshot to every connected
// client, since this dashboard has no underlying event stream to tail. It
// skips the snapshot build entirely while nobody is listening.
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if s.hub.ClientCount() == 0 {
			continue
		}
		s.hub.BroadcastSnapshot(BuildSnapshot(s.provider))
	}
}
