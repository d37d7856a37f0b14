package controlplane

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/manavgt54/idesync/internal/controlplane/handlers"
	"github.com/manavgt54/idesync/internal/controlplane/middleware"
	"github.com/manavgt54/idesync/internal/utils"
)

// ServerConfig configures the local control plane endpoint.
type ServerConfig struct {
	// Addr is the address the control plane binds to. Loopback only; the
	// daemon is not meant to be reachable from other machines.
	Addr string

	// AuthToken gates all /v1 routes. Empty disables auth.
	AuthToken string
}

// Server is the localhost HTTP endpoint the host IDE drives the daemon
// through: REST commands, the SSE event stream and the message socket.
type Server struct {
	config *ServerConfig
	server *http.Server
}

func NewServer(config *ServerConfig, svc handlers.SyncService, scanner handlers.WorkspaceService, hub *handlers.SocketHub, workspaceRoot string) *Server {
	routes := SetupRoutes(svc, scanner, hub, workspaceRoot, &RouteConfig{
		Auth: middleware.TokenAuthConfig{
			Token: config.AuthToken,
		},
	})

	httpServer := &http.Server{
		Addr:    config.Addr,
		Handler: routes,
		// Timeouts to prevent slow client attacks. No WriteTimeout: the
		// event stream stays open indefinitely and the socket is hijacked.
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// Connection control
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	return &Server{
		config: config,
		server: httpServer,
	}
}

func (s *Server) Start(ctx context.Context) error {
	slog.Info("control plane start",
		"addr", fmt.Sprintf("http://%s", s.config.Addr),
		"token", utils.MaskSecret(s.config.AuthToken),
	)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	slog.Info("control plane stop")
	return s.server.Shutdown(ctx)
}
