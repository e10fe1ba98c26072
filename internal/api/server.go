package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/msgpo/kalliope-app/internal/audit"
	"github.com/msgpo/kalliope-app/internal/geofence"
	"github.com/msgpo/kalliope-app/internal/infrastructure/config"
	"github.com/msgpo/kalliope-app/internal/infrastructure/logging"
	"github.com/msgpo/kalliope-app/internal/synapse"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SynapseService lists and starts synapses. Satisfied by *kalliope.Client.
type SynapseService interface {
	GetSynapses(ctx context.Context, settings synapse.Settings) ([]synapse.Synapse, error)
	RunSynapseByName(ctx context.Context, name string, settings synapse.Settings, signal synapse.Signal) (synapse.OrderResponse, error)
	RunOrder(ctx context.Context, order string, settings synapse.Settings) (synapse.OrderResponse, error)
}

// GeofenceArmer registers geolocation synapses. Satisfied by *geofence.Bridge.
type GeofenceArmer interface {
	SetGeofence(ctx context.Context, synapses []synapse.Synapse) (geofence.Result, error)
}

// FenceLister lists armed fences. Satisfied by *geofence.SQLiteStore.
type FenceLister interface {
	List(ctx context.Context) ([]geofence.StoredFence, error)
}

// HistoryLister lists run history. Satisfied by *audit.SQLiteRepository.
type HistoryLister interface {
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// EventHandler consumes OwnTracks messages. Satisfied by *owntracks.Watcher.
type EventHandler interface {
	HandleEvent(ctx context.Context, source string, payload []byte) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Synapses SynapseService
	Settings synapse.Settings
	Version  string

	// Optional. Routes backed by a nil dependency are not mounted.
	Geofence  GeofenceArmer
	Fences    FenceLister
	OwnTracks EventHandler
	History   HistoryLister

	// Checks are reported by /health keyed by component name.
	Checks map[string]HealthChecker
}

// Server is the relay HTTP server.
//
// It is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	synapses  SynapseService
	settings  synapse.Settings
	geofence  GeofenceArmer
	fences    FenceLister
	ownTracks EventHandler
	history   HistoryLister
	checks    map[string]HealthChecker
	version   string

	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, synapse service)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Synapses == nil {
		return nil, fmt.Errorf("synapse service is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		synapses:  deps.Synapses,
		settings:  deps.Settings,
		geofence:  deps.Geofence,
		fences:    deps.Fences,
		ownTracks: deps.OwnTracks,
		history:   deps.History,
		checks:    deps.Checks,
		version:   deps.Version,
	}, nil
}

// Handler returns the routed handler with the full middleware stack.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in a background goroutine. The
// server can be stopped with Close().
//
// Parameters:
//   - ctx: Base context for request handling
//
// Returns:
//   - error: If the address cannot be bound (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
