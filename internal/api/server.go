// Package api provides the HTTP REST API and WebSocket server for FarmCab Core.
//
// It exposes device control operations, schedule synchronization, and the
// live area view to user interfaces.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/farmcab/farmcab-core/internal/area"
	"github.com/farmcab/farmcab-core/internal/device"
	"github.com/farmcab/farmcab-core/internal/infrastructure/config"
	"github.com/farmcab/farmcab-core/internal/infrastructure/logging"
	"github.com/farmcab/farmcab-core/internal/liveview"
	"github.com/farmcab/farmcab-core/internal/schedule"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ControlService executes operator actions on output devices.
// *control.Service satisfies this interface.
type ControlService interface {
	Toggle(ctx context.Context, deviceID string) (device.Status, error)
	SetManualOverride(ctx context.Context, deviceID string, on bool) error
	SetControlMethod(ctx context.Context, deviceID string, method device.ControlMethod) error
}

// ScheduleSyncer pushes schedule windows to both stores.
// *schedule.SyncService satisfies this interface.
type ScheduleSyncer interface {
	Sync(ctx context.Context, deviceID string, w schedule.Window) (schedule.Result, error)
}

// LiveView serves the selected area's live projection.
// *liveview.Projection satisfies this interface.
type LiveView interface {
	SetArea(ctx context.Context, areaID string) error
	Snapshot() liveview.Snapshot
	Watch() (<-chan liveview.Update, func())
}

// HealthChecker reports the health of one infrastructure component.
type HealthChecker func(ctx context.Context) error

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	Logger      *logging.Logger
	Registry    *device.Registry
	Areas       area.Repository
	Control     ControlService
	Sync        ScheduleSyncer
	Live        LiveView
	Health      map[string]HealthChecker
	ContainerID string
	Version     string
}

// Server is the HTTP API server for FarmCab Core.
type Server struct {
	cfg         config.APIConfig
	logger      *logging.Logger
	registry    *device.Registry
	areas       area.Repository
	control     ControlService
	sync        ScheduleSyncer
	live        LiveView
	health      map[string]HealthChecker
	containerID string
	version     string
	server      *http.Server
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Control == nil {
		return nil, fmt.Errorf("control service is required")
	}

	return &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		registry:    deps.Registry,
		areas:       deps.Areas,
		control:     deps.Control,
		sync:        deps.Sync,
		live:        deps.Live,
		health:      deps.Health,
		containerID: deps.ContainerID,
		version:     deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// The listener runs in a background goroutine; stop it with Close().
func (s *Server) Start(ctx context.Context) error {
	_, s.cancel = context.WithCancel(ctx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
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
