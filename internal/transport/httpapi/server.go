// Package httpapi is the HTTP REST transport listener. Request/response
// only: it has no session concept, so every request is anonymous and the
// session registry is not consulted.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/lednode/lednode/internal/core"
	"github.com/lednode/lednode/internal/device"
	"github.com/lednode/lednode/internal/health"
	"github.com/lednode/lednode/internal/logging"
	"github.com/lednode/lednode/internal/metrics"
	"github.com/lednode/lednode/internal/session"
	"github.com/lednode/lednode/internal/version"
)

// origin label used for commands submitted by this listener.
const origin = "http"

// Options wires the HTTP listener's collaborators.
type Options struct {
	Loop       *core.Loop
	State      *device.State
	Registry   *session.Registry
	Supervisor *health.Supervisor
	// WSHandler, when set, is mounted at GET /ws so both transports can
	// share one port.
	WSHandler http.Handler
}

// Server is the Huma v2 API server over the standard library mux.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	opts       *Options
	logger     *slog.Logger
}

// NewServer creates the HTTP listener with CORS, request logging, the
// Prometheus endpoint, and all routes registered.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("LEDNode API", version.String())
	config.Info.Description = "Remote inspection and control of a single boolean actuator"
	// Empty servers list makes OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)

	server := &Server{
		api:    api,
		mux:    mux,
		opts:   opts,
		logger: logging.GetLogger("http"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(LoggingMiddleware)

	mux.Handle("GET /metrics", metrics.Handler())

	if opts.WSHandler != nil {
		mux.Handle("GET /ws", opts.WSHandler)
	}

	server.registerRoutes()

	// Any unmatched path answers the firmware's 404 shape.
	mux.HandleFunc("/", server.handleNotFound)

	return server
}

// Start starts the HTTP server on the specified address.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting HTTP listener", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	return s.httpServer.ListenAndServe()
}

// Stop shuts down the server without waiting for open connections.
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP listener")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// GetMux returns the underlying mux for additional setup in tests.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "Not found",
		"path":  r.URL.Path,
	})
}

// registerRoutes sets up all API endpoints.
func (s *Server) registerRoutes() {
	s.registerDeviceRoutes()

	// Health endpoint reporting supervised link states
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health",
		Description: "Check daemon health and supervised link states",
		Tags:        []string{"health"},
	}, func(ctx context.Context, input *struct{}) (*HealthResponse, error) {
		links := map[string]string{}
		if s.opts.Supervisor != nil {
			links = s.opts.Supervisor.States()
		}
		return &HealthResponse{
			Body: HealthData{
				Status: "ok",
				Links:  links,
			},
		}, nil
	})

	// Version endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
	}, func(ctx context.Context, input *struct{}) (*VersionResponse, error) {
		return &VersionResponse{Body: version.Get()}, nil
	})

	// Session listing, the REST surface of the `list` command
	huma.Register(s.api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/sessions",
		Summary:     "List Sessions",
		Description: "List active WebSocket sessions",
		Tags:        []string{"sessions"},
	}, func(ctx context.Context, input *struct{}) (*SessionsResponse, error) {
		var descriptors []session.Descriptor
		if s.opts.Registry != nil {
			descriptors = s.opts.Registry.Describe()
		}
		return &SessionsResponse{
			Body: SessionsData{
				Count:    len(descriptors),
				Sessions: descriptors,
			},
		}, nil
	})
}
