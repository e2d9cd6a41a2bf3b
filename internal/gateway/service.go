package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/clinicops/clinic-core/internal/gate"
	"github.com/clinicops/clinic-core/internal/identity"
	"github.com/clinicops/clinic-core/internal/scheduling"
	"github.com/clinicops/clinic-core/pkg/config"
	"github.com/clinicops/clinic-core/pkg/httputil"
	"github.com/clinicops/clinic-core/pkg/logger"
	"github.com/clinicops/clinic-core/pkg/monitoring"
	"github.com/gorilla/mux"
)

// Service is the HTTP front door: it owns the router, the middleware chain
// and the session guard that every protected route goes through.
type Service struct {
	router         *mux.Router
	server         *http.Server
	identity       *identity.Service
	gate           *gate.Gate
	users          identity.StatusUpdater
	limiter        *RateLimiter
	health         *monitoring.HealthManager
	metrics        *monitoring.MetricsCollector
	monitoring     *monitoring.MonitoringMiddleware
	respond        *httputil.Responder
	logger         *logger.Logger
	allowedOrigin  string
	trustedProxies map[string]struct{}
	stopCleanup    chan struct{}
}

// Options bundles what the gateway routes to
type Options struct {
	Config     *config.Config
	Identity   *identity.Service
	Gate       *gate.Gate
	Users      identity.StatusUpdater
	Scheduling *scheduling.Handler
	Health     *monitoring.HealthManager
	Metrics    *monitoring.MetricsCollector
	Tracing    *monitoring.TracingManager
	Logger     *logger.Logger
}

// NewService creates the gateway and wires every route
func NewService(opts Options) *Service {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Service{
		router:        mux.NewRouter(),
		identity:      opts.Identity,
		gate:          opts.Gate,
		users:         opts.Users,
		health:        opts.Health,
		metrics:       opts.Metrics,
		monitoring:    monitoring.NewMonitoringMiddleware(opts.Metrics, opts.Tracing, opts.Logger),
		respond:       httputil.NewResponder(opts.Logger),
		logger:        opts.Logger,
		allowedOrigin: "*",
		stopCleanup:   make(chan struct{}),
	}

	s.trustedProxies = make(map[string]struct{}, len(cfg.Server.TrustedProxies))
	for _, proxy := range cfg.Server.TrustedProxies {
		s.trustedProxies[proxy] = struct{}{}
	}

	if cfg.RateLimit.Enabled {
		s.limiter = NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize, cfg.RateLimit.IdleTTL)
	}

	s.setupMiddleware()
	s.setupRoutes(cfg, opts.Scheduling)

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// Router exposes the configured router, mainly for tests
func (s *Service) Router() http.Handler {
	return s.router
}

// setupMiddleware sets up middleware
func (s *Service) setupMiddleware() {
	s.router.Use(s.monitoring.HTTPMiddleware)
	s.router.Use(s.securityHeadersMiddleware)
	s.router.Use(s.corsMiddleware)
}

// setupRoutes sets up the routing
func (s *Service) setupRoutes(cfg *config.Config, sched *scheduling.Handler) {
	if cfg.Monitoring.Enabled {
		if s.health != nil {
			s.router.HandleFunc(cfg.Monitoring.HealthPath, s.health.HTTPHandler()).Methods("GET")
		}
		if s.metrics != nil {
			s.router.Handle(cfg.Monitoring.MetricsPath, s.metrics.Handler()).Methods("GET")
		}
	}

	s.registerAuthRoutes()

	if sched != nil {
		sched.RegisterRoutes(s.router, s.Protect)
	}

	s.router.NotFoundHandler = http.HandlerFunc(s.notFoundHandler)
}

// Start starts the server and blocks until it stops
func (s *Service) Start() error {
	if s.limiter != nil {
		s.limiter.StartCleanup(time.Minute, s.stopCleanup)
	}

	s.logger.WithField("addr", s.server.Addr).Info("Starting clinic-core HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info("Stopping clinic-core HTTP server")
	select {
	case <-s.stopCleanup:
	default:
		close(s.stopCleanup)
	}
	return s.server.Shutdown(ctx)
}
