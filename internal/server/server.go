package server

import (
	"context"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sitedeck/sitedeck/backend/internal/api/middleware"
	"github.com/sitedeck/sitedeck/backend/internal/extension"
	"github.com/sitedeck/sitedeck/backend/internal/http"
	"github.com/sitedeck/sitedeck/backend/internal/infrastructure/config"
	"github.com/sitedeck/sitedeck/backend/internal/infrastructure/monitoring"
	"github.com/sitedeck/sitedeck/backend/internal/isolation"
	"github.com/sitedeck/sitedeck/backend/internal/logging"
	"github.com/sitedeck/sitedeck/backend/internal/permissions"
	"github.com/sitedeck/sitedeck/backend/internal/shared/paths"
	"github.com/sitedeck/sitedeck/backend/internal/ws"
)

// Server wraps the HTTP bridge and its dependencies
type Server struct {
	cfg      *config.Config
	router   *gin.Engine
	httpSrv  *stdhttp.Server
	registry *extension.Registry
	deriver  *isolation.Deriver
	hub      *ws.Hub
	logger   *logging.Logger
}

// New wires the full bridge: storage layout, isolation deriver, permission
// store, registry, event hub and routes.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}
	log := logger.Named("server")

	policy, err := isolation.ParsePolicy(cfg.Isolation.Policy)
	if err != nil {
		return nil, fmt.Errorf("invalid isolation policy: %w", err)
	}
	deriver := isolation.NewDeriver(policy)

	var riskPolicy *permissions.RiskPolicy
	if cfg.Isolation.RiskPolicyPath != "" {
		riskPolicy, err = permissions.LoadRiskPolicy(cfg.Isolation.RiskPolicyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load risk policy: %w", err)
		}
	}

	layout := paths.NewLayout(cfg.Storage.DataDir)
	perms, err := permissions.NewStore(layout.GrantsPath(), riskPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to open permission store: %w", err)
	}

	registry, err := extension.NewRegistry(layout, deriver, perms, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open extension registry: %w", err)
	}

	metrics := monitoring.NewMetrics()
	hub := ws.NewHub(metrics, logger)
	registry.WithEvents(hub)
	registry.Validator().WithMetrics(metrics)

	stats := registry.Stats()
	metrics.SetExtensionCounts(stats.TotalExtensions, stats.Enabled)
	metrics.SetPolicyRevision(deriver.Revision())

	// Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit))
	}
	router.Use(monitoring.Middleware(metrics))

	handlers := http.NewHandlers(registry, deriver, metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Package validation and lifecycle
	router.POST("/extensions/validate", handlers.ValidatePackage)
	router.POST("/extensions/install", handlers.InstallExtension)
	router.GET("/extensions", handlers.ListExtensions)
	router.GET("/extensions/:id", handlers.GetExtension)
	router.DELETE("/extensions/:id", handlers.RemoveExtension)
	router.POST("/extensions/:id/enabled", handlers.SetExtensionEnabled)
	router.POST("/extensions/:id/permissions", handlers.UpdatePermissions)

	// Isolation
	router.GET("/partitions/derive", handlers.DerivePartition)

	// Event stream and metrics
	router.GET("/ws", hub.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &Server{
		cfg:      cfg,
		router:   router,
		registry: registry,
		deriver:  deriver,
		hub:      hub,
		logger:   log,
	}

	// Bundled extensions seed before the first request can race them.
	if cfg.Storage.BundledDir != "" {
		seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		seeder := extension.NewSeeder(registry, cfg.Storage.BundledDir, logger)
		if err := seeder.Seed(seedCtx); err != nil {
			log.Warn("Bundled extension seeding failed", zap.Error(err))
		}
	}

	return srv, nil
}

// Registry exposes the registry for diagnostics
func (s *Server) Registry() *extension.Registry {
	return s.registry
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpSrv = &stdhttp.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // the /ws stream is long-lived
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("Bridge listening", zap.String("addr", addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and disconnects event streams.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
