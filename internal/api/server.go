// Package api exposes the HTTP surface: status, autocomplete search,
// manual refresh, playback history, logs and the voice bridge.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/voxplay/voxplay/internal/api/handlers"
	apimw "github.com/voxplay/voxplay/internal/api/middleware"
	"github.com/voxplay/voxplay/internal/config"
	"github.com/voxplay/voxplay/internal/history"
	"github.com/voxplay/voxplay/internal/playback"
	"github.com/voxplay/voxplay/internal/refresh"
	"github.com/voxplay/voxplay/internal/scheduler"
	"github.com/voxplay/voxplay/internal/snapshot"
	"github.com/voxplay/voxplay/internal/voice"
)

// Dependencies carries the collaborators the server exposes. Nil members
// simply leave their routes unregistered.
type Dependencies struct {
	Store       *snapshot.Store
	Coordinator *refresh.Coordinator
	Engine      *voice.Engine
	Bridge      *Bridge
	Triggers    *TriggerRegistry
	History     *history.Service
	Scheduler   *scheduler.Scheduler
	Devices     playback.Directory
	Logs        LogsProvider
}

// Server handles HTTP requests for the voxplay API.
type Server struct {
	echo        *echo.Echo
	logger      zerolog.Logger
	cfg         *config.Config
	store       *snapshot.Store
	coordinator *refresh.Coordinator
	startTime   time.Time
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.Config, deps Dependencies, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:        e,
		logger:      logger,
		cfg:         cfg,
		store:       deps.Store,
		coordinator: deps.Coordinator,
		startTime:   time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes(deps)

	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID
	s.echo.Use(middleware.RequestID())

	// Security headers
	s.echo.Use(apimw.SecurityHeaders())

	// Request body size limit
	s.echo.Use(middleware.BodyLimit("1M"))

	// CORS
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Request logging
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	// Gzip compression
	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes(deps Dependencies) {
	// Health check
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)
	api.GET("/search/autocomplete", s.autocomplete)

	if s.coordinator != nil {
		api.POST("/refresh", s.refreshCatalog)
	}

	if deps.History != nil {
		historyHandlers := history.NewHandlers(deps.History)
		historyHandlers.RegisterRoutes(api.Group("/history"))
	}

	if deps.Logs != nil {
		logsHandlers := NewLogsHandlers(deps.Logs)
		logsHandlers.RegisterRoutes(api.Group("/logs"))
	}

	if deps.Scheduler != nil {
		schedulerHandler := handlers.NewSchedulerHandler(deps.Scheduler)
		schedulerGroup := api.Group("/scheduler")
		schedulerGroup.GET("/tasks", schedulerHandler.ListTasks)
		schedulerGroup.POST("/tasks/:id/run", schedulerHandler.RunTask)
	}

	voiceGroup := api.Group("/voice")
	if deps.Engine != nil && deps.Bridge != nil {
		voiceHandlers := NewVoiceHandlers(deps.Engine, deps.Bridge, deps.Devices, s.logger)
		voiceHandlers.RegisterRoutes(voiceGroup)
	}
	if deps.Triggers != nil {
		voiceGroup.GET("/triggers", deps.Triggers.List)
	}
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// --- Handler implementations ---

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	status := map[string]interface{}{
		"version":   "0.0.1-dev",
		"startTime": s.startTime.Format(time.RFC3339),
	}

	gen := s.store.Current()
	if !gen.Empty() {
		status["itemCount"] = len(gen.Items)
		status["onDeckCount"] = len(gen.OnDeck)
		status["recentCount"] = len(gen.Recent)
		status["cacheBuiltAt"] = gen.BuiltAt.Format(time.RFC3339)
	} else {
		status["itemCount"] = 0
	}

	return c.JSON(http.StatusOK, status)
}

// refreshCatalog triggers an immediate cache rebuild.
// POST /api/v1/refresh
func (s *Server) refreshCatalog(c echo.Context) error {
	gen, err := s.coordinator.Rebuild(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"items":   len(gen.Items),
		"onDeck":  len(gen.OnDeck),
		"recent":  len(gen.Recent),
		"builtAt": gen.BuiltAt.Format(time.RFC3339),
	})
}
