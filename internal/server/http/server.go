package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"quill/internal/agent/ports"
	"quill/internal/approval"
	"quill/internal/observability"
	"quill/internal/snapshot"
	"quill/internal/utils"
)

// Config is the HTTP server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string
	Debug          bool
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Addr:           "127.0.0.1:8420",
		AllowedOrigins: []string{"http://localhost:3000"},
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
	}
}

// Server exposes the snapshot timeline and approval gateway over HTTP and
// pushes store events to websocket subscribers.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	store    *snapshot.Store
	restorer *snapshot.Engine
	gateway  *approval.Gateway
	registry ports.ToolRegistry
	hub      *Hub

	startTime time.Time
	logger    *utils.Logger
}

// NewServer wires the API around an existing store, restore engine and
// gateway. The returned server is registered as a store listener so every
// recorded snapshot and status change reaches websocket clients.
func NewServer(cfg Config, store *snapshot.Store, restorer *snapshot.Engine, gateway *approval.Gateway, registry ports.ToolRegistry) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	s := &Server{
		engine:    engine,
		store:     store,
		restorer:  restorer,
		gateway:   gateway,
		registry:  registry,
		hub:       NewHub(),
		startTime: time.Now(),
		logger:    utils.NewComponentLogger("HTTPServer"),
	}
	store.AddListener(s.hub)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")

	api.GET("/health", s.handleHealth)
	api.GET("/tools", s.handleListTools)

	sessions := api.Group("/sessions")
	{
		sessions.GET("", s.handleListSessions)
		sessions.GET("/:id/pending", s.handlePending)
		sessions.GET("/:id/timeline", s.handleTimeline)
		sessions.POST("/:id/accept-all", s.handleAcceptAll)
		sessions.POST("/:id/reject-all", s.handleRejectAll)
		sessions.POST("/:id/messages/:messageId/restore", s.handleRestore)
		sessions.DELETE("/:id", s.handleClearSession)
	}

	invocations := api.Group("/invocations")
	{
		invocations.POST("", s.handlePropose)
		invocations.GET("/:id", s.handleGetInvocation)
		invocations.POST("/:id/approve", s.handleApprove)
		invocations.POST("/:id/cancel", s.handleCancel)
	}

	s.engine.GET("/ws/events", s.handleWebSocket)
	s.engine.GET("/metrics", gin.WrapH(observability.Handler()))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data: gin.H{
			"status": "ok",
			"uptime": time.Since(s.startTime).String(),
		},
	})
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
