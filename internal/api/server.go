// Package api exposes the operator HTTP interface: cycle triggers, portfolio
// and profit inspection, and a WebSocket stream of cycle results.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"straddle-trading-bot/config"
	"straddle-trading-bot/internal/auth"
	"straddle-trading-bot/internal/database"
	"straddle-trading-bot/internal/logging"
	"straddle-trading-bot/internal/straddle"
)

// Server hosts the REST and WebSocket API
type Server struct {
	engine      *straddle.Engine
	repo        *database.Repository
	authService *auth.Service
	hub         *WSHub
	cfg         config.ServerConfig
	httpServer  *http.Server
	logger      zerolog.Logger
}

func NewServer(cfg config.ServerConfig, engine *straddle.Engine, repo *database.Repository, authService *auth.Service) *Server {
	return &Server{
		engine:      engine,
		repo:        repo,
		authService: authService,
		hub:         NewWSHub(),
		cfg:         cfg,
		logger:      logging.WithComponent("api"),
	}
}

// Hub exposes the WebSocket hub so the bot loop can broadcast cycle results
func (s *Server) Hub() *WSHub {
	return s.hub
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	r.GET("/health", s.handleHealth)
	r.POST("/api/v1/auth/login", s.handleLogin)

	protected := r.Group("/api/v1")
	protected.Use(auth.Middleware(s.authService))
	{
		protected.GET("/status", s.handleStatus)
		protected.POST("/cycle/:symbol", s.handleRunCycle)
		protected.GET("/metrics/:symbol", s.handleMetrics)
		protected.GET("/portfolio", s.handlePortfolio)
		protected.GET("/positions", s.handlePositions)
		protected.GET("/positions/:id", s.handlePosition)
		protected.GET("/positions/:id/trades", s.handlePositionTrades)
		protected.GET("/positions/:id/swaps", s.handlePositionSwaps)
		protected.GET("/trades/:symbol/active", s.handleActiveTrades)
		protected.GET("/profit-report", s.handleProfitReport)
		protected.GET("/ws", s.handleWebSocket)
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

// Start runs the hub and HTTP server. Blocks until the listener stops.
func (s *Server) Start() error {
	go s.hub.Run()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
