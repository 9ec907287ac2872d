package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/voicegate/logger"
	"github.com/kbukum/voicegate/observability"
	"github.com/kbukum/voicegate/server/endpoint"
	"github.com/kbukum/voicegate/server/middleware"
)

// Server is the HTTP server backed by Gin and served over HTTP/1.1 and h2c.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	mux        *http.ServeMux
	h2s        *http2.Server
	config     Config
	log        *logger.Logger
	addr       atomic.Value // bound listener address
	serving    atomic.Bool
}

// New creates a new Server. No middleware is applied yet; call
// ApplyMiddleware once routes and metrics are known.
func New(cfg Config, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	mux := http.NewServeMux()
	mux.Handle("/", engine)

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          time.Duration(cfg.IdleTimeout) * time.Second,
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           h2c.NewHandler(mux, h2s),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout:      time.Duration(cfg.WriteTimeout) * time.Second,
			IdleTimeout:       time.Duration(cfg.IdleTimeout) * time.Second,
		},
		engine: engine,
		mux:    mux,
		h2s:    h2s,
		config: cfg,
		log:    log.WithComponent("server"),
	}
	s.addr.Store(s.httpServer.Addr)
	return s
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Handle mounts h on the root mux beside the Gin engine. Routes that take
// over the connection, such as websocket upgrades, go here because Gin's
// writer refuses to hijack once the upgrade status is written.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the root handler including middleware, for tests and
// embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ApplyMiddleware wraps the root mux with the standard stack: recovery,
// request id, metrics, request logging, CORS, auth, rate limiting and the
// body size limit. Auth and rate limiting only apply when enabled.
func (s *Server) ApplyMiddleware(metrics *observability.Metrics) {
	stack := []middleware.Middleware{
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.Metrics(metrics),
		middleware.RequestLogger(s.log),
		middleware.CORS(&s.config.CORS),
	}
	if s.config.Auth.Enabled {
		stack = append(stack, middleware.Auth(s.config.Auth))
	}
	if s.config.RateLimit.Enabled {
		stack = append(stack, middleware.RateLimit(s.config.RateLimit))
	}
	stack = append(stack, middleware.BodySizeLimit(s.config.MaxBodySize))

	s.httpServer.Handler = h2c.NewHandler(middleware.Chain(stack...)(s.mux), s.h2s)
}

// RegisterDefaultEndpoints registers /health, /liveness, /readiness, /info
// and /metrics.
func (s *Server) RegisterDefaultEndpoints(serviceName, environment string, check endpoint.HealthFunc) {
	s.engine.GET("/health", endpoint.Health(check))
	s.engine.GET("/liveness", endpoint.Liveness(serviceName))
	s.engine.GET("/readiness", endpoint.Readiness(check))
	s.engine.GET("/info", endpoint.Info(serviceName, environment))
	s.engine.GET("/metrics", endpoint.Metrics())
}

// Start binds the port and begins serving. It returns once the listener is
// bound; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.addr.Store(listener.Addr().String())
	s.serving.Store(true)

	go func() {
		defer s.serving.Store(false)
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Server error", logger.ErrorFields("serve", err))
		}
	}()

	s.log.Info("HTTP server started", map[string]interface{}{"addr": s.Addr()})
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Server shutdown error", logger.ErrorFields("shutdown", err))
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.serving.Store(false)
	s.log.Info("HTTP server shut down successfully")
	return nil
}

// Addr returns the bound address after Start, else the configured one.
func (s *Server) Addr() string {
	return s.addr.Load().(string)
}

// Serving reports whether the listener is accepting connections.
func (s *Server) Serving() bool {
	return s.serving.Load()
}
