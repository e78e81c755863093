// Package diag serves the governor's debug HTTP surface: prometheus metrics,
// the raw status registry, and a read/override endpoint for the governor
package diag

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/governor"
	"github.com/lixenwraith/perfgov/quality"
	"github.com/lixenwraith/perfgov/status"
)

// Namespace prefixes every exported metric
const Namespace = "perfgov"

const shutdownTimeout = 5 * time.Second

// Server is the debug HTTP server
type Server struct {
	gov    *governor.Governor
	logger *zap.Logger
	router *gin.Engine
	prom   *prometheus.Registry

	addr     string
	server   *http.Server
	listener net.Listener
	started  time.Time
}

// TierRequest is the body of POST /governor/tier
type TierRequest struct {
	Tier string `json:"tier" binding:"required"`
}

// AdaptiveRequest is the body of POST /governor/adaptive
type AdaptiveRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// New builds the router; nothing listens until Start
func New(addr string, g *governor.Governor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		gov:    g,
		logger: logger.With(zap.String("module", "diag")),
		router: gin.New(),
		prom:   prometheus.NewRegistry(),
		addr:   addr,
	}
	s.prom.MustRegister(
		status.NewCollector(g.Registry, Namespace),
		collectors.NewGoCollector(),
	)

	s.router.Use(s.requestLogger(), gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(s.started).Round(time.Second).String(),
			"frame":  s.gov.Engine.Frame(),
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.prom, promhttp.HandlerOpts{})))
	s.router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.gov.Registry.Snapshot())
	})

	gov := s.router.Group("/governor")
	{
		gov.GET("", s.getGovernor)
		gov.POST("/tier", s.setTier)
		gov.POST("/adaptive", s.setAdaptive)
		gov.POST("/pause", func(c *gin.Context) {
			s.gov.Loop.Pause()
			c.JSON(http.StatusOK, gin.H{"paused": true})
		})
		gov.POST("/resume", func(c *gin.Context) {
			s.gov.Loop.Resume()
			c.JSON(http.StatusOK, gin.H{"paused": false})
		})
	}
}

// Handler exposes the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) getGovernor(c *gin.Context) {
	c.JSON(http.StatusOK, s.gov.Status())
}

func (s *Server) setTier(c *gin.Context) {
	var req TierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, ok := quality.ParseTier(req.Tier)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown tier %q", req.Tier)})
		return
	}
	s.gov.SetTier(t)
	s.logger.Info("tier forced", zap.Stringer("tier", t), zap.String("client_ip", c.ClientIP()))
	c.JSON(http.StatusOK, s.gov.Status())
}

func (s *Server) setAdaptive(c *gin.Context) {
	var req AdaptiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.gov.SetAdaptive(*req.Enabled)
	s.logger.Info("adaptive quality toggled", zap.Bool("enabled", *req.Enabled))
	c.JSON(http.StatusOK, s.gov.Status())
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= 500:
			s.logger.Error("http request", fields...)
		case c.Writer.Status() >= 400:
			s.logger.Warn("http request", fields...)
		default:
			s.logger.Debug("http request", fields...)
		}
	}
}

// Start binds addr and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("diag listen %s: %w", s.addr, err)
	}
	s.listener = ln
	s.started = time.Now()
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("diag server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("diag server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound address once started, else the configured one
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
	}
	return s.server.Shutdown(ctx)
}
