package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"botfleet/internal/api"
	"botfleet/internal/config"
	"botfleet/pkg/logging"
)

const subsystem = "Server"

// Options configures a Server.
type Options struct {
	// AdminToken enables the /admin routes when non-empty.
	AdminToken string

	// Namespace and Version are reported by /healthz.
	Namespace string
	Version   string
}

// Server serves the lifecycle API on top of a BotManagerHandler.
type Server struct {
	bots    api.BotManagerHandler
	opts    Options
	metrics *metrics
}

// New creates a Server for the given lifecycle handler.
func New(bots api.BotManagerHandler, opts Options) *Server {
	return &Server{
		bots:    bots,
		opts:    opts,
		metrics: newMetrics(),
	}
}

// Router builds the HTTP handler with all routes registered.
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), withRequestID(), s.metrics.instrument(), logRequests())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	s.registerBots(r.Group("/api/v1/bots", s.requireTenant()))
	if s.opts.AdminToken != "" {
		s.registerBots(r.Group("/admin/v1/bots", s.requireAdmin()))
	} else {
		logging.Info(subsystem, "No admin token configured, admin routes disabled")
	}

	r.NoRoute(func(c *gin.Context) {
		s.writeError(c, api.NewNotFoundErrorWithMessage("route", c.Request.URL.Path,
			fmt.Sprintf("no route for %s %s", c.Request.Method, c.Request.URL.Path)))
	})

	return r
}

func (s *Server) registerBots(bots *gin.RouterGroup) {
	bots.GET("", s.handleList)
	bots.POST("", s.handleDeploy)

	botID := bots.Group("/:botID")
	botID.GET("", s.handleGet)
	botID.PATCH("", s.handleUpdate)
	botID.DELETE("", s.handleDelete)
	botID.POST("/start", s.handleStart)
	botID.POST("/stop", s.handleStop)
	botID.POST("/restart", s.handleRestart)
	botID.POST("/scale", s.handleScale)
	botID.POST("/exec", s.handleExec)
	botID.GET("/status", s.handleStatus)
	botID.GET("/logs", s.handleLogs)
	botID.GET("/metrics", s.handleMetrics)
}

// Run serves until ctx is cancelled and then shuts down gracefully, waiting
// at most cfg.ShutdownTimeout for in-flight requests.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           s.Router(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info(subsystem, "Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logging.Info(subsystem, "Shutting down (grace period %s)", timeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
