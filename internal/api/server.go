// Package api exposes the pipeline over HTTP: a health probe, a run
// trigger, the current posts and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/IshaanNene/skatefeed/internal/config"
	"github.com/IshaanNene/skatefeed/internal/engine"
	"github.com/IshaanNene/skatefeed/internal/types"
)

// EngineController is the part of the engine the API drives.
// *engine.Engine satisfies it.
type EngineController interface {
	Run(ctx context.Context, opts engine.RunOptions) (*engine.RunResult, error)
	Posts(ctx context.Context) ([]types.Post, error)
	GetState() engine.State
	LastRun() *engine.RunResult
}

// Server is the trigger server.
type Server struct {
	router  *gin.Engine
	port    int
	engine  EngineController
	metrics http.Handler
	logger  *slog.Logger

	// runCtx bounds triggered runs. It follows the server lifetime, not
	// the triggering request.
	runCtx context.Context
}

// NewServer creates a Server. metrics may be nil, in which case /metrics
// is not registered.
func NewServer(port int, eng EngineController, metrics http.Handler, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:  gin.New(),
		port:    port,
		engine:  eng,
		metrics: metrics,
		logger:  logger.With("component", "api_server"),
		runCtx:  context.Background(),
	}
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}

	s.router.Use(gin.Recovery(), s.requestLogger(), cors.New(corsCfg))
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.runCtx = ctx
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("API server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/status", s.handleStatus)
		api.POST("/scrape", s.handleScrape)
		api.GET("/posts", s.handlePosts)
	}
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": config.Version,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state":   s.engine.GetState().String(),
		"lastRun": s.engine.LastRun(),
	})
}

// handleScrape runs the pipeline once. ?dry_run=true skips persistence.
// A client that disconnects does not cancel the run.
func (s *Server) handleScrape(c *gin.Context) {
	dryRun, _ := strconv.ParseBool(c.Query("dry_run"))

	res, err := s.engine.Run(s.runCtx, engine.RunOptions{DryRun: dryRun})
	switch {
	case errors.Is(err, types.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		s.logger.Error("triggered run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": res})
	default:
		c.JSON(http.StatusOK, res)
	}
}

// handlePosts returns the store contents, newest first. ?limit=N caps the
// response.
func (s *Server) handlePosts(c *gin.Context) {
	posts, err := s.engine.Posts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		if limit < len(posts) {
			posts = posts[:limit]
		}
	}
	if posts == nil {
		posts = []types.Post{}
	}
	c.JSON(http.StatusOK, posts)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}
