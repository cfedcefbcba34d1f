// Package server exposes the exploration operations as a JSON API for the
// presentation layer.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dithap/dithap-explorer/internal/curves"
	"github.com/dithap/dithap-explorer/internal/dataset"
	"github.com/dithap/dithap-explorer/internal/enrich"
	"github.com/dithap/dithap-explorer/internal/stringdb"
)

// Options holds optional collaborators. Nil Curves or STRING disables the
// corresponding routes. When CurveFiles names a gene LFC table, each
// curves request first syncs the store with the files on disk.
type Options struct {
	Curves     *curves.Store
	CurveFiles curves.Files
	STRING     *stringdb.Client
	Workers    int
	Logger     *zap.Logger
}

// Server serves the API.
type Server struct {
	data       *dataset.Dataset
	engine     *enrich.Engine
	curves     *curves.Store
	curveFiles curves.Files
	stringDB   *stringdb.Client
	workers    int
	logger     *zap.Logger
	router     *gin.Engine
}

// New creates a server over the dataset.
func New(data *dataset.Dataset, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := enrich.NewEngine()
	engine.SetLogger(logger)

	s := &Server{
		data:       data,
		engine:     engine,
		curves:     opts.Curves,
		curveFiles: opts.CurveFiles,
		stringDB:   opts.STRING,
		workers:    opts.Workers,
		logger:     logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), corsMiddleware())

	r.GET("/healthcheck", healthCheckHandler)
	r.GET("/genesets", s.geneSetsHandler)
	r.POST("/resolve", s.resolveHandler)
	r.POST("/enrich", s.enrichHandler)
	r.GET("/genes/:query", s.geneHandler)
	r.GET("/curves", s.curvesHandler)
	r.POST("/string", s.stringHandler)
	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// statusFor maps load errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dataset.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, enrich.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
