// Package httpapi serves the wells and barometric data as JSON
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/usecases"
)

// Options configures the server
type Options struct {
	Addr            string
	APIToken        string // Required for write endpoints; empty disables them
	ShutdownTimeout time.Duration
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	opts   Options
	wells  *usecases.WellUseCase
	levels *usecases.WaterLevelUseCase
	baros  *usecases.BarologgerUseCase
	engine *gin.Engine
	now    func() time.Time
}

// New constructs a server with routes and middleware.
func New(opts Options, wells *usecases.WellUseCase, levels *usecases.WaterLevelUseCase, baros *usecases.BarologgerUseCase) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	server := &Server{
		opts:   opts,
		wells:  wells,
		levels: levels,
		baros:  baros,
		engine: engine,
		now:    time.Now,
	}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.opts.Addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/wells", s.handleListWells)
		v1.GET("/wells/:wn", s.handleGetWell)
		v1.GET("/wells/:wn/readings", s.handleWellReadings)
		v1.GET("/barologgers", s.handleListBarologgers)
		v1.GET("/master-baro", s.handleListMasterBaro)
		v1.POST("/master-baro", bearerAuthMiddleware(s.opts.APIToken), s.handleCreateMasterBaro)
	}
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "write endpoints are disabled"})
			return
		}
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
