// Package gateway exposes a read-only HTTP view over a running
// pipeline's feature store (spec §4.8, §5): column values, row counts,
// and timeslot-readiness for downstream cross-sectional consumers.
// Writes stay internal to internal/runtime; this package never calls
// Store.PushRow.
//
// Grounded on the teacher's internal/gateway/server.go gin.Engine
// setup, trimmed of fx lifecycle hooks and the auth/cors middleware
// this module has no use for (no multi-tenant auth surface in scope).
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/typhfeng/stk-sub000/internal/featurestore"
)

// Server wraps a gin.Engine and the http.Server serving it.
type Server struct {
	router *gin.Engine
	logger *zap.Logger
	http   *http.Server
}

// NewServer builds a Server bound to addr, serving the given store.
// gin runs in release mode unless debug is true, matching the
// teacher's environment-gated gin.SetMode call.
func NewServer(addr string, store *featurestore.Store, logger *zap.Logger, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	s := &Server{
		router: router,
		logger: logger,
		http:   &http.Server{Addr: addr, Handler: router},
	}
	registerRoutes(router, store)
	return s
}

// Start runs the HTTP server in the background. ListenAndServe errors
// other than http.ErrServerClosed are logged, not returned, matching
// the teacher's fire-and-forget OnStart hook.
func (s *Server) Start() {
	go func() {
		s.logger.Info("starting feature gateway", zap.String("address", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("feature gateway stopped", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts the server down, honoring ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping feature gateway")
	return s.http.Shutdown(ctx)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		logger.Info("gateway request",
			zap.String("path", path),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
