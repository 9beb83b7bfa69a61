// Package api provides the reference HTTP binding of the deliberation
// core: a thin gin server exposing Handle plus a health endpoint. The core
// contract is Handle itself; hosts with a different transport can bind it
// without this package.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/skyrecover/pkg/datastore"
	"github.com/codeready-toolchain/skyrecover/pkg/masking"
	"github.com/codeready-toolchain/skyrecover/pkg/orchestrator"
)

// Server is the HTTP API server.
type Server struct {
	router       *gin.Engine
	orchestrator *orchestrator.Orchestrator
	store        datastore.Store  // nil when persistence is disabled
	masker       *masking.Service // nil when masking is disabled
}

// NewServer creates the API server and registers its routes.
func NewServer(o *orchestrator.Orchestrator, store datastore.Store, masker *masking.Service) *Server {
	router := gin.Default()

	s := &Server{
		router:       router,
		orchestrator: o,
		store:        store,
		masker:       masker,
	}

	router.GET("/health", s.healthHandler)
	v1 := router.Group("/api/v1")
	v1.POST("/disruptions", s.submitDisruptionHandler)

	return s
}

// Router exposes the underlying gin engine for tests and for hosts that
// mount additional routes.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server on addr and blocks.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) healthHandler(c *gin.Context) {
	body := gin.H{"status": "healthy"}

	if pg, ok := s.store.(*datastore.PostgresStore); ok {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbHealth, err := datastore.Health(reqCtx, pg.DB())
		body["datastore"] = dbHealth
		if err != nil {
			body["status"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}

	if s.masker != nil {
		body["masking_patterns"] = s.masker.PatternNames()
	}

	c.JSON(http.StatusOK, body)
}
