// Package http exposes the local status API: a read-only view of the
// session and the aggregated stream state for dashboards and tooling.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/sabbai/adapulse/service"
	"github.com/sabbai/adapulse/stream"
)

// SetupRouter builds the gin engine with all routes registered
func SetupRouter(sessions *service.SessionService, agg *stream.Aggregator) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	h := newHandler(sessions, agg)

	router.GET("/healthz", h.health)
	router.GET("/status", h.status)
	router.GET("/blocks", h.blocks)
	router.GET("/transactions", h.transactions)

	return router
}
