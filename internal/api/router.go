package api

import "github.com/gin-gonic/gin"

// NewRouter wires the API routes.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.Default()

	router.GET("/healthz", h.Healthz)

	v1 := router.Group("/v1")
	{
		v1.POST("/track", h.Track)
		v1.GET("/prices/:id", h.Prices)
	}

	return router
}
