package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func NewRouter(h *LessonsHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	{
		v1.GET("/slots", h.AvailableSlots)
		v1.POST("/lessons", h.Book)
		v1.GET("/lessons", h.List)
		v1.POST("/lessons/:id/cancel", h.Cancel)
		v1.POST("/lessons/:id/complete", h.Complete)
		v1.DELETE("/lessons/:id", h.Delete)
		v1.GET("/students/:id/completed-count", h.CompletedCount)
	}

	return r
}
