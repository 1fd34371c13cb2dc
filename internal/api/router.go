package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/damienbose/line-draw/internal/config"
	"github.com/damienbose/line-draw/internal/handler"
	"github.com/damienbose/line-draw/internal/metrics"
	"github.com/damienbose/line-draw/internal/middleware"
)

// SetupRouter wires all routes.
func SetupRouter(cfg *config.Config, jobs *handler.JobHandler, ws *handler.WSHandler, mc *metrics.Collector) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Line Draw API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(mc.Handler()))

	api := r.Group("/api")
	{
		images := api.Group("/images")
		{
			images.POST("/upload",
				middleware.RateLimit(cfg.RateLimit, cfg.RateWindow),
				jobs.Upload)
		}

		jobsGroup := api.Group("/jobs")
		{
			jobsGroup.POST("/:id/start", jobs.Start)
			jobsGroup.GET("/:id", jobs.Status)
			jobsGroup.GET("/:id/result", jobs.Result)
			jobsGroup.GET("/:id/result/base64", jobs.ResultBase64)
			jobsGroup.POST("/:id/cancel", jobs.Cancel)
			jobsGroup.DELETE("/:id", jobs.Delete)
		}

		api.GET("/ws/jobs/:id", ws.Stream)
	}

	return r
}
