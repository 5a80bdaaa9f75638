package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine with every estimator route. metrics may
// be nil to leave /metrics unregistered.
func NewRouter(h *Handler, metrics http.Handler, debug bool) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.log))

	router.GET("/health", h.Health)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/api/v1")
	v1.GET("/operations/suggestions", h.Suggestions)
	v1.GET("/drawings/:drawingNumber/history", h.DrawingHistory)
	v1.GET("/drawings/:drawingNumber/last-completed", h.LastCompleted)
	v1.GET("/drawings/:drawingNumber/statistics", h.Statistics)
	v1.GET("/analytics/time", h.TimeAnalytics)

	return router
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}
