// Package api exposes the publish and ingest workflows over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const correlationHeader = "X-Correlation-Id"

// NewServer creates the gin engine with all routes configured. The same
// engine serves the standalone listener and the Lambda adapter.
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(correlationID())
	r.Use(requestLogger())
	r.Use(recovery())

	setupRoutes(r, handler)
	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	api := r.Group("/api")
	{
		api.GET("/tweet", handler.Tweet)
		api.GET("/add-to-sheet", handler.AddToSheet)
		api.GET("/health", handler.Health)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	})
}

// correlationID echoes the caller's correlation ID or assigns a new one.
func correlationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(correlationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationHeader, id)
		c.Header(correlationHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("correlationId", c.GetString(correlationHeader)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("clientIp", c.ClientIP()).
			Msg("HTTP request")
	}
}

// recovery turns a panic in a handler into a 500 with the standard error
// body.
func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Str("correlationId", c.GetString(correlationHeader)).
					Interface("panic", rec).
					Msg("Handler panicked")
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
			}
		}()
		c.Next()
	}
}
