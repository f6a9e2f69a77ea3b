package middleware

import (
	"time"

	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/types"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware returns a middleware that captures panics and performance data
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// SentryRequestContextMiddleware tags the request scope with the request and user ids.
// It must run after RequestIDMiddleware.
func SentryRequestContextMiddleware(c *gin.Context) {
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		c.Next()
		return
	}
	ctx := c.Request.Context()
	if requestID := types.GetRequestID(ctx); requestID != "" {
		hub.Scope().SetTag("request_id", requestID)
	}
	if userID := types.GetUserID(ctx); userID != "" {
		hub.Scope().SetTag("user_id", userID)
	}
	c.Next()
}
