package middleware

import (
	"net/http"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/sentry"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error a handler attached with c.Error.
// Server side failures are also reported to sentry.
func ErrorHandler(sentryService *sentry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)
		if status >= http.StatusInternalServerError {
			sentryService.CaptureExceptionWithContext(c.Request.Context(), err, map[string]string{
				"path":   c.FullPath(),
				"method": c.Request.Method,
			})
		}

		c.JSON(status, ierr.NewErrorResponse(err))
	}
}
