package v1

import (
	"strconv"
	"time"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// queryDate parses an optional YYYY-MM-DD query parameter; a missing parameter yields fallback
func queryDate(c *gin.Context, key string, fallback time.Time) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, ierr.WithError(err).
			WithHintf("%s must be a date formatted as YYYY-MM-DD", key).
			Mark(ierr.ErrValidation)
	}
	return t, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0, ierr.WithError(err).
			WithHintf("%s must be a whole number", key).
			Mark(ierr.ErrValidation)
	}
	return v, nil
}
