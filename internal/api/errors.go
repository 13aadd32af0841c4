package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"brokenweave/internal/feed"
	"brokenweave/internal/search"
	"brokenweave/internal/service"
	"brokenweave/internal/session"
	"brokenweave/internal/validate"
	"brokenweave/pkg/logger"
	"brokenweave/pkg/outbox"
)

// statusFor maps an error to its HTTP status and public message.
func statusFor(err error) (int, string) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "validation failed"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, service.ErrInvalidCredentials.Error()
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, session.ErrExpired),
		errors.Is(err, session.ErrInvalidToken),
		errors.Is(err, feed.ErrDropped):
		return http.StatusUnauthorized, "session expired or invalid"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound), errors.Is(err, outbox.ErrEventNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict, err.Error()
	case errors.Is(err, feed.ErrLocked):
		return http.StatusConflict, feed.ErrLocked.Error()
	case errors.Is(err, search.ErrStale):
		return http.StatusConflict, search.ErrStale.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func writeError(c *gin.Context, log *zap.Logger, err error) {
	status, msg := statusFor(err)
	body := gin.H{"error": msg}

	var verr *validate.Error
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}
	if status == http.StatusInternalServerError && log != nil {
		logger.WithTrace(c.Request.Context(), log).Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
