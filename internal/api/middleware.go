package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"brokenweave/internal/service"
	"brokenweave/internal/session"
)

const sessionKey = "session"

// SessionResolver turns a bearer token into a live session. SessionID names
// the session of a signed token whether or not it is still live.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*session.Session, error)
	SessionID(token string) string
}

// SessionMiddleware rejects requests without a live session and stores the
// session in the gin context. With a tracker, live sessions are recorded and
// a dead one presented again is ended so its per-session state is released.
func SessionMiddleware(resolver SessionResolver, tracker *session.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := session.ExtractToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		sess, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) && !errors.Is(err, session.ErrExpired) && !errors.Is(err, session.ErrInvalidToken) {
				writeError(c, nil, err)
				return
			}
			if tracker != nil && !errors.Is(err, session.ErrInvalidToken) {
				if sid := resolver.SessionID(token); sid != "" {
					tracker.End(sid)
				}
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired or invalid"})
			return
		}

		if tracker != nil {
			tracker.Touch(sess)
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// RequirePermission rejects sessions whose role lacks permission.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.Authorize(currentSession(c), permission); err != nil {
			msg := "insufficient permissions"
			if sess := currentSession(c); sess != nil && sess.Guest {
				msg = "guests cannot use this feature, please sign in"
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": msg})
			return
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}
