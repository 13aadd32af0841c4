package api

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"brokenweave/internal/feed"
)

// Widgets hands out the notification widget of a session.
type Widgets interface {
	Get(ctx context.Context, sessionID string) (*feed.Widget, error)
}

// NotificationHandler exposes an admin's notification widget. Read updates
// are applied locally first; a failed backend update shows up as last_error
// in the returned snapshot.
type NotificationHandler struct {
	widgets Widgets
	logger  *zap.Logger
}

func NewNotificationHandler(widgets Widgets, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{widgets: widgets, logger: logger}
}

func (h *NotificationHandler) widget(c *gin.Context) (*feed.Widget, bool) {
	w, err := h.widgets.Get(c.Request.Context(), currentSession(c).ID)
	if err != nil {
		writeError(c, h.logger, err)
		return nil, false
	}
	return w, true
}

// Snapshot handles GET /admin/notifications
func (h *NotificationHandler) Snapshot(c *gin.Context) {
	w, ok := h.widget(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, w.Snapshot())
}

// MarkRead handles POST /admin/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return
	}
	w, ok := h.widget(c)
	if !ok {
		return
	}
	_ = w.MarkRead(c.Request.Context(), id)
	c.JSON(http.StatusOK, w.Snapshot())
}

// MarkAllRead handles POST /admin/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	w, ok := h.widget(c)
	if !ok {
		return
	}
	_ = w.MarkAllRead(c.Request.Context())
	c.JSON(http.StatusOK, w.Snapshot())
}

// Open handles POST /admin/notifications/open
func (h *NotificationHandler) Open(c *gin.Context) {
	w, ok := h.widget(c)
	if !ok {
		return
	}
	w.Open()
	c.JSON(http.StatusOK, w.Snapshot())
}

// Close handles POST /admin/notifications/close
func (h *NotificationHandler) Close(c *gin.Context) {
	w, ok := h.widget(c)
	if !ok {
		return
	}
	if err := w.Close(); err != nil {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error(), "widget": w.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, w.Snapshot())
}

// Stream handles GET /admin/notifications/stream as server-sent events.
func (h *NotificationHandler) Stream(c *gin.Context) {
	w, ok := h.widget(c)
	if !ok {
		return
	}
	snapshots, cancel := w.Watch()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(out io.Writer) bool {
		select {
		case snap, open := <-snapshots:
			if !open {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
