package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"brokenweave/internal/service"
	"brokenweave/pkg/outbox"
)

type AdminHandler struct {
	users      *service.UserService
	reports    *service.ReportService
	donations  *service.DonationService
	volunteers *service.VolunteerService
	stories    *service.StoryService
	settings   *service.SettingsService
	replay     *outbox.ReplayService
	logger     *zap.Logger
}

type AdminServices struct {
	Users      *service.UserService
	Reports    *service.ReportService
	Donations  *service.DonationService
	Volunteers *service.VolunteerService
	Stories    *service.StoryService
	Settings   *service.SettingsService
	Replay     *outbox.ReplayService
}

func NewAdminHandler(s AdminServices, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		users:      s.Users,
		reports:    s.Reports,
		donations:  s.Donations,
		volunteers: s.Volunteers,
		stories:    s.Stories,
		settings:   s.Settings,
		replay:     s.Replay,
		logger:     logger,
	}
}

// Users handles GET /admin/users?term=
func (h *AdminHandler) Users(c *gin.Context) {
	f, ok := bindListFilter(c)
	if !ok {
		return
	}
	users, err := h.users.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ToggleAdmin handles POST /admin/users/:id/toggle-admin
func (h *AdminHandler) ToggleAdmin(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	isAdmin, err := h.users.ToggleAdmin(c.Request.Context(), currentSession(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_admin": isAdmin})
}

// Reports handles GET /admin/reports?term=&status=
func (h *AdminHandler) Reports(c *gin.Context) {
	f, ok := bindListFilter(c)
	if !ok {
		return
	}
	reports, err := h.reports.ListAll(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// UpdateReportState handles PATCH /admin/reports/:id/state
func (h *AdminHandler) UpdateReportState(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.CaseStateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if err := h.reports.UpdateState(c.Request.Context(), id, req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "case_state": req.State})
}

// Volunteers handles GET /admin/volunteers?term=
func (h *AdminHandler) Volunteers(c *gin.Context) {
	f, ok := bindListFilter(c)
	if !ok {
		return
	}
	volunteers, err := h.volunteers.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"volunteers": volunteers})
}

// Donations handles GET /admin/donations
func (h *AdminHandler) Donations(c *gin.Context) {
	donations, err := h.donations.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"donations": donations})
}

// Stories handles GET /admin/stories
func (h *AdminHandler) Stories(c *gin.Context) {
	stories, err := h.stories.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

// CreateStory handles POST /admin/stories
func (h *AdminHandler) CreateStory(c *gin.Context) {
	var req service.StoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	story, err := h.stories.Create(c.Request.Context(), currentSession(c), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, story)
}

// UpdateStory handles PUT /admin/stories/:id
func (h *AdminHandler) UpdateStory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.StoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	story, err := h.stories.Update(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

// DeleteStory handles DELETE /admin/stories/:id
func (h *AdminHandler) DeleteStory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.stories.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Settings handles GET /admin/settings
func (h *AdminHandler) Settings(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// UpdateSettings handles PUT /admin/settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req service.SettingsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	s, err := h.settings.Update(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// ReplayOutboxEvent handles POST /admin/outbox/replay?id=xxx
func (h *AdminHandler) ReplayOutboxEvent(c *gin.Context) {
	idStr := c.Query("id")
	if idStr == "" {
		badRequest(c, "missing id parameter")
		return
	}
	eventID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		badRequest(c, "invalid id parameter")
		return
	}

	if err := h.replay.ReplayEvent(c.Request.Context(), eventID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "replayed", "event_id": eventID})
}

// ReplayFailedEvents handles POST /admin/outbox/replay-failed?limit=100
func (h *AdminHandler) ReplayFailedEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	successCount, err := h.replay.ReplayFailedEvents(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "success_count": successCount, "limit": limit})
}

func bindListFilter(c *gin.Context) (service.ListFilter, bool) {
	var f service.ListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, "invalid query")
		return f, false
	}
	return f, true
}
