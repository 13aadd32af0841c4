package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"brokenweave/internal/service"
)

type FormHandler struct {
	donations  *service.DonationService
	volunteers *service.VolunteerService
	stories    *service.StoryService
	logger     *zap.Logger
}

func NewFormHandler(donations *service.DonationService, volunteers *service.VolunteerService, stories *service.StoryService, logger *zap.Logger) *FormHandler {
	return &FormHandler{donations: donations, volunteers: volunteers, stories: stories, logger: logger}
}

// Donate handles POST /donations
func (h *FormHandler) Donate(c *gin.Context) {
	var req service.DonationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	d, err := h.donations.Create(c.Request.Context(), currentSession(c), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// Volunteer handles POST /volunteers
func (h *FormHandler) Volunteer(c *gin.Context) {
	var req service.VolunteerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	v, err := h.volunteers.Create(c.Request.Context(), currentSession(c), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// Stories handles GET /stories
func (h *FormHandler) Stories(c *gin.Context) {
	stories, err := h.stories.Published(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": stories})
}
