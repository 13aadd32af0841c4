package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"brokenweave/internal/search"
	"brokenweave/internal/service"
)

type MissingHandler struct {
	reports *service.ReportService
	search  *service.SearchService
	logger  *zap.Logger
}

func NewMissingHandler(reports *service.ReportService, search *service.SearchService, logger *zap.Logger) *MissingHandler {
	return &MissingHandler{reports: reports, search: search, logger: logger}
}

// List handles GET /missing. Query parameters filter like a search but the
// session's search page is left alone.
func (h *MissingHandler) List(c *gin.Context) {
	var criteria search.Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		badRequest(c, "invalid query")
		return
	}

	records, err := h.search.Search(c.Request.Context(), criteria, c.ClientIP())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// Search handles POST /missing/search
func (h *MissingHandler) Search(c *gin.Context) {
	var criteria search.Criteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		badRequest(c, "invalid request")
		return
	}

	sess := currentSession(c)
	snap, err := h.search.Submit(c.Request.Context(), sess.ID, criteria, c.ClientIP())
	if err != nil {
		if errors.Is(err, search.ErrStale) {
			c.JSON(http.StatusConflict, gin.H{"error": search.ErrStale.Error(), "page": snap})
			return
		}
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Page handles GET /missing/search
func (h *MissingHandler) Page(c *gin.Context) {
	c.JSON(http.StatusOK, h.search.Page(currentSession(c).ID))
}

// Get handles GET /missing/:id
func (h *MissingHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Create handles POST /missing
func (h *MissingHandler) Create(c *gin.Context) {
	var req service.ReportInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	p, err := h.reports.Create(c.Request.Context(), currentSession(c), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
