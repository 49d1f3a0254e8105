package issue

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/auth"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/trade"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/validation"
)

// Handler provides HTTP endpoints for dispute operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new issue handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes sets up participant-facing dispute routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/trades/:id/report-issue", h.ReportIssue)
	r.POST("/trades/issues/:id/resolve", h.ResolveIssue)
}

// RegisterSupervisorRoutes sets up member-only dispute routes.
func (h *Handler) RegisterSupervisorRoutes(r *gin.RouterGroup) {
	r.POST("/trades/issues/:id/claim", h.ClaimIssue)
	r.POST("/trades/issues/:id/finalize", h.FinalizeIssue)
	r.GET("/trades/issues/:status", h.ListIssues)
}

// ReportRequest files a dispute on a trade.
type ReportRequest struct {
	Description string `json:"description" binding:"required"`
}

// FinalizeRequest closes a mediated dispute.
type FinalizeRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

// ReportIssue handles POST /api/trades/:id/report-issue
func (h *Handler) ReportIssue(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validation.Validate(
		validation.MaxLength("description", req.Description, validation.MaxTextLength),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	i, err := h.service.Report(c.Request.Context(), c.Param("id"), auth.CallerID(c), req.Description)
	if err != nil {
		respondIssueError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"issue": i})
}

// ClaimIssue handles POST /api/trades/issues/:id/claim
func (h *Handler) ClaimIssue(c *gin.Context) {
	i, err := h.service.Claim(c.Request.Context(), c.Param("id"), auth.CallerID(c))
	if err != nil {
		respondIssueError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"issue": i})
}

// ResolveIssue handles POST /api/trades/issues/:id/resolve
func (h *Handler) ResolveIssue(c *gin.Context) {
	i, err := h.service.ResolveParty(c.Request.Context(), c.Param("id"), auth.CallerID(c))
	if err != nil {
		respondIssueError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"issue": i})
}

// FinalizeIssue handles POST /api/trades/issues/:id/finalize
func (h *Handler) FinalizeIssue(c *gin.Context) {
	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	i, err := h.service.Finalize(c.Request.Context(), c.Param("id"), auth.CallerID(c), req.Resolution)
	if err != nil {
		respondIssueError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"issue": i})
}

// ListIssues handles GET /api/trades/issues/:status
func (h *Handler) ListIssues(c *gin.Context) {
	status, err := ParseStatus(strings.ToUpper(c.Param("status")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Unknown issue status",
		})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	issues, err := h.service.ListByStatus(c.Request.Context(), status, auth.CallerID(c), limit)
	if err != nil {
		respondIssueError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"issues": issues,
		"count":  len(issues),
	})
}

func respondIssueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrIssueNotFound) || errors.Is(err, trade.ErrTradeNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": err.Error(),
		})
	case errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrSelfMediate) ||
		errors.Is(err, trade.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": err.Error(),
		})
	case errors.Is(err, ErrInvalidStatus) || errors.Is(err, ErrAlreadyClaimed) ||
		errors.Is(err, trade.ErrInvalidStatus):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_state",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "issue_failed",
			"message": err.Error(),
		})
	}
}
