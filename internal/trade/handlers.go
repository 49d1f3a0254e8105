package trade

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/auth"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/item"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/validation"
)

// Handler provides HTTP endpoints for trade operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new trade handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes sets up auth-required trade routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/trades", h.CreateTrade)
	r.GET("/trades/:id", h.GetTrade)
	r.POST("/trades/:id/accept", h.AcceptTrade)
	r.POST("/trades/:id/decline", h.DeclineTrade)
	r.POST("/trades/:id/propose", h.ProposeTrade)
	r.POST("/trades/:id/finish", h.FinishTrade)
}

// RegisterSupervisorRoutes sets up member-only trade routes.
func (h *Handler) RegisterSupervisorRoutes(r *gin.RouterGroup) {
	r.GET("/trades/pending-supervision", h.ListPendingSupervision)
	r.POST("/trades/:id/schedule", h.ScheduleTrade)
	r.POST("/trades/:id/mark-done", h.MarkDone)
}

// CreateRequest opens a trade on a listing.
type CreateRequest struct {
	ListingID string `json:"listingId" binding:"required"`
}

// CreateTrade handles POST /api/trades
func (h *Handler) CreateTrade(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	t, err := h.service.Create(c.Request.Context(), req.ListingID, auth.CallerID(c))
	if err != nil {
		respondTradeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"trade": t})
}

// GetTrade handles GET /api/trades/:id
func (h *Handler) GetTrade(c *gin.Context) {
	snap, err := h.service.Get(c.Request.Context(), c.Param("id"),
		auth.CallerID(c), auth.CallerRole(c).CanSupervise())
	if err != nil {
		respondTradeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trade": snap})
}

// ListPendingSupervision handles GET /api/trades/pending-supervision
func (h *Handler) ListPendingSupervision(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	status := Status(strings.ToUpper(c.Query("status")))

	trades, err := h.service.ListPendingSupervision(c.Request.Context(), auth.CallerID(c), status, limit)
	if err != nil {
		respondTradeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trades": trades,
		"count":  len(trades),
	})
}

// ProposeTrade handles POST /api/trades/:id/propose
func (h *Handler) ProposeTrade(c *gin.Context) {
	var req ProposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validation.Validate(
		validation.MaxLength("barter", req.Barter, validation.MaxTextLength),
		validation.MaxLength("commitment", req.Commitment, validation.MaxTextLength),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	snap, err := h.service.Propose(c.Request.Context(), c.Param("id"), auth.CallerID(c), req)
	if err != nil {
		respondTradeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trade": snap})
}

// AcceptTrade handles POST /api/trades/:id/accept
func (h *Handler) AcceptTrade(c *gin.Context) {
	snap, err := h.service.Accept(c.Request.Context(), c.Param("id"), auth.CallerID(c))
	if err != nil {
		respondTradeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trade": snap})
}

// DeclineTrade handles POST /api/trades/:id/decline
func (h *Handler) DeclineTrade(c *gin.Context) {
	snap, err := h.service.Decline(c.Request.Context(), c.Param("id"), auth.CallerID(c))
	if err != nil {
		respondTradeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trade": snap})
}

// ScheduleTrade handles POST /api/trades/:id/schedule
func (h *Handler) ScheduleTrade(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	snap, err := h.service.Schedule(c.Request.Context(), c.Param("id"), auth.CallerID(c), req)
	if err != nil {
		respondTradeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trade": snap})
}

// MarkDone handles POST /api/trades/:id/mark-done
func (h *Handler) MarkDone(c *gin.Context) {
	snap, err := h.service.MarkDone(c.Request.Context(), c.Param("id"), auth.CallerID(c))
	if err != nil {
		respondTradeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trade": snap})
}

// FinishTrade handles POST /api/trades/:id/finish
func (h *Handler) FinishTrade(c *gin.Context) {
	snap, err := h.service.Finish(c.Request.Context(), c.Param("id"), auth.CallerID(c))
	if err != nil {
		respondTradeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trade": snap})
}

func respondTradeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTradeNotFound) || errors.Is(err, item.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": err.Error(),
		})
	case errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrSelfTrade) ||
		errors.Is(err, ErrSelfSupervise) || errors.Is(err, ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": err.Error(),
		})
	case errors.Is(err, ErrInvalidStatus) || errors.Is(err, ErrNotConfirmed) ||
		errors.Is(err, ErrListingClosed) || errors.Is(err, item.ErrAlreadySold):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_state",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "trade_failed",
			"message": err.Error(),
		})
	}
}
