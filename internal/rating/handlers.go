package rating

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/auth"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/trade"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/validation"
)

// Handler provides HTTP endpoints for reviews.
type Handler struct {
	service *Service
}

// NewHandler creates a new rating handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public rating routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ratings/:userId", h.ListRatings)
}

// RegisterProtectedRoutes sets up auth-required rating routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/ratings", h.SubmitRating)
}

// SubmitRating handles POST /api/ratings
func (h *Handler) SubmitRating(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validation.Validate(
		validation.Score("accuracy", req.Accuracy),
		validation.Score("honesty", req.Honesty),
		validation.Score("experience", req.Experience),
		validation.MaxLength("comment", req.Comment, validation.MaxTextLength),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	r, err := h.service.Submit(c.Request.Context(), auth.CallerID(c), req)
	if err != nil {
		respondRatingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"rating": r})
}

// ListRatings handles GET /api/ratings/:userId
func (h *Handler) ListRatings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	ratings, err := h.service.ListForUser(c.Request.Context(), c.Param("userId"), limit)
	if err != nil {
		respondRatingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ratings": ratings,
		"count":   len(ratings),
	})
}

func respondRatingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trade.ErrTradeNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": err.Error(),
		})
	case errors.Is(err, ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": err.Error(),
		})
	case errors.Is(err, ErrAlreadyRated) || errors.Is(err, ErrTradeNotComplete):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_state",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "rating_failed",
			"message": err.Error(),
		})
	}
}
