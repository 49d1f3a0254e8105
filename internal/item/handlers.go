package item

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/auth"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/pagination"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/validation"
)

// Handler provides HTTP endpoints for listings.
type Handler struct {
	service *Service
}

// NewHandler creates a new item handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public listing routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/items", h.ListItems)
	r.GET("/items/:id", h.GetItem)
}

// RegisterProtectedRoutes sets up auth-required listing routes.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.POST("/items", h.CreateItem)
}

// RegisterAdminRoutes sets up moderation routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.PUT("/items/:id/status", h.ModerateItem)
}

// CreateItem handles POST /api/items
func (h *Handler) CreateItem(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validation.Validate(
		validation.Required("title", req.Title),
		validation.Required("category", req.Category),
		validation.OneOf("type", req.Type, string(TypeSell), string(TypeLend), string(TypeBarter)),
		validation.MaxLength("description", req.Description, validation.MaxTextLength),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	it, err := h.service.Create(c.Request.Context(), auth.CallerID(c), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": it})
}

// ListItems handles GET /api/items
func (h *Handler) ListItems(c *gin.Context) {
	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_cursor",
			"message": "Cursor is malformed",
		})
		return
	}

	filter := Filter{
		Category:    c.Query("category"),
		Type:        ListingType(c.Query("type")),
		Marketplace: Marketplace(c.DefaultQuery("marketplace", string(MarketNormal))),
		Search:      c.Query("search"),
		Cursor:      cursor,
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.service.List(c.Request.Context(), filter, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to fetch listings",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":      page.Items,
		"count":      len(page.Items),
		"nextCursor": page.NextCursor,
		"hasMore":    page.HasMore,
	})
}

// GetItem handles GET /api/items/:id
func (h *Handler) GetItem(c *gin.Context) {
	it, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Item not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to fetch item",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": it})
}

// ModerateItem handles PUT /api/items/:id/status
func (h *Handler) ModerateItem(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	it, err := h.service.Moderate(c.Request.Context(), c.Param("id"), Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, ErrItemNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Item not found",
			})
		case errors.Is(err, ErrInvalidStatus):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "invalid_state",
				"message": "Item cannot be moved to that status",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to update item status",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": it})
}
