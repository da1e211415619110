package handlers

import (
	"net/http"

	"github.com/LovationAdmin/expensewise-api/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.Ledger.ListCategories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	category, err := h.Ledger.AddCategory(c.Request.Context(), req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// DeleteCategory answers 200 even when nothing matched.
func (h *Handler) DeleteCategory(c *gin.Context) {
	if err := h.Ledger.DeleteCategory(c.Request.Context(), c.Param("name")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Category and associated data deleted"})
}

// SuggestIcon previews the icon a new category would get. It never fails
// on AI errors; the fallback icon is returned instead.
func (h *Handler) SuggestIcon(c *gin.Context) {
	var req models.SuggestIconRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	icon := h.Ledger.SuggestIcon(c.Request.Context(), req.Name)
	c.JSON(http.StatusOK, gin.H{
		"name": req.Name,
		"icon": icon,
	})
}

func (h *Handler) GetIcons(c *gin.Context) {
	c.JSON(http.StatusOK, models.IconKeys())
}
