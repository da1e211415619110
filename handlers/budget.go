package handlers

import (
	"net/http"

	"github.com/LovationAdmin/expensewise-api/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetBudgets(c *gin.Context) {
	budgets, err := h.Ledger.ListBudgets(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, budgets)
}

// SetBudget creates or replaces the budget of a category.
func (h *Handler) SetBudget(c *gin.Context) {
	var req models.SetBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	budget, err := h.Ledger.SetBudget(c.Request.Context(), req.Category, *req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, budget)
}
