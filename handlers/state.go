package handlers

import (
	"net/http"

	"github.com/LovationAdmin/expensewise-api/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetState(c *gin.Context) {
	state, err := h.Ledger.GetState(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// UpdateState leaves fields missing from the body unchanged.
func (h *Handler) UpdateState(c *gin.Context) {
	var req models.UpdateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	state, err := h.Ledger.UpdateState(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
