package handlers

import (
	"net/http"

	"github.com/LovationAdmin/expensewise-api/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AnalyzeSpending(c *gin.Context) {
	analysis, err := h.Advisor.Analyze(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.AnalysisResponse{Analysis: analysis})
}
