package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LovationAdmin/expensewise-api/models"
	"github.com/LovationAdmin/expensewise-api/services"

	"github.com/gin-gonic/gin"
)

// reportQuery is the query string shared by the report endpoints.
type reportQuery struct {
	Month    string `form:"month"`
	From     string `form:"from"`
	To       string `form:"to"`
	Category string `form:"category"`
	Search   string `form:"q"`
	Sort     string `form:"sort"`
}

func (q reportQuery) filter() (models.ExpenseFilter, error) {
	f := models.ExpenseFilter{
		Month:  strings.TrimSpace(q.Month),
		Search: q.Search,
	}
	if f.Month != "" {
		if _, err := time.Parse("2006-01", f.Month); err != nil {
			return f, fmt.Errorf("invalid month %q: expected YYYY-MM", q.Month)
		}
	}
	if q.From != "" {
		d, err := models.ParseDate(q.From)
		if err != nil {
			return f, err
		}
		f.From = &d
	}
	if q.To != "" {
		d, err := models.ParseDate(q.To)
		if err != nil {
			return f, err
		}
		f.To = &d
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, fmt.Errorf("invalid range: to is before from")
	}
	// "all" is what the dashboard sends for no category filter.
	if cat := strings.TrimSpace(q.Category); cat != "" && !strings.EqualFold(cat, "all") {
		f.Category = cat
	}

	key, desc, err := models.ParseSort(q.Sort)
	if err != nil {
		return f, err
	}
	f.SortKey, f.Descending = key, desc
	return f, nil
}

func (h *Handler) bindReportFilter(c *gin.Context) (models.ExpenseFilter, bool) {
	var q reportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return models.ExpenseFilter{}, false
	}
	f, err := q.filter()
	if err != nil {
		h.badRequest(c, err)
		return models.ExpenseFilter{}, false
	}
	return f, true
}

// GetSummary returns the dashboard figures. ?today=YYYY-MM-DD overrides
// the server date.
func (h *Handler) GetSummary(c *gin.Context) {
	today := h.today()
	if raw := c.Query("today"); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			h.badRequest(c, err)
			return
		}
		today = d
	}

	snap, err := h.Ledger.Snapshot(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.BuildSummary(snap, today))
}

func (h *Handler) GetExpenseReport(c *gin.Context) {
	f, ok := h.bindReportFilter(c)
	if !ok {
		return
	}
	expenses, err := h.Ledger.ListExpenses(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.BuildReport(expenses, f))
}

func (h *Handler) ExportCSV(c *gin.Context) {
	h.export(c, "csv", services.ContentTypeCSV, services.WriteExpensesCSV)
}

func (h *Handler) ExportXLSX(c *gin.Context) {
	h.export(c, "xlsx", services.ContentTypeXLSX, services.WriteExpensesXLSX)
}

func (h *Handler) export(c *gin.Context, ext, contentType string, write func(io.Writer, []models.Expense) error) {
	f, ok := h.bindReportFilter(c)
	if !ok {
		return
	}
	expenses, err := h.Ledger.ListExpenses(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	list := services.FilterExpenses(expenses, f)
	if len(list) == 0 {
		c.JSON(http.StatusNotFound, models.MessageResponse{Message: "No data to export."})
		return
	}

	// Rendered to a buffer first so a write error can still become a JSON error.
	var buf bytes.Buffer
	if err := write(&buf, list); err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, services.ExportFileName(h.Now(), ext)))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
