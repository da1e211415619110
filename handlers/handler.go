package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/LovationAdmin/expensewise-api/models"
	"github.com/LovationAdmin/expensewise-api/services"
	"github.com/LovationAdmin/expensewise-api/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	Ledger  *services.LedgerService
	Advisor *services.AdvisorService
	Store   store.Store
	Log     logrus.FieldLogger
	// Now is the clock used for "today" and export file names.
	Now func() time.Time
}

func NewHandler(ledger *services.LedgerService, advisor *services.AdvisorService, st store.Store, log logrus.FieldLogger) *Handler {
	return &Handler{
		Ledger:  ledger,
		Advisor: advisor,
		Store:   st,
		Log:     log.WithField("component", "http"),
		Now:     time.Now,
	}
}

func (h *Handler) today() models.Date {
	return models.DateOf(h.Now())
}

// respondError maps service errors to a status code and a {message} body.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	var storeErr *services.StoreError
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrDuplicateCategory),
		errors.Is(err, services.ErrProtected),
		errors.Is(err, services.ErrUnknownCategory):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		message = "The request took too long to complete"
	case errors.As(err, &storeErr):
		message = "The data store is unavailable, please try again later"
	}

	if status >= http.StatusInternalServerError {
		h.Log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
	}
	c.JSON(status, models.MessageResponse{Message: message})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.MessageResponse{Message: err.Error()})
}

// Health pings the store.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if err := h.Store.Ping(ctx); err != nil {
		h.Log.WithError(err).Warn("Health check failed")
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"backend": h.Store.Backend(),
		"time":    h.Now().Format(time.RFC3339),
	})
}
