package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"dairy-service/internal/infra/payment"
	"dairy-service/internal/services"
)

var statusByError = []struct {
	err    error
	status int
}{
	{services.ErrValidation, http.StatusBadRequest},
	{services.ErrNoOrderItems, http.StatusBadRequest},
	{services.ErrInvalidQuantity, http.StatusBadRequest},
	{services.ErrInvalidRecurrence, http.StatusBadRequest},
	{services.ErrInvalidStatus, http.StatusBadRequest},
	{services.ErrInvalidTransition, http.StatusBadRequest},
	{services.ErrCannotCancel, http.StatusBadRequest},
	{services.ErrProductInactive, http.StatusBadRequest},
	{services.ErrInsufficientAvailability, http.StatusBadRequest},
	{services.ErrEmailTaken, http.StatusBadRequest},
	{services.ErrWeakPassword, http.StatusBadRequest},
	{services.ErrInvalidAmount, http.StatusBadRequest},
	{payment.ErrInvalidSignature, http.StatusBadRequest},

	{services.ErrOrderNotFound, http.StatusNotFound},
	{services.ErrProductNotFound, http.StatusNotFound},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrPaymentNotFound, http.StatusNotFound},

	{services.ErrUnauthorized, http.StatusUnauthorized},
	{services.ErrInvalidCredentials, http.StatusUnauthorized},
	{services.ErrForbidden, http.StatusForbidden},
}

func statusFor(err error) int {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status, body := h.errorBody(c, err)
	c.JSON(status, body)
}

func (h *Handler) abortWithError(c *gin.Context, err error) {
	status, body := h.errorBody(c, err)
	c.AbortWithStatusJSON(status, body)
}

func (h *Handler) errorBody(c *gin.Context, err error) (int, gin.H) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		return status, gin.H{"message": err.Error()}
	}

	h.log.Errorw("request failed", "error", err, "path", c.Request.URL.Path, "request_id", c.GetString(ctxRequestID))
	h.telemetry.CaptureException(c.Request.Context(), err,
		attribute.String("http.route", c.FullPath()),
		attribute.String("request.id", c.GetString(ctxRequestID)),
	)

	message := err.Error()
	if h.production {
		message = "An unexpected error occurred"
	}
	return status, gin.H{"message": message}
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
}
