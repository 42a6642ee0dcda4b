package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dairy-service/internal/infra/payment"
)

func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	var req PaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.payments.CreatePaymentIntent(c.Request.Context(), currentUser(c), req.Amount, req.OrderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Webhook needs the body byte-for-byte, so it is read raw and never bound.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.badRequest(c, err)
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), body, c.GetHeader(payment.SignatureHeader)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) PaymentStatus(c *gin.Context) {
	result, err := h.payments.PaymentStatus(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) RefundPayment(c *gin.Context) {
	var req RefundRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}

	refund, err := h.payments.RefundPayment(c.Request.Context(), c.Param("id"), req.Amount, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Payment refunded",
		"refund":  refund,
	})
}
