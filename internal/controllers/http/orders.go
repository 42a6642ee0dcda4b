package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dairy-service/internal/domain"
	"dairy-service/internal/repository"
	"dairy-service/internal/services"
)

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), req.input(currentUser(c).ID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) MyOrders(c *gin.Context) {
	orders, err := h.orders.ListMyOrders(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) ListOrders(c *gin.Context) {
	filter := repository.OrderFilter{
		Status:        domain.OrderStatus(c.Query("status")),
		PaymentStatus: domain.PaymentStatus(c.Query("payment_status")),
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			h.respondError(c, fmt.Errorf("%w: invalid user_id", services.ErrValidation))
			return
		}
		filter.UserID = id
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.respondError(c, fmt.Errorf("%w: invalid limit", services.ErrValidation))
			return
		}
		filter.Limit = limit
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) UpdateOrderPayment(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	order, err := h.orders.UpdatePaymentStatus(c.Request.Context(), id, req.PaymentStatus, req.PaymentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) DeliveryRoutes(c *gin.Context) {
	day, err := dateQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	stops, err := h.orders.DeliveryRoutes(c.Request.Context(), day)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stops)
}

func (h *Handler) ProcessRecurring(c *gin.Context) {
	day, err := dateQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.orders.ProcessRecurring(c.Request.Context(), day)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":              fmt.Sprintf("Processed %d recurring orders", len(result.Created)),
		"date":                 result.Date,
		"orders":               result.Created,
		"skipped_template_ids": result.Skipped,
		"advanced":             result.Advanced,
	})
}
