package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dairy-service/internal/domain"
	"dairy-service/internal/services"
)

func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.products.ListProducts(c.Request.Context(), domain.Category(c.Query("category")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	product, err := h.products.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// GetAvailability returns the booking window starting at ?date (default today).
func (h *Handler) GetAvailability(c *gin.Context) {
	from, err := dateQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	window, err := h.availability.Window(c.Request.Context(), from, services.WindowDays)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, window)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	product, err := h.products.CreateProduct(c.Request.Context(), req.createInput())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	product, err := h.products.UpdateProduct(c.Request.Context(), id, req.updateInput())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.products.DeleteProduct(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
}

func (h *Handler) UpdateAvailability(c *gin.Context) {
	var req BulkAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	updated, err := h.availability.BulkSet(c.Request.Context(), req.ProductAvailability)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Availability updated",
		"updated": updated,
	})
}
