package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dairy-service/internal/services"
	"dairy-service/internal/telemetry"
)

type Handler struct {
	orders       *services.OrderService
	products     *services.ProductService
	availability *services.AvailabilityService
	payments     *services.PaymentService
	users        *services.UserService
	stats        *services.StatsService
	telemetry    telemetry.Telemetry
	log          *zap.SugaredLogger
	env          string
	production   bool
}

type Deps struct {
	Orders       *services.OrderService
	Products     *services.ProductService
	Availability *services.AvailabilityService
	Payments     *services.PaymentService
	Users        *services.UserService
	Stats        *services.StatsService
	Telemetry    telemetry.Telemetry
	Log          *zap.SugaredLogger
	Env          string
	Production   bool
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		orders:       d.Orders,
		products:     d.Products,
		availability: d.Availability,
		payments:     d.Payments,
		users:        d.Users,
		stats:        d.Stats,
		telemetry:    d.Telemetry,
		log:          d.Log,
		env:          d.Env,
		production:   d.Production,
	}
}

// NewRouter builds the engine with the standard middleware chain and every
// route registered.
func NewRouter(h *Handler, corsOrigin string) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), AccessLog(h.log), Recovery(h.telemetry, h.log), CORS(corsOrigin))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found - " + c.Request.URL.Path})
	})
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/health", h.Health)

	users := api.Group("/users")
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.GET("/profile", h.Protect, h.Profile)
	users.PUT("/profile", h.Protect, h.UpdateProfile)
	users.PUT("/profile/password", h.Protect, h.ChangePassword)
	users.GET("", h.Protect, h.RequireAdmin, h.ListUsers)
	users.GET("/:id", h.Protect, h.RequireAdmin, h.GetUser)

	products := api.Group("/products")
	products.GET("", h.ListProducts)
	products.GET("/availability", h.GetAvailability)
	products.GET("/:id", h.GetProduct)
	products.POST("", h.Protect, h.RequireAdmin, h.CreateProduct)
	products.PUT("/availability", h.Protect, h.RequireAdmin, h.UpdateAvailability)
	products.PUT("/:id", h.Protect, h.RequireAdmin, h.UpdateProduct)
	products.DELETE("/:id", h.Protect, h.RequireAdmin, h.DeleteProduct)

	orders := api.Group("/orders", h.Protect)
	orders.POST("", h.CreateOrder)
	orders.GET("/myorders", h.MyOrders)
	orders.GET("/delivery-routes", h.RequireAdmin, h.DeliveryRoutes)
	orders.POST("/process-recurring", h.RequireAdmin, h.ProcessRecurring)
	orders.GET("", h.RequireAdmin, h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	orders.PUT("/:id/cancel", h.CancelOrder)
	orders.PUT("/:id/status", h.RequireAdmin, h.UpdateOrderStatus)
	orders.PUT("/:id/payment", h.RequireAdmin, h.UpdateOrderPayment)

	payments := api.Group("/payments")
	payments.POST("/webhook", h.Webhook)
	payments.POST("/create-payment-intent", h.Protect, h.CreatePaymentIntent)
	payments.GET("/:id/status", h.Protect, h.PaymentStatus)
	payments.POST("/:id/refund", h.Protect, h.RequireAdmin, h.RefundPayment)

	api.GET("/admin/stats", h.Protect, h.RequireAdmin, h.AdminStats)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"environment": h.env,
	})
}

func (h *Handler) AdminStats(c *gin.Context) {
	stats, err := h.stats.DashboardStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
