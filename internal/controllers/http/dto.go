package http

import (
	"github.com/shopspring/decimal"

	"dairy-service/internal/domain"
	"dairy-service/internal/services"
)

type RegisterRequest struct {
	Name     string         `json:"name" binding:"required"`
	Email    string         `json:"email" binding:"required"`
	Password string         `json:"password" binding:"required"`
	Phone    string         `json:"phone"`
	Address  domain.Address `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name     *string         `json:"name"`
	Email    *string         `json:"email"`
	Phone    *string         `json:"phone"`
	Address  *domain.Address `json:"address"`
	Password *string         `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// SessionResponse flattens the user next to its token.
type SessionResponse struct {
	*domain.User
	Token string `json:"token"`
}

func newSessionResponse(s *services.Session) SessionResponse {
	return SessionResponse{User: s.User, Token: s.Token}
}

type OrderItemRequest struct {
	ProductID uint64 `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	Products        []OrderItemRequest    `json:"products"`
	DeliveryDate    *domain.Day           `json:"delivery_date" binding:"required"`
	DeliveryAddress *domain.Address       `json:"delivery_address"`
	PaymentID       string                `json:"payment_id"`
	Recurring       bool                  `json:"recurring"`
	RecurringType   domain.RecurrenceType `json:"recurring_type"`
	Notes           string                `json:"notes"`
}

func (r CreateOrderRequest) input(userID uint64) services.PlaceOrderInput {
	in := services.PlaceOrderInput{
		UserID:        userID,
		Items:         make([]services.OrderItemInput, 0, len(r.Products)),
		PaymentID:     r.PaymentID,
		Recurring:     r.Recurring,
		RecurringType: r.RecurringType,
		Notes:         r.Notes,
	}
	if r.DeliveryDate != nil {
		in.DeliveryDate = *r.DeliveryDate
	}
	if r.DeliveryAddress != nil {
		in.DeliveryAddress = *r.DeliveryAddress
	}
	for _, p := range r.Products {
		in.Items = append(in.Items, services.OrderItemInput{ProductID: p.ProductID, Quantity: p.Quantity})
	}
	return in
}

type UpdateStatusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

type UpdatePaymentRequest struct {
	PaymentStatus domain.PaymentStatus `json:"payment_status" binding:"required"`
	PaymentID     string               `json:"payment_id"`
}

type ProductRequest struct {
	Name         *string             `json:"name"`
	Size         *domain.Size        `json:"size"`
	Price        *decimal.Decimal    `json:"price"`
	Description  *string             `json:"description"`
	ImageURL     *string             `json:"imageUrl"`
	Category     *domain.Category    `json:"category"`
	Active       *bool               `json:"active"`
	Availability domain.Availability `json:"availability_by_date"`
}

func (r ProductRequest) createInput() services.CreateProductInput {
	in := services.CreateProductInput{
		Active:       r.Active,
		Availability: r.Availability,
	}
	if r.Name != nil {
		in.Name = *r.Name
	}
	if r.Size != nil {
		in.Size = *r.Size
	}
	if r.Price != nil {
		in.Price = *r.Price
	}
	if r.Description != nil {
		in.Description = *r.Description
	}
	if r.ImageURL != nil {
		in.ImageURL = *r.ImageURL
	}
	if r.Category != nil {
		in.Category = *r.Category
	}
	return in
}

func (r ProductRequest) updateInput() services.UpdateProductInput {
	return services.UpdateProductInput{
		Name:         r.Name,
		Size:         r.Size,
		Price:        r.Price,
		Description:  r.Description,
		ImageURL:     r.ImageURL,
		Category:     r.Category,
		Active:       r.Active,
		Availability: r.Availability,
	}
}

type BulkAvailabilityRequest struct {
	ProductAvailability map[uint64]domain.Availability `json:"productAvailability" binding:"required"`
}

type PaymentIntentRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	OrderID *uint64         `json:"order_id"`
}

type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason"`
}
