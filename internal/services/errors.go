package services

import "errors"

var (
	ErrValidation               = errors.New("invalid request")
	ErrNoOrderItems             = errors.New("no order items")
	ErrInvalidQuantity          = errors.New("quantity must be at least 1")
	ErrInvalidRecurrence        = errors.New("invalid recurrence type")
	ErrInvalidStatus            = errors.New("invalid status")
	ErrInvalidTransition        = errors.New("status transition not allowed")
	ErrCannotCancel             = errors.New("order can no longer be cancelled")
	ErrProductInactive          = errors.New("product is not available for sale")
	ErrInsufficientAvailability = errors.New("insufficient availability")
	ErrEmailTaken               = errors.New("user already exists")
	ErrWeakPassword             = errors.New("password must be at least 8 characters")
	ErrInvalidAmount            = errors.New("invalid amount")

	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrPaymentNotFound = errors.New("payment not found")

	ErrUnauthorized       = errors.New("not authorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("not authorized to access this resource")
)
