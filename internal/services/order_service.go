package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dairy-service/internal/domain"
	rabbit "dairy-service/internal/infra/rabbitmq"
	"dairy-service/internal/repository"
)

type OrderItemInput struct {
	ProductID uint64
	Quantity  int
}

type PlaceOrderInput struct {
	UserID          uint64
	Items           []OrderItemInput
	DeliveryDate    domain.Day
	DeliveryAddress domain.Address
	PaymentID       string
	Recurring       bool
	RecurringType   domain.RecurrenceType
	Notes           string
}

type DeliveryProduct struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type DeliveryStop struct {
	OrderID      uint64            `json:"order_id"`
	CustomerName string            `json:"customer_name"`
	Phone        string            `json:"phone"`
	Address      domain.Address    `json:"address"`
	Products     []DeliveryProduct `json:"products"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
}

type OrderService struct {
	orders       repository.OrderRepository
	products     repository.ProductRepository
	users        repository.UserRepository
	availability *AvailabilityService
	locker       Locker
	publisher    rabbit.PublisherInterface
	log          *zap.SugaredLogger
	now          func() time.Time
}

func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	availability *AvailabilityService,
	locker Locker,
	pub rabbit.PublisherInterface,
	log *zap.SugaredLogger,
) *OrderService {
	return &OrderService{
		orders:       orders,
		products:     products,
		users:        users,
		availability: availability,
		locker:       locker,
		publisher:    pub,
		log:          log,
		now:          time.Now,
	}
}

func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	if err := validatePlacement(&in); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	items := make([]domain.LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, fmt.Errorf("%w: %d", ErrProductNotFound, item.ProductID)
		}
		if !product.Active {
			return nil, fmt.Errorf("%w: %s", ErrProductInactive, product.Name)
		}
		items = append(items, domain.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Size:      product.Size,
			Category:  product.Category,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
	}

	address := in.DeliveryAddress
	if address.IsZero() {
		address = user.Address
	}

	order := &domain.Order{
		UserID:          user.ID,
		Items:           items,
		OrderDate:       s.now().UTC(),
		DeliveryDate:    in.DeliveryDate,
		DeliveryAddress: address.Normalized(),
		PaymentID:       in.PaymentID,
		PaymentStatus:   domain.PaymentPending,
		Status:          domain.StatusPending,
		Recurring:       in.Recurring,
		RecurringType:   in.RecurringType,
		Notes:           in.Notes,
	}
	if in.PaymentID != "" {
		order.PaymentStatus = domain.PaymentPaid
	}
	order.RecalculateTotal()
	order.ScheduleNext()

	reservations := reservationsFor(items)
	if err := s.availability.ReserveAll(ctx, order.DeliveryDate, reservations); err != nil {
		return nil, err
	}

	if err := s.orders.Save(ctx, order); err != nil {
		if relErr := s.availability.ReleaseAll(ctx, order.DeliveryDate, reservations); relErr != nil {
			s.log.Errorw("failed to release stock after order save failure",
				"user_id", order.UserID, "delivery_date", order.DeliveryDate, "error", relErr)
		}
		return nil, err
	}

	s.log.Infow("order placed",
		"order_id", order.ID, "user_id", order.UserID,
		"delivery_date", order.DeliveryDate, "total", order.TotalAmount.StringFixed(2))

	s.publish(ctx, domain.EventOrderCreated, domain.OrderCreatedEvent{
		OrderID:      order.ID,
		UserID:       order.UserID,
		TotalAmount:  order.TotalAmount,
		DeliveryDate: order.DeliveryDate,
		CreatedAt:    order.CreatedAt,
	})
	return order, nil
}

func validatePlacement(in *PlaceOrderInput) error {
	if len(in.Items) == 0 {
		return ErrNoOrderItems
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return ErrInvalidQuantity
		}
	}
	if in.DeliveryDate == 0 {
		return fmt.Errorf("%w: delivery date is required", ErrValidation)
	}

	if in.RecurringType == "" {
		in.RecurringType = domain.RecurrenceNone
	}
	if !in.RecurringType.Valid() {
		return ErrInvalidRecurrence
	}
	if in.Recurring && in.RecurringType.PeriodDays() == 0 {
		return fmt.Errorf("%w: recurring orders must be weekly or biweekly", ErrInvalidRecurrence)
	}
	if !in.Recurring {
		in.RecurringType = domain.RecurrenceNone
	}
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uint64, actor *domain.User) (*domain.Order, error) {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

// ListMyOrders returns the user's orders, newest first.
func (s *OrderService) ListMyOrders(ctx context.Context, userID uint64) ([]domain.Order, error) {
	return s.orders.List(ctx, repository.OrderFilter{UserID: userID})
}

func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.orders.List(ctx, filter)
}

// UpdateStatus moves an order through fulfillment. Cancelling through here
// returns stock the same way CancelOrder does.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var result *domain.Order
	err := s.withOrderLock(ctx, id, func(order *domain.Order) error {
		if order.Status == status {
			result = order
			return nil
		}
		if status == domain.StatusCancelled {
			result = order
			return s.cancelLocked(ctx, order)
		}
		if !order.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, status)
		}

		from := order.Status
		order.Status = status
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}
		s.statusChanged(ctx, order, from)
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdatePaymentStatus records a payment outcome. Re-applying the current
// status succeeds without publishing anything.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id uint64, status domain.PaymentStatus, paymentID string) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var result *domain.Order
	err := s.withOrderLock(ctx, id, func(order *domain.Order) error {
		if !order.PaymentStatus.CanTransitionTo(status) {
			return fmt.Errorf("%w: payment %s to %s", ErrInvalidTransition, order.PaymentStatus, status)
		}

		from := order.PaymentStatus
		changed := from != status || (paymentID != "" && paymentID != order.PaymentID)
		order.PaymentStatus = status
		if paymentID != "" {
			order.PaymentID = paymentID
		}
		result = order
		if !changed {
			return nil
		}
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}

		s.log.Infow("order payment status updated",
			"order_id", order.ID, "from", from, "to", status, "payment_id", order.PaymentID)
		if from != status {
			s.publish(ctx, domain.EventPaymentStatusChanged, domain.PaymentStatusChangedEvent{
				OrderID:   order.ID,
				From:      from,
				To:        status,
				PaymentID: order.PaymentID,
				ChangedAt: s.now().UTC(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *OrderService) CancelOrder(ctx context.Context, id uint64, actor *domain.User) (*domain.Order, error) {
	var result *domain.Order
	err := s.withOrderLock(ctx, id, func(order *domain.Order) error {
		if err := authorize(order, actor); err != nil {
			return err
		}
		result = order
		return s.cancelLocked(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// cancelLocked must run under the order's lock so a second cancellation
// observes the first and stock is returned once.
func (s *OrderService) cancelLocked(ctx context.Context, order *domain.Order) error {
	if !order.Status.Cancellable() {
		return fmt.Errorf("%w: order is %s", ErrCannotCancel, order.Status)
	}

	if err := s.availability.ReleaseAll(ctx, order.DeliveryDate, reservationsFor(order.Items)); err != nil {
		return fmt.Errorf("release stock for order %d: %w", order.ID, err)
	}

	from := order.Status
	order.Status = domain.StatusCancelled
	if err := s.orders.Update(ctx, order); err != nil {
		return err
	}
	s.statusChanged(ctx, order, from)
	return nil
}

// DeliveryRoutes lists the stops to make on day.
func (s *OrderService) DeliveryRoutes(ctx context.Context, day domain.Day) ([]DeliveryStop, error) {
	orders, err := s.orders.FindForDelivery(ctx, day, []domain.OrderStatus{domain.StatusPending, domain.StatusProcessing})
	if err != nil {
		return nil, err
	}

	userIDs := make([]uint64, 0, len(orders))
	for _, o := range orders {
		userIDs = append(userIDs, o.UserID)
	}
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	stops := make([]DeliveryStop, 0, len(orders))
	for _, o := range orders {
		stop := DeliveryStop{
			OrderID:     o.ID,
			Address:     o.DeliveryAddress,
			Products:    make([]DeliveryProduct, 0, len(o.Items)),
			TotalAmount: o.TotalAmount,
		}
		if u, ok := users[o.UserID]; ok {
			stop.CustomerName = u.Name
			stop.Phone = u.Phone
			if stop.Address.IsZero() {
				stop.Address = u.Address
			}
		}
		for _, item := range o.Items {
			stop.Products = append(stop.Products, DeliveryProduct{Name: item.Name, Quantity: item.Quantity})
		}
		stops = append(stops, stop)
	}
	return stops, nil
}

func (s *OrderService) findOrder(ctx context.Context, id uint64) (*domain.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// withOrderLock loads the order after taking its lock so fn always sees the
// latest persisted state.
func (s *OrderService) withOrderLock(ctx context.Context, id uint64, fn func(*domain.Order) error) error {
	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("order:%d", id))
	if err != nil {
		return err
	}
	defer unlock()

	order, err := s.findOrder(ctx, id)
	if err != nil {
		return err
	}
	return fn(order)
}

func (s *OrderService) statusChanged(ctx context.Context, order *domain.Order, from domain.OrderStatus) {
	s.log.Infow("order status updated", "order_id", order.ID, "from", from, "to", order.Status)
	s.publish(ctx, domain.EventOrderStatusChanged, domain.OrderStatusChangedEvent{
		OrderID:   order.ID,
		From:      from,
		To:        order.Status,
		ChangedAt: s.now().UTC(),
	})
}

func (s *OrderService) publish(ctx context.Context, routingKey string, evt any) {
	if err := s.publisher.Publish(ctx, routingKey, evt); err != nil {
		s.log.Warnw("failed to publish event", "routing_key", routingKey, "error", err)
	}
}

func authorize(order *domain.Order, actor *domain.User) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if actor.IsAdmin() || order.OwnedBy(actor.ID) {
		return nil
	}
	return ErrForbidden
}

func reservationsFor(items []domain.LineItem) []Reservation {
	out := make([]Reservation, 0, len(items))
	for _, item := range items {
		out = append(out, Reservation{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Name:      item.Name,
		})
	}
	return out
}
