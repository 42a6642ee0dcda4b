package services

import (
	"context"
	"errors"
	"fmt"

	"dairy-service/internal/domain"
)

type RecurringResult struct {
	Date     domain.Day     `json:"date"`
	Created  []domain.Order `json:"orders"`
	Skipped  []uint64       `json:"skipped_template_ids"`
	Advanced int            `json:"advanced"`
}

// ShouldRegenerate reports whether template is due for a delivery on asOf.
func ShouldRegenerate(template *domain.Order, asOf domain.Day) bool {
	if template == nil || !template.Recurring {
		return false
	}
	if template.RecurringType.PeriodDays() == 0 {
		return false
	}
	if template.Status == domain.StatusCancelled {
		return false
	}
	return template.NextDeliveryDate != nil && *template.NextDeliveryDate == asOf
}

// Regenerate places a one-off copy of template for delivery on asOf. The
// copy keeps the template's price snapshots, so its total matches.
func (s *OrderService) Regenerate(ctx context.Context, template *domain.Order, asOf domain.Day) (*domain.Order, error) {
	for _, item := range template.Items {
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
	}

	items := make([]domain.LineItem, len(template.Items))
	for i, item := range template.Items {
		items[i] = domain.LineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			Category:  item.Category,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	templateID := template.ID
	child := &domain.Order{
		UserID:          template.UserID,
		Items:           items,
		OrderDate:       s.now().UTC(),
		DeliveryDate:    asOf,
		DeliveryAddress: template.DeliveryAddress,
		PaymentStatus:   domain.PaymentPending,
		Status:          domain.StatusPending,
		Recurring:       false,
		RecurringType:   domain.RecurrenceNone,
		TemplateOrderID: &templateID,
		Notes:           fmt.Sprintf("Recurring order from #%d", template.ID),
	}
	child.RecalculateTotal()

	reservations := reservationsFor(items)
	if err := s.availability.ReserveAll(ctx, asOf, reservations); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, child); err != nil {
		if relErr := s.availability.ReleaseAll(ctx, asOf, reservations); relErr != nil {
			s.log.Errorw("failed to release stock after recurring save failure",
				"template_order_id", template.ID, "error", relErr)
		}
		return nil, err
	}

	s.publish(ctx, domain.EventRecurringOrderGenerated, domain.RecurringOrderGeneratedEvent{
		TemplateOrderID: template.ID,
		OrderID:         child.ID,
		DeliveryDate:    asOf,
	})
	return child, nil
}

// ProcessRecurring regenerates every template due on asOf. A template whose
// products cannot be supplied is skipped for this cycle. Every due template
// is moved to its next period either way.
func (s *OrderService) ProcessRecurring(ctx context.Context, asOf domain.Day) (*RecurringResult, error) {
	due, err := s.orders.FindRecurringDue(ctx, asOf)
	if err != nil {
		return nil, err
	}

	result := &RecurringResult{
		Date:    asOf,
		Created: make([]domain.Order, 0, len(due)),
		Skipped: make([]uint64, 0),
	}

	for i := range due {
		if err := s.processTemplate(ctx, due[i].ID, asOf, result); err != nil {
			return result, err
		}
	}

	s.log.Infow("processed recurring orders",
		"date", asOf, "created", len(result.Created), "skipped", len(result.Skipped))
	return result, nil
}

// processTemplate re-checks the template under its lock, so overlapping runs
// and a concurrent cancellation see one consistent schedule.
func (s *OrderService) processTemplate(ctx context.Context, templateID uint64, asOf domain.Day, result *RecurringResult) error {
	return s.withOrderLock(ctx, templateID, func(template *domain.Order) error {
		if !ShouldRegenerate(template, asOf) {
			return nil
		}

		child, err := s.Regenerate(ctx, template, asOf)
		switch {
		case err == nil:
			result.Created = append(result.Created, *child)
		case isSkippable(err):
			s.log.Infow("recurring order skipped",
				"template_order_id", template.ID, "date", asOf, "reason", err.Error())
			result.Skipped = append(result.Skipped, template.ID)
		default:
			return fmt.Errorf("regenerate order %d: %w", template.ID, err)
		}

		template.AdvanceSchedule()
		if err := s.orders.Update(ctx, template); err != nil {
			return fmt.Errorf("advance order %d: %w", template.ID, err)
		}
		result.Advanced++
		return nil
	})
}

func isSkippable(err error) bool {
	return errors.Is(err, ErrInsufficientAvailability) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrProductInactive)
}
