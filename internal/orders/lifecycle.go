package orders

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dinehall/orderdesk/internal/apperr"
	"github.com/dinehall/orderdesk/pkg/models"
)

// DefaultCancellationReason is recorded when a customer cancels without giving
// a reason.
const DefaultCancellationReason = "Cancelled by user"

// NextStatuses is the linear lifecycle graph:
//
//	pending -> confirmed -> preparing -> ready -> out-for-delivery -> delivered
//
// with cancelled reachable from any non-terminal state. Terminal states map to
// an empty set. The engine enforces terminality from this table but stays
// permissive between non-terminal states: staff may skip forward or move
// backward, matching how dashboards actually drive orders (a chef marking
// ready straight from pending during a rush). StrictTransition exposes the
// strict reading for audits and tests.
var NextStatuses = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:        {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed:      {models.StatusPreparing, models.StatusCancelled},
	models.StatusPreparing:      {models.StatusReady, models.StatusCancelled},
	models.StatusReady:          {models.StatusOutForDelivery, models.StatusCancelled},
	models.StatusOutForDelivery: {models.StatusDelivered, models.StatusCancelled},
	models.StatusDelivered:      {},
	models.StatusCancelled:      {},
}

// StrictTransition reports whether from -> to is an edge of the linear graph.
func StrictTransition(from, to models.OrderStatus) bool {
	for _, next := range NextStatuses[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusUpdate is the single atomic write applied to an order during a status
// transition.
type StatusUpdate struct {
	Status             models.OrderStatus
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string
}

// StatusEvent is the payload of order-status-updated broadcasts.
type StatusEvent struct {
	OrderID     string             `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	OrderStatus models.OrderStatus `json:"orderStatus"`
	UserID      string             `json:"userId"`
}

// PaymentEvent is the payload of payment-status-updated broadcasts.
type PaymentEvent struct {
	OrderID       string               `json:"orderId"`
	OrderNumber   string               `json:"orderNumber"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	UserID        string               `json:"userId"`
}

// SetStatus drives the order status state machine. Only staff roles may call
// it. Terminal orders reject every transition; otherwise the target only has
// to be a recognized status (see NextStatuses). Reaching delivered stamps
// DeliveredAt, reaching cancelled stamps CancelledAt and the reason.
func (s *Service) SetStatus(ctx context.Context, actor models.Actor, orderID string, target models.OrderStatus, reason string) (*models.Order, error) {
	if !actor.Role.Staff() {
		return nil, apperr.New(apperr.Forbidden, "not authorized to update order status")
	}
	if !target.Valid() {
		return nil, apperr.Newf(apperr.InvalidStatus, "invalid order status: %s", target)
	}

	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.OrderStatus.Terminal() {
		return nil, apperr.Newf(apperr.InvalidState, "order is already %s", order.OrderStatus)
	}

	update := StatusUpdate{Status: target}
	now := time.Now()
	switch target {
	case models.StatusDelivered:
		update.DeliveredAt = &now
	case models.StatusCancelled:
		update.CancelledAt = &now
		update.CancellationReason = reason
		if update.CancellationReason == "" {
			update.CancellationReason = DefaultCancellationReason
		}
	}

	updated, err := s.store.UpdateStatus(ctx, orderID, update)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     updated.ID,
		"order_number": updated.OrderNumber,
		"from":         order.OrderStatus,
		"to":           updated.OrderStatus,
		"actor_role":   actor.Role,
	}).Info("Order status updated")

	s.publish(EventOrderStatusUpdated, StatusEvent{
		OrderID:     updated.ID,
		OrderNumber: updated.OrderNumber,
		OrderStatus: updated.OrderStatus,
		UserID:      updated.CustomerID,
	})

	return updated, nil
}

// SetPaymentStatus records the payment state label. It is orthogonal to the
// order status: paying never moves the order along the lifecycle and vice
// versa, so terminal orders still accept payment updates (the till settles a
// delivered order).
func (s *Service) SetPaymentStatus(ctx context.Context, actor models.Actor, orderID string, target models.PaymentStatus) (*models.Order, error) {
	if !actor.Role.Staff() {
		return nil, apperr.New(apperr.Forbidden, "not authorized to update payment status")
	}
	if !target.Valid() {
		return nil, apperr.Newf(apperr.InvalidStatus, "invalid payment status: %s", target)
	}

	updated, err := s.store.UpdatePaymentStatus(ctx, orderID, target)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":       updated.ID,
		"order_number":   updated.OrderNumber,
		"payment_status": updated.PaymentStatus,
		"actor_role":     actor.Role,
	}).Info("Payment status updated")

	s.publish(EventPaymentStatusUpdated, PaymentEvent{
		OrderID:       updated.ID,
		OrderNumber:   updated.OrderNumber,
		PaymentStatus: updated.PaymentStatus,
		UserID:        updated.CustomerID,
	})

	return updated, nil
}

// Cancel is the self-service cancellation path. Only the owning customer or a
// privileged role may cancel, and only while the order is not terminal.
func (s *Service) Cancel(ctx context.Context, actor models.Actor, orderID, reason string) (*models.Order, error) {
	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.Privileged() && order.CustomerID != actor.ID {
		return nil, apperr.New(apperr.Forbidden, "not authorized to cancel this order")
	}
	if order.OrderStatus.Terminal() {
		return nil, apperr.Newf(apperr.InvalidState, "cannot cancel %s order", order.OrderStatus)
	}

	now := time.Now()
	update := StatusUpdate{
		Status:             models.StatusCancelled,
		CancelledAt:        &now,
		CancellationReason: reason,
	}
	if update.CancellationReason == "" {
		update.CancellationReason = DefaultCancellationReason
	}

	updated, err := s.store.UpdateStatus(ctx, orderID, update)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     updated.ID,
		"order_number": updated.OrderNumber,
		"reason":       updated.CancellationReason,
		"actor_role":   actor.Role,
	}).Info("Order cancelled")

	s.publish(EventOrderStatusUpdated, StatusEvent{
		OrderID:     updated.ID,
		OrderNumber: updated.OrderNumber,
		OrderStatus: updated.OrderStatus,
		UserID:      updated.CustomerID,
	})

	return updated, nil
}
