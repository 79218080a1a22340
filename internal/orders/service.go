// Package orders implements the order lifecycle: creation from a validated
// cart, the status and payment state machines, role-scoped listing and the
// aggregate statistics view. All order mutations flow through this package;
// every successful mutation is announced on the injected Publisher.
package orders

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dinehall/orderdesk/internal/apperr"
	"github.com/dinehall/orderdesk/pkg/models"
)

// Event names carried on the broadcast channel.
const (
	EventNewOrder             = "new-order"
	EventOrderStatusUpdated   = "order-status-updated"
	EventPaymentStatusUpdated = "payment-status-updated"
)

// Publisher is the fire-and-forget broadcast point. Publish must never block
// and must never fail the caller; the websocket hub satisfies it in production
// and a recording fake satisfies it in tests.
type Publisher interface {
	Publish(event string, data interface{})
}

// Store is the order persistence contract. Updates are atomic
// single-document read-modify-writes; there is no cross-order locking.
type Store interface {
	Insert(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, scope Scope, page, limit int) ([]*models.Order, int64, error)
	UpdateStatus(ctx context.Context, id string, update StatusUpdate) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) (*models.Order, error)
	NextOrderNumber(ctx context.Context) (string, error)
	Stats(ctx context.Context) (*Stats, error)
}

// MenuResolver resolves live menu items during cart validation.
type MenuResolver interface {
	MenuItem(ctx context.Context, id string) (*models.MenuItem, error)
}

// TableResolver resolves tables for dine-in validation.
type TableResolver interface {
	TableByNumber(ctx context.Context, number int) (*models.Table, error)
}

type Service struct {
	store  Store
	menu   MenuResolver
	tables TableResolver
	pub    Publisher
	logger *logrus.Logger
}

func NewService(store Store, menu MenuResolver, tables TableResolver, pub Publisher, logger *logrus.Logger) *Service {
	return &Service{
		store:  store,
		menu:   menu,
		tables: tables,
		pub:    pub,
		logger: logger,
	}
}

func (s *Service) publish(event string, data interface{}) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(event, data)
}

// DeliveryEstimate is added to the creation time of delivery orders.
const DeliveryEstimate = 45 * time.Minute

var (
	postalCodeRe = regexp.MustCompile(`^[0-9]{5,10}$`)
	phoneRe      = regexp.MustCompile(`^[\d\s\-\+\(\)]{10,15}$`)
)

// ItemRequest is one cart line: a menu item reference and a quantity.
type ItemRequest struct {
	MenuItemID string `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
}

// CreateRequest is the input to order creation.
type CreateRequest struct {
	Items           []ItemRequest           `json:"items"`
	OrderType       models.OrderType        `json:"orderType"`
	TableNumber     int                     `json:"tableNumber,omitempty"`
	DeliveryAddress *models.DeliveryAddress `json:"deliveryAddress,omitempty"`
	OrderNotes      string                  `json:"orderNotes,omitempty"`
	PaymentMethod   models.PaymentMethod    `json:"paymentMethod,omitempty"`
}

// Create validates a cart against live menu and table data and materializes an
// order. Prices are resolved at this moment and frozen into the line items;
// later menu edits never alter the order. Creation is all-or-nothing: if any
// line fails, nothing is persisted and no event fires. The new-order event is
// published only after the store accepted the document.
func (s *Service) Create(ctx context.Context, actor models.Actor, req CreateRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperr.New(apperr.Validation, "no order items provided")
	}

	orderType := req.OrderType
	if orderType == "" {
		orderType = models.TypeDelivery
	}
	if !orderType.Valid() {
		return nil, apperr.Newf(apperr.Validation, "invalid order type: %s", orderType)
	}

	method := req.PaymentMethod
	if method == "" {
		method = models.PaymentCash
	}
	if !method.Valid() {
		return nil, apperr.Newf(apperr.Validation, "invalid payment method: %s", method)
	}

	order := &models.Order{
		ID:            uuid.New().String(),
		CustomerID:    actor.ID,
		OrderType:     orderType,
		OrderNotes:    req.OrderNotes,
		OrderStatus:   models.StatusPending,
		PaymentStatus: models.PaymentPending,
		PaymentMethod: method,
		CreatedAt:     time.Now(),
	}

	switch orderType {
	case models.TypeDineIn:
		if req.TableNumber <= 0 {
			return nil, apperr.New(apperr.Validation, "table number is required for dine-in orders")
		}
		table, err := s.tables.TableByNumber(ctx, req.TableNumber)
		if err != nil {
			if apperr.KindOf(err) == apperr.NotFound {
				return nil, apperr.Newf(apperr.Validation, "table %d does not exist", req.TableNumber)
			}
			return nil, err
		}
		order.TableNumber = table.Number
		order.TableID = table.ID

	case models.TypeDelivery:
		if err := validateDeliveryAddress(req.DeliveryAddress); err != nil {
			return nil, err
		}
		order.DeliveryAddress = req.DeliveryAddress
		estimate := order.CreatedAt.Add(DeliveryEstimate)
		order.EstimatedDeliveryTime = &estimate
	}

	for _, line := range req.Items {
		if line.Quantity < 1 {
			return nil, apperr.Newf(apperr.Validation, "quantity must be at least 1 for item %s", line.MenuItemID)
		}
		item, err := s.menu.MenuItem(ctx, line.MenuItemID)
		if err != nil {
			return nil, err
		}
		if !item.IsAvailable {
			return nil, apperr.Newf(apperr.Unavailable, "%s is currently unavailable", item.Name)
		}
		subtotal := item.Price * float64(line.Quantity)
		order.Items = append(order.Items, models.OrderItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			UnitPrice:  item.Price,
			Quantity:   line.Quantity,
			Subtotal:   subtotal,
		})
		order.TotalAmount += subtotal
	}

	number, err := s.store.NextOrderNumber(ctx)
	if err != nil {
		return nil, err
	}
	order.OrderNumber = number

	if err := s.store.Insert(ctx, order); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"customer_id":  order.CustomerID,
		"order_type":   order.OrderType,
		"total_amount": order.TotalAmount,
		"items_count":  len(order.Items),
	}).Info("Order created")

	s.publish(EventNewOrder, order)

	return order, nil
}

func validateDeliveryAddress(addr *models.DeliveryAddress) error {
	if addr == nil || addr.Street == "" || addr.City == "" || addr.PostalCode == "" || addr.Phone == "" {
		return apperr.New(apperr.Validation, "complete delivery address is required")
	}
	if !postalCodeRe.MatchString(addr.PostalCode) {
		return apperr.New(apperr.Validation, "invalid postal code")
	}
	if !phoneRe.MatchString(addr.Phone) {
		return apperr.New(apperr.Validation, "invalid phone number")
	}
	return nil
}

// Get returns a single order. Customers may only read their own orders; staff
// and privileged roles may read any.
func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (*models.Order, error) {
	order, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.Staff() && order.CustomerID != actor.ID {
		return nil, apperr.New(apperr.Forbidden, "not authorized to view this order")
	}
	return order, nil
}

// List returns the orders visible to the actor, newest first, paginated.
func (s *Service) List(ctx context.Context, actor models.Actor, status models.OrderStatus, tableNumber, page, limit int) ([]*models.Order, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, apperr.Newf(apperr.InvalidStatus, "invalid order status: %s", status)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	scope := ScopeFor(actor, status, tableNumber)
	return s.store.List(ctx, scope, page, limit)
}

// Stats is the read-only aggregate view over all orders.
type Stats struct {
	TotalOrders     int64   `json:"totalOrders"`
	PendingOrders   int64   `json:"pendingOrders"`
	CompletedOrders int64   `json:"completedOrders"`
	CancelledOrders int64   `json:"cancelledOrders"`
	TotalRevenue    float64 `json:"totalRevenue"`
}

// GetStats returns order counts and revenue (delivered and paid orders only).
// Restricted to privileged roles.
func (s *Service) GetStats(ctx context.Context, actor models.Actor) (*Stats, error) {
	if !actor.Role.Privileged() {
		return nil, apperr.New(apperr.Forbidden, "not authorized to view order statistics")
	}
	return s.store.Stats(ctx)
}
