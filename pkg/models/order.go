package models

import (
	"time"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out-for-delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// OrderStatuses lists every recognized order status.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further status transitions are accepted.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}

func (s PaymentStatus) Valid() bool {
	for _, v := range PaymentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCard || m == PaymentOnline
}

type OrderType string

const (
	TypeDelivery OrderType = "delivery"
	TypeDineIn   OrderType = "dine-in"
	TypeTakeaway OrderType = "takeaway"
)

func (t OrderType) Valid() bool {
	return t == TypeDelivery || t == TypeDineIn || t == TypeTakeaway
}

// OrderItem is a line item captured inside an order. Name and UnitPrice are a
// snapshot of the menu item at order time; later menu edits never touch them.
type OrderItem struct {
	MenuItemID string  `json:"menuItemId" bson:"menu_item_id"`
	Name       string  `json:"name" bson:"name"`
	UnitPrice  float64 `json:"unitPrice" bson:"unit_price"`
	Quantity   int     `json:"quantity" bson:"quantity"`
	Subtotal   float64 `json:"subtotal" bson:"subtotal"`
}

type DeliveryAddress struct {
	Street     string `json:"street" bson:"street"`
	City       string `json:"city" bson:"city"`
	PostalCode string `json:"postalCode" bson:"postal_code"`
	Phone      string `json:"phone" bson:"phone"`
	Notes      string `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Order is the central aggregate. It is created by the order service, mutated
// only through status/payment transitions and never physically deleted;
// cancellation is a terminal status, not a removal.
type Order struct {
	ID                    string           `json:"id" bson:"_id"`
	OrderNumber           string           `json:"orderNumber" bson:"order_number"`
	CustomerID            string           `json:"customerId" bson:"customer_id"`
	Items                 []OrderItem      `json:"items" bson:"items"`
	TotalAmount           float64          `json:"totalAmount" bson:"total_amount"`
	OrderType             OrderType        `json:"orderType" bson:"order_type"`
	TableNumber           int              `json:"tableNumber,omitempty" bson:"table_number,omitempty"`
	TableID               string           `json:"tableId,omitempty" bson:"table_id,omitempty"`
	DeliveryAddress       *DeliveryAddress `json:"deliveryAddress,omitempty" bson:"delivery_address,omitempty"`
	OrderNotes            string           `json:"orderNotes,omitempty" bson:"order_notes,omitempty"`
	OrderStatus           OrderStatus      `json:"orderStatus" bson:"order_status"`
	PaymentStatus         PaymentStatus    `json:"paymentStatus" bson:"payment_status"`
	PaymentMethod         PaymentMethod    `json:"paymentMethod" bson:"payment_method"`
	EstimatedDeliveryTime *time.Time       `json:"estimatedDeliveryTime,omitempty" bson:"estimated_delivery_time,omitempty"`
	DeliveredAt           *time.Time       `json:"deliveredAt,omitempty" bson:"delivered_at,omitempty"`
	CancelledAt           *time.Time       `json:"cancelledAt,omitempty" bson:"cancelled_at,omitempty"`
	CancellationReason    string           `json:"cancellationReason,omitempty" bson:"cancellation_reason,omitempty"`
	CreatedAt             time.Time        `json:"createdAt" bson:"created_at"`
}

// RecomputeTotal sums the line item subtotals. The stored TotalAmount must
// always equal this value.
func (o *Order) RecomputeTotal() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Subtotal
	}
	return total
}
